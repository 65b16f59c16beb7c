// Package timeouts defines shared timeout constants used by the brewer
// commands and storage.
package timeouts

import "time"

// SQLiteBusy caps how long a SQLite connection waits on a locked database.
const SQLiteBusy = 5 * time.Second

// TelemetryShutdown limits how long pending spans are flushed at exit.
const TelemetryShutdown = 5 * time.Second
