// Package main provides the brewer CLI for authoring creature blueprints.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	brewercmd "github.com/louisbranch/creature-brewer/internal/cmd/brewer"
	platformcmd "github.com/louisbranch/creature-brewer/internal/platform/cmd"
	"github.com/louisbranch/creature-brewer/internal/platform/config"
)

func main() {
	cfg, err := brewercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceBrewer, func(ctx context.Context) error {
		return brewercmd.Run(ctx, cfg, pipedStdin(), os.Stdout, os.Stderr)
	})
	if err != nil {
		config.Exitf("Error: %v", err)
	}
}

// pipedStdin returns stdin when it is not a terminal.
func pipedStdin() io.Reader {
	info, err := os.Stdin.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice != 0 {
		return nil
	}
	return os.Stdin
}
