// Package session implements the blueprint editor controller.
//
// A Session owns one working copy of a blueprint. Edits mark it dirty; Save
// writes it to the blueprint collection and ExportActor projects it through
// the active system adapter into the creature collection. Every operation
// holds the session lock for its whole duration, store calls and prompts
// included, so operations on one session never interleave. Observers are
// called after the lock is released.
package session
