// Package record defines the stored shapes of blueprint and actor documents.
package record

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/blueprint"
)

const (
	// FlagScope is the namespace under which blueprints are embedded.
	FlagScope = "archive-creature-brewer"
	// BlueprintFlag is the key of the embedded blueprint inside FlagScope.
	BlueprintFlag = "blueprint"
)

// Flags is the namespaced metadata attached to stored records.
type Flags struct {
	Brewer *Embed `json:"archive-creature-brewer,omitempty"`
}

// Embed holds the embedded blueprint.
type Embed struct {
	Blueprint *blueprint.Blueprint `json:"blueprint,omitempty" validate:"required"`
}

// Embedding returns flags carrying a deep copy of b.
func Embedding(b blueprint.Blueprint) Flags {
	clone := blueprint.Clone(b)
	return Flags{Brewer: &Embed{Blueprint: &clone}}
}

// Blueprint returns a deep copy of the embedded blueprint, if present.
func (f Flags) Blueprint() (blueprint.Blueprint, bool) {
	if f.Brewer == nil || f.Brewer.Blueprint == nil {
		return blueprint.Blueprint{}, false
	}
	return blueprint.Clone(*f.Brewer.Blueprint), true
}

// Blueprint is a stored blueprint entry.
type Blueprint struct {
	Name    string `json:"name" validate:"required"`
	Content string `json:"content"`
	Flags   Flags  `json:"flags"`
}

// Actor is a playable actor produced by a system adapter. System is the
// system-specific payload; Items holds the raw data of embedded items.
type Actor struct {
	Name   string            `json:"name" validate:"required"`
	Type   string            `json:"type" validate:"required"`
	Img    string            `json:"img"`
	System json.RawMessage   `json:"system,omitempty"`
	Items  []json.RawMessage `json:"items"`
	Flags  Flags             `json:"flags"`
}

// Item is the minimal view of a library item document.
type Item struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateBlueprint checks a blueprint entry before it is written.
func ValidateBlueprint(entry Blueprint) error {
	if err := validate.Struct(entry); err != nil {
		return fmt.Errorf("invalid blueprint record: %w", err)
	}
	if _, ok := entry.Flags.Blueprint(); !ok {
		return fmt.Errorf("invalid blueprint record: %s.%s flag is required", FlagScope, BlueprintFlag)
	}
	return nil
}

// ValidateActor checks an actor before it is written.
func ValidateActor(actor Actor) error {
	if err := validate.Struct(actor); err != nil {
		return fmt.Errorf("invalid actor record: %w", err)
	}
	if len(actor.System) > 0 && !json.Valid(actor.System) {
		return fmt.Errorf("invalid actor record: system payload is not valid JSON")
	}
	for i, item := range actor.Items {
		if !json.Valid(item) {
			return fmt.Errorf("invalid actor record: item %d is not valid JSON", i)
		}
	}
	return nil
}
