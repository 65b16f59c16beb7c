// Package daggerheart adapts blueprints to Daggerheart adversaries.
package daggerheart

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/louisbranch/creature-brewer/internal/services/brewer/adapter"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/blueprint"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/record"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/validation"
)

const (
	// SystemID is the host system id this adapter activates for.
	SystemID = "daggerheart"
	// ActorType is the actor type of exported adversaries.
	ActorType = "adversary"

	// KeyMissingTier flags an adversary without a tier.
	KeyMissingTier = "brewer.validation.daggerheart.missing_tier"
)

// System is the adversary payload. Tier and difficulty are copied verbatim
// from the challenge level and the armor text.
type System struct {
	Description string `json:"description"`
	Tier        string `json:"tier"`
	Difficulty  string `json:"difficulty"`
}

// Adapter exports blueprints as adversaries. It relies on the default
// library import policy.
type Adapter struct {
	localizer adapter.Localizer
}

// New creates a Daggerheart adapter.
func New(localizer adapter.Localizer) *Adapter {
	return &Adapter{localizer: localizer}
}

func (a *Adapter) ID() string                    { return SystemID }
func (a *Adapter) SupportsActorExport() bool     { return true }
func (a *Adapter) IsActive(systemID string) bool { return systemID == SystemID }

// BlueprintToActorData builds an adversary.
func (a *Adapter) BlueprintToActorData(b blueprint.Blueprint) (record.Actor, error) {
	system, err := json.Marshal(System{
		Description: adapter.DescriptionHTML(b, a.localizer),
		Tier:        strings.TrimSpace(b.Stats.Challenge.LevelText),
		Difficulty:  strings.TrimSpace(b.Stats.Defenses.ACText),
	})
	if err != nil {
		return record.Actor{}, fmt.Errorf("build daggerheart system data: %w", err)
	}
	return record.Actor{
		Name:   adapter.ActorName(b, a.localizer),
		Type:   ActorType,
		Img:    adapter.ActorImg(b),
		System: system,
		Items:  []json.RawMessage{},
		Flags:  record.Embedding(b),
	}, nil
}

// ActorToBlueprint returns the blueprint embedded in actor.
func (a *Adapter) ActorToBlueprint(actor record.Actor) (blueprint.Blueprint, bool) {
	return adapter.EmbeddedBlueprint(actor)
}

// Validate requires a tier.
func (a *Adapter) Validate(b blueprint.Blueprint) []validation.Message {
	if strings.TrimSpace(b.Stats.Challenge.LevelText) == "" {
		return []validation.Message{validation.Info(KeyMissingTier, validation.SectionStats)}
	}
	return []validation.Message{}
}

var _ adapter.Adapter = (*Adapter)(nil)
