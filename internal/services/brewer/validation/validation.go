// Package validation produces advisory messages for blueprints.
//
// Messages never block saving or exporting; they are shown next to the
// section they refer to.
package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/louisbranch/creature-brewer/internal/services/brewer/blueprint"
)

// Severity classifies a message.
type Severity string

const (
	SeverityWarn Severity = "warn"
	SeverityInfo Severity = "info"
)

// Section identifiers used by the editor layout.
const (
	SectionBasics  = "basics"
	SectionStats   = "stats"
	SectionActions = "actions"
	SectionNotes   = "notes"
	SectionLibrary = "library"
)

// Message keys for the base rules.
const (
	KeyMissingName          = "brewer.validation.missing_name"
	KeyNoActions            = "brewer.validation.no_actions"
	KeyShortDescription     = "brewer.validation.short_description"
	KeyRatingWithoutDefense = "brewer.validation.rating_without_defense"
)

// MinDescriptionLength is the rune count below which the public description
// is flagged as short.
const MinDescriptionLength = 20

// Message is one advisory finding. Key is a localization key.
type Message struct {
	Severity  Severity `json:"severity"`
	Key       string   `json:"key"`
	SectionID string   `json:"sectionId"`
}

// Validate runs the base rules in a fixed order.
func Validate(b blueprint.Blueprint) []Message {
	messages := []Message{}
	if b.Identity.Name == "" {
		messages = append(messages, Message{Severity: SeverityWarn, Key: KeyMissingName, SectionID: SectionBasics})
	}
	if len(b.Actions) == 0 {
		messages = append(messages, Message{Severity: SeverityWarn, Key: KeyNoActions, SectionID: SectionActions})
	}
	if utf8.RuneCountInString(b.Notes.PublicDescription) < MinDescriptionLength {
		messages = append(messages, Message{Severity: SeverityInfo, Key: KeyShortDescription, SectionID: SectionNotes})
	}
	defenses := b.Stats.Defenses
	if b.Stats.Challenge.RatingText != "" && (defenses.ACText == "" || defenses.HPText == "") {
		messages = append(messages, Message{Severity: SeverityInfo, Key: KeyRatingWithoutDefense, SectionID: SectionStats})
	}
	return messages
}

// Combine appends extra messages after base, leaving both inputs unchanged.
func Combine(base []Message, extra []Message) []Message {
	out := make([]Message, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// Info is a shorthand for building adapter messages.
func Info(key string, section string) Message {
	return Message{Severity: SeverityInfo, Key: strings.TrimSpace(key), SectionID: section}
}
