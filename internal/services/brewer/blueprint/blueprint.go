package blueprint

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	// CurrentSchemaVersion is the schema version written by this build.
	CurrentSchemaVersion = 1

	// TimestampLayout is the ISO-8601 UTC layout used for meta timestamps.
	TimestampLayout = "2006-01-02T15:04:05.000Z"

	// ActionTypeTrait is the type given to newly added actions.
	ActionTypeTrait = "trait"
)

// Blueprint is the editable creature description.
type Blueprint struct {
	Meta        Meta         `json:"meta"`
	Identity    Identity     `json:"identity"`
	Notes       Notes        `json:"notes"`
	Stats       Stats        `json:"stats"`
	Actions     []Action     `json:"actions"`
	Attachments []Attachment `json:"attachments"`
}

// Meta tracks versioning and provenance.
type Meta struct {
	SchemaVersion  int     `json:"schemaVersion"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
	SourceSystemID *string `json:"sourceSystemId"`
}

// Identity holds the creature's name and classification.
type Identity struct {
	Name string   `json:"name"`
	Img  string   `json:"img"`
	Size string   `json:"size"`
	Type string   `json:"type"`
	Tags []string `json:"tags"`
}

// Notes holds free text. GMNotes never leaves the blueprint.
type Notes struct {
	PublicDescription string `json:"publicDescription"`
	GMNotes           string `json:"gmNotes"`
}

// Stats groups the system-neutral stat text blocks.
type Stats struct {
	Challenge Challenge `json:"challenge"`
	Defenses  Defenses  `json:"defenses"`
	Movement  Movement  `json:"movement"`
	Senses    Senses    `json:"senses"`
}

// Challenge describes difficulty.
type Challenge struct {
	RatingText string `json:"ratingText"`
	LevelText  string `json:"levelText"`
}

// Defenses describes armor, hit points and damage modifiers.
type Defenses struct {
	ACText              string `json:"acText"`
	HPText              string `json:"hpText"`
	ResistancesText     string `json:"resistancesText"`
	ImmunitiesText      string `json:"immunitiesText"`
	VulnerabilitiesText string `json:"vulnerabilitiesText"`
}

// Movement describes speeds.
type Movement struct {
	SpeedsText string `json:"speedsText"`
}

// Senses describes perception and languages.
type Senses struct {
	SensesText    string `json:"sensesText"`
	LanguagesText string `json:"languagesText"`
}

// Action is one action or trait entry. InlineRolls is opaque and passed
// through untouched.
type Action struct {
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Text        string            `json:"text"`
	InlineRolls []json.RawMessage `json:"inlineRolls"`
}

// Attachment references a library document folded into the blueprint.
type Attachment struct {
	Ref    string `json:"uuid"`
	Name   string `json:"name"`
	Source string `json:"pack"`
	Kind   string `json:"type"`
}

// Timestamp formats t with TimestampLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Create returns an empty blueprint stamped at now. An empty systemID leaves
// the source system unset.
func Create(systemID string, now time.Time) Blueprint {
	stamp := Timestamp(now)
	return Blueprint{
		Meta: Meta{
			SchemaVersion:  CurrentSchemaVersion,
			CreatedAt:      stamp,
			UpdatedAt:      stamp,
			SourceSystemID: optionalString(systemID),
		},
		Identity:    Identity{Tags: []string{}},
		Actions:     []Action{},
		Attachments: []Attachment{},
	}
}

// NewAction returns the blank action appended by the editor.
func NewAction() Action {
	return Action{Type: ActionTypeTrait, InlineRolls: []json.RawMessage{}}
}

// Clone returns a deep copy of b that shares no memory with it. Nil slices
// stay nil.
func Clone(b Blueprint) Blueprint {
	out := b
	if b.Meta.SourceSystemID != nil {
		value := *b.Meta.SourceSystemID
		out.Meta.SourceSystemID = &value
	}
	if b.Identity.Tags != nil {
		out.Identity.Tags = append([]string{}, b.Identity.Tags...)
	}
	if b.Actions != nil {
		out.Actions = make([]Action, len(b.Actions))
		for i, action := range b.Actions {
			out.Actions[i] = cloneAction(action)
		}
	}
	if b.Attachments != nil {
		out.Attachments = append([]Attachment{}, b.Attachments...)
	}
	return out
}

func cloneAction(action Action) Action {
	out := action
	if action.InlineRolls == nil {
		return out
	}
	out.InlineRolls = make([]json.RawMessage, len(action.InlineRolls))
	for i, roll := range action.InlineRolls {
		if roll != nil {
			out.InlineRolls[i] = append(json.RawMessage{}, roll...)
		}
	}
	return out
}

// UpdateMeta returns a copy of b with updatedAt set to now and a missing
// source system backfilled from systemID.
func UpdateMeta(b Blueprint, systemID string, now time.Time) Blueprint {
	out := Clone(b)
	out.Meta.UpdatedAt = Timestamp(now)
	if out.Meta.SourceSystemID == nil {
		out.Meta.SourceSystemID = optionalString(systemID)
	}
	return out
}

// Migrate upgrades a stored blueprint to CurrentSchemaVersion and replaces
// nil collections with empty ones. Newer versions are left as they are.
func Migrate(b Blueprint) Blueprint {
	out := Clone(b)
	if out.Meta.SchemaVersion < CurrentSchemaVersion {
		out.Meta.SchemaVersion = CurrentSchemaVersion
	}
	if out.Identity.Tags == nil {
		out.Identity.Tags = []string{}
	}
	if out.Actions == nil {
		out.Actions = []Action{}
	}
	for i := range out.Actions {
		if out.Actions[i].InlineRolls == nil {
			out.Actions[i].InlineRolls = []json.RawMessage{}
		}
	}
	if out.Attachments == nil {
		out.Attachments = []Attachment{}
	}
	return out
}

// HasAttachment reports whether ref is already attached.
func (b Blueprint) HasAttachment(ref string) bool {
	for _, attachment := range b.Attachments {
		if attachment.Ref == ref {
			return true
		}
	}
	return false
}

// SplitTags parses comma separated tag text, dropping blank entries.
func SplitTags(text string) []string {
	tags := []string{}
	for _, part := range strings.Split(text, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// JoinTags renders tags as editable text.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
