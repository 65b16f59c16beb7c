package adapter

import (
	"strings"

	"github.com/louisbranch/creature-brewer/internal/services/brewer/blueprint"
	"github.com/microcosm-cc/bluemonday"
)

// Keys of the localized headings used in actor descriptions.
const (
	KeyPublicDescription = "brewer.ui.public_description"
	KeyActions           = "brewer.ui.actions"
	KeyUntitled          = "brewer.ui.untitled"
)

// DefaultActorImg is the portrait used when a blueprint has none.
const DefaultActorImg = "icons/svg/mystery-man.svg"

var textPolicy = bluemonday.StrictPolicy()

// DescriptionHTML renders the public description and the actions of b as
// HTML. User text is sanitized; GM notes are not included.
func DescriptionHTML(b blueprint.Blueprint, localizer Localizer) string {
	lines := []string{
		"<h2>" + localize(localizer, KeyPublicDescription) + "</h2>",
		"<p>" + textPolicy.Sanitize(b.Notes.PublicDescription) + "</p>",
		"<h2>" + localize(localizer, KeyActions) + "</h2>",
	}
	for _, action := range b.Actions {
		lines = append(lines, "<p><strong>"+textPolicy.Sanitize(action.Name)+"</strong> "+textPolicy.Sanitize(action.Text)+"</p>")
	}
	return strings.Join(lines, "\n")
}

// ActorName returns the blueprint name or the localized untitled name.
func ActorName(b blueprint.Blueprint, localizer Localizer) string {
	if b.Identity.Name != "" {
		return b.Identity.Name
	}
	return localize(localizer, KeyUntitled)
}

// ActorImg returns the blueprint portrait or DefaultActorImg.
func ActorImg(b blueprint.Blueprint) string {
	if img := strings.TrimSpace(b.Identity.Img); img != "" {
		return img
	}
	return DefaultActorImg
}

func localize(localizer Localizer, key string) string {
	if localizer == nil {
		return key
	}
	return localizer.Localize(key)
}
