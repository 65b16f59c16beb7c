// Package i18n localizes brewer messages from the embedded catalogs.
package i18n

import (
	"github.com/louisbranch/creature-brewer/internal/platform/i18n/catalog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Localizer resolves brewer message keys for one locale. Keys missing from
// the locale fall back to the base locale, then to the key itself.
type Localizer struct {
	bundle  *catalog.Bundle
	locale  string
	printer *message.Printer
}

// New creates a localizer for the closest bundled match of requested. A nil
// bundle uses the embedded catalogs.
func New(bundle *catalog.Bundle, requested string) *Localizer {
	if bundle == nil {
		bundle = catalog.Default()
	}
	locale := bundle.ResolveLocale(requested)
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(catalog.BaseLocale)
	}
	return &Localizer{bundle: bundle, locale: locale, printer: message.NewPrinter(tag)}
}

// Locale returns the resolved locale.
func (l *Localizer) Locale() string {
	return l.locale
}

// Localize returns the message for key.
func (l *Localizer) Localize(key string) string {
	if value, ok := l.bundle.Message(l.locale, key); ok {
		return value
	}
	return key
}

// Count formats n with the locale's number formatting.
func (l *Localizer) Count(n int) string {
	return l.printer.Sprintf("%d", n)
}
