package workflow

import (
	_ "embed"
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/ini.v1"
)

//go:embed translations.ini
var defaultTranslations []byte

// Translations holds the localized titles of transitions.
type Translations struct {
	catalog *catalog.Builder
}

// LoadTranslations parses ini data with one section per language tag. Pass nil for the built-in translations.
func LoadTranslations(data []byte) (*Translations, error) {

	if data == nil {
		data = defaultTranslations
	}

	file, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("loading translations: %w", err)
	}

	var builder = catalog.NewBuilder(catalog.Fallback(language.English))
	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		tag, err := language.Parse(section.Name())
		if err != nil {
			return nil, fmt.Errorf("translations: section %s: %w", section.Name(), err)
		}
		for _, key := range section.Keys() {
			if err := builder.SetString(tag, key.Name(), key.Value()); err != nil {
				return nil, err
			}
		}
	}

	return &Translations{catalog: builder}, nil
}

func titleKey(transition string) string {
	return transition + "_transition_title"
}

// Title returns the translation of the transition title, or fallback if there is none.
func (t *Translations) Title(tag language.Tag, transition, fallback string) string {
	if t == nil {
		return fallback
	}
	var key = titleKey(transition)
	var p = message.NewPrinter(tag, message.Catalog(t.catalog))
	if title := p.Sprintf(key); title != key {
		return title
	}
	return fallback
}
