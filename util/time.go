package util

import (
	"strings"
	"time"

	"golang.org/x/text/language"
)

var monthNamesDe = strings.NewReplacer(
	"January", "Januar",
	"February", "Februar",
	"March", "März",
	"May", "Mai",
	"June", "Juni",
	"July", "Juli",
	"October", "Oktober",
	"December", "Dezember",
)

// FormatLong formats t with date and time in the given language. The zero time yields an empty string.
func FormatLong(t time.Time, tag language.Tag) string {
	if t.IsZero() {
		return ""
	}
	b, _ := tag.Base()
	switch b.String() {
	case "de":
		return monthNamesDe.Replace(t.Format("2. January 2006 15:04 Uhr"))
	default:
		return t.Format("January 2, 2006 3:04 PM")
	}
}
