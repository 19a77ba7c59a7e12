package horses

import (
	"regexp"
	"strings"
)

const (
	// ColourChar is the marker used internally for formatting codes.
	ColourChar = '§'
	// AltColourChar is the portable marker used in persisted keys.
	AltColourChar = '&'
)

var (
	altColourPattern = regexp.MustCompile(`&([0-9a-fA-Fk-oK-OrR])`)
	colourPattern    = regexp.MustCompile(`§[0-9a-fA-Fk-oK-OrR]`)
)

// TranslateColourCodes rewrites &-codes into the internal § marker.
func TranslateColourCodes(s string) string {
	return altColourPattern.ReplaceAllString(s, "§$1")
}

// EscapeColourCodes rewrites internal markers into their portable & form.
func EscapeColourCodes(s string) string {
	return strings.ReplaceAll(s, string(ColourChar), string(AltColourChar))
}

// StripColour removes all internal formatting codes.
func StripColour(s string) string {
	return colourPattern.ReplaceAllString(s, "")
}
