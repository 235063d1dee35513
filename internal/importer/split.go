package importer

import (
	"strings"
	"unicode/utf8"
)

// titleSeparators are tried in order; the first one found inside the text wins.
var titleSeparators = []string{" :: ", " | ", " - ", " – ", " — ", " · "}

// splitTitle splits page titles such as "Example | A site for examples" into
// a short name and a longer description. The shorter side becomes the title,
// ties go to the left side.
func splitTitle(raw string) (title, description string) {
	text := strings.TrimSpace(raw)

	for _, sep := range titleSeparators {
		idx := strings.Index(text, sep)
		if idx <= 0 || idx >= len(text)-len(sep) {
			continue
		}

		left := strings.TrimSpace(text[:idx])
		right := strings.TrimSpace(text[idx+len(sep):])
		if utf8.RuneCountInString(left) <= utf8.RuneCountInString(right) {
			return left, right
		}
		return right, left
	}

	return text, ""
}
