package persona

import (
	"regexp"
	"strings"
)

var nameMarkerPattern = regexp.MustCompile(`\[\[NAME:(.*?)\]\]`)

// ExtractName strips every name marker from a reply. The first marker with a
// non-empty name wins.
func ExtractName(reply string) (clean, name string) {
	matches := nameMarkerPattern.FindAllStringSubmatch(reply, -1)
	if len(matches) == 0 {
		return reply, ""
	}

	for _, match := range matches {
		if candidate := strings.TrimSpace(match[1]); candidate != "" && candidate != "<name>" {
			name = candidate
			break
		}
	}

	clean = strings.TrimSpace(nameMarkerPattern.ReplaceAllString(reply, ""))
	return clean, name
}
