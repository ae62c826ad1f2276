package markdown

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

const extensions = blackfriday.CommonExtensions

var (
	// Single paragraph replies render without the wrapping <p>
	singleParagraph = regexp.MustCompile(`^<p>((?s:.*?))</p>$`)
	excessNewlines  = regexp.MustCompile(`\n{3,}`)
)

// ToHTML converts a chat reply written in markdown to HTML safe to drop
// into the chat widget. Raw HTML in the reply is skipped and links open
// in a new tab.
func ToHTML(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.SkipHTML | blackfriday.Safelink | blackfriday.HrefTargetBlank |
			blackfriday.NofollowLinks | blackfriday.NoreferrerLinks,
	})
	html := string(blackfriday.Run([]byte(markdown),
		blackfriday.WithExtensions(extensions),
		blackfriday.WithRenderer(renderer),
	))

	return clean(html)
}

func clean(html string) string {
	html = strings.TrimSpace(html)
	if strings.Count(html, "<p>") == 1 {
		html = singleParagraph.ReplaceAllString(html, "$1")
	}
	html = excessNewlines.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}
