package domain

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips all markup from upstream-provided text and decodes HTML
// entities, so product and course names render safely as plain strings.
func SanitizeText(value string) string {
	stripped := strictPolicy.Sanitize(value)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
