package handler

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// textPolicy strips every tag and attribute from free text
var textPolicy = bluemonday.StrictPolicy()

// sanitizeText removes markup from a user supplied description. Entities the
// policy escapes are decoded again so "R&D" is stored as typed.
func sanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}
