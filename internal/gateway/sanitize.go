package gateway

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var contentPolicy = bluemonday.StrictPolicy()

// tagPattern matches a complete start, end or self-closing tag whose
// attributes all carry a value. Anything else containing '<' is text.
var tagPattern = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9-]*(?:\s+[a-zA-Z_:][-a-zA-Z0-9_:.]*\s*=\s*(?:"[^"]*"|'[^']*'|[^\s"'=<>` + "`" + `]+))*\s*/?>`)

// SanitizeContent strips well-formed markup from message content and returns
// plain text. Text outside tags, entities included, comes back unchanged.
func SanitizeContent(content string) string {
	if content == "" {
		return ""
	}

	var b strings.Builder
	last := 0
	for _, loc := range tagPattern.FindAllStringIndex(content, -1) {
		b.WriteString(html.EscapeString(content[last:loc[0]]))
		b.WriteString(content[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(html.EscapeString(content[last:]))

	sanitized := contentPolicy.Sanitize(b.String())
	return strings.TrimSpace(html.UnescapeString(sanitized))
}
