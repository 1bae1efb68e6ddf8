// Package xmlutil escapes user text embedded in XML-delimited LLM prompts.
package xmlutil

import (
	"fmt"
	"strings"
)

var replacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape replaces the five XML special characters with their named entities.
func Escape(s string) string {
	return replacer.Replace(s)
}

// Element wraps escaped text in <name>...</name>.
func Element(name, text string) string {
	return fmt.Sprintf("<%s>%s</%s>", name, Escape(text), name)
}
