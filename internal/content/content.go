// Package content renders message text for list previews and detail
// views. Messages are written in a markdown subset; output is always
// sanitized, so remote text can never smuggle markup into a surface.
package content

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	policy      = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
	md          = goldmark.New()
)

// RenderSnippet converts message markdown into sanitized HTML for a
// detail surface. Render failure degrades to the escaped source text.
func RenderSnippet(input string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(input), &buf); err != nil {
		return plainPolicy.Sanitize(input)
	}
	return policy.Sanitize(buf.String())
}

// Plain strips all markup for one-line previews (conversation rows, the
// story rail).
func Plain(input string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(input), &buf); err != nil {
		return strings.TrimSpace(plainPolicy.Sanitize(input))
	}
	return strings.TrimSpace(plainPolicy.Sanitize(buf.String()))
}
