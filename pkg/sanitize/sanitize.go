// Package sanitize renders untrusted AI webhook output into HTML that is
// safe to hand to the portal frontend.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

// allowedElements is the fixed set of tags the summary view can render.
// Anything else is stripped down to its text content. No attributes survive,
// so event handlers, inline styles, and src/href capabilities are all dropped.
var allowedElements = []string{
	"h1", "h2", "h3", "h4", "h5", "h6",
	"p", "br", "hr", "div", "span",
	"ul", "ol", "li",
	"table", "thead", "tbody", "tr", "th", "td",
	"strong", "b", "em", "i", "u",
	"blockquote", "pre", "code",
}

var fenceMarker = regexp.MustCompile("(?m)^```[a-zA-Z]*[ \t]*\r?\n?|```[ \t]*$")

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(allowedElements...)
	p.SkipElementsContent("script", "style")
	return p
}

var policy = newPolicy()

// StripFences removes Markdown code-fence markers so a payload wrapped in
// ```html … ``` is unwrapped before any further processing.
func StripFences(s string) string {
	return strings.TrimSpace(fenceMarker.ReplaceAllString(s, ""))
}

// IsHTML reports whether the payload should be treated as HTML rather than
// Markdown or plain text.
func IsHTML(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "<")
}

// HTML sanitizes an HTML fragment against the element allow-list.
func HTML(s string) string {
	return strings.TrimSpace(policy.Sanitize(s))
}

// Markdown converts Markdown (headings, emphasis, tables) to HTML and then
// sanitizes the result with the same policy as raw HTML input.
func Markdown(s string) string {
	rendered := blackfriday.Run([]byte(s), blackfriday.WithExtensions(blackfriday.CommonExtensions))
	return HTML(string(rendered))
}

// Clean is the full pipeline applied to a webhook payload: unwrap code
// fences, then sanitize as HTML or render as Markdown depending on shape.
// Plain text comes out escaped by the Markdown renderer.
func Clean(s string) string {
	s = StripFences(s)
	if s == "" {
		return ""
	}
	if IsHTML(s) {
		return HTML(s)
	}
	return Markdown(s)
}
