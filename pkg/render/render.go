// Package render defines the output capability the document tree renders
// against, with wiki, HTML and markdown implementations.
//
// Only Clean accepts raw source text. Every other method receives markup that
// has already been cleaned or rendered, so decorations can nest.
package render

import (
	"fmt"
	"sort"
	"strings"
)

// Renderer produces target-format markup.
type Renderer interface {
	// Bold emphasizes text (defined terms, provision labels).
	Bold(text string) string
	// Italic slants text.
	Italic(text string) string
	// Link points at an anchor on a page. An empty anchor links to the page.
	Link(page, anchor, text string) string
	// Anchor marks a link target.
	Anchor(target string) string
	// Indent renders one paragraph at the given nesting level.
	Indent(text string, level int) string
	// MarginalNote renders a provision's marginal note.
	MarginalNote(text string) string
	// Heading renders a heading of the given level (1 is the coarsest).
	Heading(text string, level int) string
	// NewLine separates blocks.
	NewLine() string
	// Clean converts raw source text into safe output text.
	Clean(text string) string
	// FileExtension is appended to page names when writing files.
	FileExtension() string
	// Document wraps a rendered page body.
	Document(title, body string) string
}

var formats = map[string]func() Renderer{
	"wiki":     func() Renderer { return Wiki{} },
	"html":     func() Renderer { return HTML{} },
	"markdown": func() Renderer { return Markdown{} },
}

// ForFormat returns the renderer registered under name.
func ForFormat(name string) (Renderer, error) {
	factory, ok := formats[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (known: %s)", name, strings.Join(Formats(), ", "))
	}
	return factory(), nil
}

// Formats lists the registered format names.
func Formats() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// entityReplacer folds typographic punctuation, decoded or still written as
// numeric entities, to the ASCII forms wiki markup expects.
var entityReplacer = strings.NewReplacer(
	"&#8217;", "'",
	"&#8220;", `"`,
	"&#8221;", `"`,
	"&#8212;", "--",
	"\u2019", "'",
	"\u201c", `"`,
	"\u201d", `"`,
	"\u2014", "--",
)
