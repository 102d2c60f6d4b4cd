package render

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Markdown renders CommonMark pages. Nesting is expressed as blockquotes and
// anchors as inline HTML, which MarkdownToHTML passes through.
type Markdown struct{}

var _ Renderer = Markdown{}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"`", "\\`",
	"<", "&lt;",
)

func (Markdown) Bold(text string) string   { return "**" + text + "**" }
func (Markdown) Italic(text string) string { return "*" + text + "*" }

func (m Markdown) Link(page, anchor, text string) string {
	target := url.PathEscape(page) + m.FileExtension()
	if anchor != "" {
		target += "#" + url.PathEscape(anchor)
	}
	return "[" + text + "](" + target + ")"
}

func (Markdown) Anchor(target string) string {
	return `<a id="` + strings.ReplaceAll(target, `"`, "&quot;") + `"></a>`
}

func (Markdown) Indent(text string, level int) string {
	if level <= 0 {
		return text + "\n"
	}
	return strings.Repeat(">", level) + " " + text + "\n"
}

func (m Markdown) MarginalNote(text string) string { return m.Heading(text, 5) + "\n" }

func (Markdown) Heading(text string, level int) string {
	level = min(max(level, 1), 6)
	return strings.Repeat("#", level) + " " + text
}

func (Markdown) NewLine() string { return "\n\n" }

// blockMarker matches line openings that markdown reads as a heading, list
// item, blockquote or thematic break.
var blockMarker = regexp.MustCompile(`(?m)^([ \t]*)(?:([#>+=-])|(\d+)([.)]))`)

func (Markdown) Clean(text string) string {
	text = markdownEscaper.Replace(text)
	return blockMarker.ReplaceAllStringFunc(text, func(m string) string {
		g := blockMarker.FindStringSubmatch(m)
		if g[2] != "" {
			return g[1] + `\` + g[2]
		}
		return g[1] + g[3] + `\` + g[4]
	})
}

func (Markdown) FileExtension() string { return ".md" }

func (m Markdown) Document(title, body string) string {
	return m.Heading(m.Clean(title), 1) + "\n\n" + body
}

// markdownEngine keeps raw HTML so rendered anchors survive conversion.
var markdownEngine = goldmark.New(
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

// MarkdownToHTML converts a markdown page to an HTML fragment.
func MarkdownToHTML(source []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := markdownEngine.Convert(source, &out); err != nil {
		return nil, fmt.Errorf("failed to convert markdown: %w", err)
	}
	return out.Bytes(), nil
}
