package render

import "strings"

// Wiki renders wikidot-style markup.
type Wiki struct{}

var _ Renderer = Wiki{}

func (Wiki) Bold(text string) string   { return "**" + text + "**" }
func (Wiki) Italic(text string) string { return "//" + text + "//" }

func (Wiki) Link(page, anchor, text string) string {
	target := page
	if anchor != "" {
		target += "#" + anchor
	}
	return "[[" + target + "|" + text + "]]"
}

func (Wiki) Anchor(target string) string { return "[[#" + target + "]]" }

func (Wiki) Indent(text string, level int) string {
	return strings.Repeat(">", max(level, 0)) + " " + text
}

func (w Wiki) MarginalNote(text string) string { return w.Heading(text, 5) }

func (Wiki) Heading(text string, level int) string {
	marks := strings.Repeat("=", level)
	return marks + " " + text + " " + marks
}

func (Wiki) NewLine() string { return "\n" }

func (Wiki) Clean(text string) string { return entityReplacer.Replace(text) }

func (Wiki) FileExtension() string { return "" }

func (Wiki) Document(title, body string) string { return body }
