package statute

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coolbeans/statwiki/pkg/render"
)

// Paragraph is one block of rendered output. Paragraphs are produced fresh
// on every render and merged before output.
type Paragraph struct {
	Text              string
	IndentLevel       int
	MarginalNote      bool
	ForceNewParagraph bool
	// SoftSpace asks for a space before merged text that starts with a
	// letter or digit.
	SoftSpace bool
}

// Merge appends next to p when the two can share a block and reports whether
// it did. Marginal notes never merge, a paragraph that forces a new block
// never joins its predecessor, and the indent levels must match.
func (p *Paragraph) Merge(next Paragraph) bool {
	if next.ForceNewParagraph || p.MarginalNote || next.MarginalNote {
		return false
	}
	if p.IndentLevel != next.IndentLevel {
		return false
	}
	if p.SoftSpace && startsAlnum(next.Text) {
		p.Text += " "
	}
	p.Text += next.Text
	p.SoftSpace = next.SoftSpace
	return true
}

func startsAlnum(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// MergeParagraphs joins adjacent compatible paragraphs in one left-to-right
// pass. The input is not modified.
func MergeParagraphs(ps []Paragraph) []Paragraph {
	if len(ps) == 0 {
		return nil
	}
	out := []Paragraph{ps[0]}
	for _, p := range ps[1:] {
		if !out[len(out)-1].Merge(p) {
			out = append(out, p)
		}
	}
	return out
}

// Render renders the paragraph as a marginal note or an indented block.
func (p Paragraph) Render(r render.Renderer) string {
	if p.MarginalNote {
		return r.MarginalNote(p.Text)
	}
	return r.Indent(p.Text, p.IndentLevel)
}

// RenderParagraphs merges ps and renders the result, one block per line.
func RenderParagraphs(r render.Renderer, ps []Paragraph) string {
	merged := MergeParagraphs(ps)
	lines := make([]string, len(merged))
	for i, p := range merged {
		lines[i] = p.Render(r)
	}
	return strings.Join(lines, "\n")
}
