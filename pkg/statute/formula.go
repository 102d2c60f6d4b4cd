package statute

import (
	"strings"

	"github.com/coolbeans/statwiki/pkg/markup"
	"github.com/coolbeans/statwiki/pkg/render"
)

// FormulaItem is a formula group: the formula itself followed by the
// provisions defining its terms. It has no address of its own.
type FormulaItem struct {
	BaseItem

	formula         string
	marginalNote    string
	hasMarginalNote bool
}

// Formula returns the formula expression.
func (f *FormulaItem) Formula() string { return f.formula }

// MarginalNote returns the formula group's marginal note, if any.
func (f *FormulaItem) MarginalNote() (string, bool) { return f.marginalNote, f.hasMarginalNote }

// Paragraphs puts the formula on its own line, then its terms in a new
// block.
func (f *FormulaItem) Paragraphs(r render.Renderer) []Paragraph {
	ps := []Paragraph{{
		Text:              r.Bold(r.Clean(f.formula)),
		IndentLevel:       f.IndentLevel(),
		ForceNewParagraph: true,
	}}
	followers := f.childParagraphs(r)
	if len(followers) > 0 {
		followers[0].ForceNewParagraph = true
	}
	return append(ps, followers...)
}

func (b *builder) formula(parent Item, n *markup.Node) (*FormulaItem, error) {
	f := &FormulaItem{BaseItem: BaseItem{parent: parent, source: n}}
	var rest []*markup.Node
	hasFormula := false
	for _, c := range n.Children {
		switch {
		case c.IsText():
			if c.RawText() != "" {
				rest = append(rest, c)
			}
		case c.Tag == "marginalnote":
			f.marginalNote, f.hasMarginalNote = strings.TrimSpace(c.RawText()), true
		case c.Tag == "formula":
			text := strings.TrimSpace(c.SpacedRawText())
			if hasFormula {
				if err := b.warn(f, "formula encountered after another: [%s][%s]", f.formula, text); err != nil {
					return nil, err
				}
			}
			if len(rest) > 0 {
				if err := b.warn(f, "formula encountered after other content: [%s]", text); err != nil {
					return nil, err
				}
			}
			f.formula, hasFormula = text, true
		default:
			rest = append(rest, c)
		}
	}
	if err := b.children(f, rest); err != nil {
		return nil, err
	}
	return f, nil
}

// ReadAsItem holds the substitute text of a "read as" amendment. Its
// sections are built like ordinary children of the enclosing provision.
type ReadAsItem struct {
	BaseItem
}

// Paragraphs renders the substitute provisions.
func (a *ReadAsItem) Paragraphs(r render.Renderer) []Paragraph {
	return a.childParagraphs(r)
}

func (b *builder) readAs(parent Item, n *markup.Node) (*ReadAsItem, error) {
	a := &ReadAsItem{BaseItem: BaseItem{parent: parent, source: n}}
	sections, err := b.readAsSections(a, n)
	if err != nil {
		return nil, err
	}
	if err := b.children(a, sections); err != nil {
		return nil, err
	}
	return a, nil
}

// readAsSections unwraps the single sectionpiece container. Direct sections
// are accepted, with a warning, when no container is present.
func (b *builder) readAsSections(a *ReadAsItem, n *markup.Node) ([]*markup.Node, error) {
	var pieces, direct []*markup.Node
	for _, c := range n.Children {
		switch {
		case c.IsText():
			if text := strings.TrimSpace(c.Text); text != "" {
				if err := b.warn(a, "text found in a readastext: [%s]", text); err != nil {
					return nil, err
				}
			}
		case c.Tag == "sectionpiece":
			pieces = append(pieces, c)
		case isSectionTag(c.Tag) || c.Tag == "formulagroup":
			direct = append(direct, c)
		default:
			if err := b.warn(a, "bad node found in readastext: [%s]", c.Tag); err != nil {
				return nil, err
			}
		}
	}

	switch {
	case len(pieces) == 0 && len(direct) == 0:
		return nil, b.reporter.Fatal(a, "nothing found in readastext")
	case len(pieces) == 0:
		return direct, b.warn(a, "no sectionpieces found in readastext, but direct sections found")
	case len(pieces) > 1:
		if err := b.warn(a, "multiple sectionpieces found in readastext: [%d]", len(pieces)); err != nil {
			return nil, err
		}
	}
	if len(direct) > 0 {
		if err := b.warn(a, "both sections and sectionpieces found in readastext"); err != nil {
			return nil, err
		}
	}

	var sections []*markup.Node
	for _, c := range pieces[0].Children {
		switch {
		case c.IsText():
			if text := strings.TrimSpace(c.Text); text != "" {
				if err := b.warn(a, "text found in a sectionpiece: [%s]", text); err != nil {
					return nil, err
				}
			}
		case isSectionTag(c.Tag) || c.Tag == "formulagroup" || c.Tag == "provision":
			sections = append(sections, c)
		default:
			if err := b.warn(a, "bad node found in sectionpiece: [%s]", c.Tag); err != nil {
				return nil, err
			}
		}
	}
	if len(sections) == 0 {
		if err := b.warn(a, "no sections found in sectionpiece"); err != nil {
			return nil, err
		}
	}
	return sections, nil
}
