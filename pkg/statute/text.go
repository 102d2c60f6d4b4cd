package statute

import (
	"errors"
	"strings"

	"github.com/coolbeans/statwiki/pkg/decoration"
	"github.com/coolbeans/statwiki/pkg/markup"
	"github.com/coolbeans/statwiki/pkg/render"
)

// TextItem is a block of inline text with its defined terms and
// cross-references.
type TextItem struct {
	BaseItem

	forceNewParagraph bool
	text              *decoration.DecoratedText
}

// Text returns the assembled, undecorated text.
func (t *TextItem) Text() string { return t.text.Text() }

// Decorated returns the text with its decorators.
func (t *TextItem) Decorated() *decoration.DecoratedText { return t.text }

// DefinedTerms lists the terms defined in this block, in order.
func (t *TextItem) DefinedTerms() []string { return t.text.DefinedTerms() }

// Paragraphs renders the block as a single paragraph at the enclosing level.
func (t *TextItem) Paragraphs(r render.Renderer) []Paragraph {
	return []Paragraph{{
		Text:              t.text.Render(r),
		IndentLevel:       t.IndentLevel(),
		ForceNewParagraph: t.forceNewParagraph,
	}}
}

func (b *builder) text(parent Item, n *markup.Node, forceNewParagraph bool) (*TextItem, error) {
	t := &TextItem{
		BaseItem:          BaseItem{parent: parent, source: n},
		forceNewParagraph: forceNewParagraph,
	}
	var runs decoration.RunList
	if err := b.collectRuns(t, &runs, n, nil); err != nil {
		return nil, err
	}
	dt, err := runs.Assemble()
	if err != nil {
		if !errors.Is(err, decoration.ErrDecoratorCollision) {
			return nil, err
		}
		if werr := b.warn(t, "%v", err); werr != nil {
			return nil, werr
		}
	}
	t.text = dt
	return t, nil
}

// collectRuns walks the text subtree once, appending a piece per literal
// run, defined term and cross-reference. Literal text is kept only below a
// text-bearing tag.
func (b *builder) collectRuns(t *TextItem, runs *decoration.RunList, n *markup.Node, stack []string) error {
	if len(stack) > maxTextDepth {
		return b.reporter.Fatal(t, "text nested more than %d tags deep", maxTextDepth)
	}
	stack = append(stack, n.Tag)

	for _, c := range n.Children {
		switch {
		case c.IsText():
			text := strings.TrimSpace(c.Text)
			if text == "" {
				continue
			}
			if !writtenText(stack) {
				if err := b.warn(t, "unprocessed text: [%s] in %v", text, stack); err != nil {
					return err
				}
				continue
			}
			runs.AddText(text)
		case c.Tag == tagDefinedTerm:
			runs.AddDefinedTerm(strings.TrimSpace(c.RawText()))
		case c.Tag == tagXRefExternal:
			runs.AddLinkTo(strings.TrimSpace(c.RawText()), c.Attr("link"), true)
		case c.Tag == tagXRefInternal:
			runs.AddLink(strings.TrimSpace(c.RawText()), false)
		case isSectionTag(c.Tag):
			if err := b.warn(t, "found a section tag in text: [%s]", c.Tag); err != nil {
				return err
			}
		default:
			if !knownTextTags[c.Tag] {
				if err := b.warn(t, "unknown tag found in text: [%s]", c.Tag); err != nil {
					return err
				}
			}
			if err := b.collectRuns(t, runs, c, stack); err != nil {
				return err
			}
		}
	}
	return nil
}

func writtenText(stack []string) bool {
	for _, tag := range stack {
		if textTriggers[tag] {
			return true
		}
	}
	return false
}
