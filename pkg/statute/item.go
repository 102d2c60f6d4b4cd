// Package statute builds the document tree of a statute from its markup,
// assigns and validates the address of every provision, indexes the
// provisions by label and renders one page per top-level section.
package statute

import (
	"strings"

	"github.com/coolbeans/statwiki/pkg/diag"
	"github.com/coolbeans/statwiki/pkg/label"
	"github.com/coolbeans/statwiki/pkg/markup"
	"github.com/coolbeans/statwiki/pkg/render"
)

// Item is a node of the document tree. The set of implementations is closed:
// *SectionItem, *DefinitionItem, *FormulaItem, *ReadAsItem and *TextItem.
type Item interface {
	diag.Locator

	// Parent returns the enclosing item, or nil for a top-level section.
	Parent() Item
	// Children returns the owned child items in document order.
	Children() []Item
	// Source returns the markup element the item was built from.
	Source() *markup.Node
	// SectionLabel returns the item's own address, or the nearest
	// enclosing one.
	SectionLabel() label.SectionLabel
	// IndentLevel is the nesting level the item's text renders at.
	IndentLevel() int
	// Paragraphs renders the item into unmerged paragraphs.
	Paragraphs(r render.Renderer) []Paragraph

	base() *BaseItem
}

// BaseItem holds the fields every item shares. The parent pointer is used
// only for upward queries; children are owned.
type BaseItem struct {
	parent   Item
	children []Item
	source   *markup.Node
}

func (b *BaseItem) base() *BaseItem { return b }

// Parent returns the enclosing item.
func (b *BaseItem) Parent() Item { return b.parent }

// Children returns the child items.
func (b *BaseItem) Children() []Item { return b.children }

// Source returns the item's markup element.
func (b *BaseItem) Source() *markup.Node { return b.source }

// SectionLabel returns the enclosing address.
func (b *BaseItem) SectionLabel() label.SectionLabel {
	if b.parent == nil {
		return label.SectionLabel{}
	}
	return b.parent.SectionLabel()
}

// IndentLevel returns the enclosing item's level.
func (b *BaseItem) IndentLevel() int {
	if b.parent == nil {
		return 0
	}
	return b.parent.IndentLevel()
}

// Location is unresolved for unlabelled items; diagnostics walk upwards.
func (b *BaseItem) Location() (string, bool) { return "", false }

// LocationParent returns the enclosing item.
func (b *BaseItem) LocationParent() diag.Locator {
	if b.parent == nil {
		return nil
	}
	return b.parent
}

// childParagraphs concatenates the paragraphs of every child.
func (b *BaseItem) childParagraphs(r render.Renderer) []Paragraph {
	var out []Paragraph
	for _, c := range b.children {
		out = append(out, c.Paragraphs(r)...)
	}
	return out
}

// Walk visits item and its descendants depth first. Returning false from fn
// skips the item's children.
func Walk(item Item, fn func(Item) bool) {
	if !fn(item) {
		return
	}
	for _, c := range item.Children() {
		Walk(c, fn)
	}
}

// PlainText returns up to limit bytes of the item's undecorated text, with
// provision labels, used for diagnostics and repealed-stub detection.
func PlainText(item Item, limit int) string {
	var b strings.Builder
	plainText(item, &b, limit)
	s := b.String()
	if len(s) > limit {
		s = s[:limit]
	}
	return s
}

func plainText(item Item, b *strings.Builder, limit int) {
	if b.Len() >= limit {
		return
	}
	switch it := item.(type) {
	case *TextItem:
		appendWord(b, it.Text())
		return
	case *FormulaItem:
		appendWord(b, it.formula)
	case *SectionItem:
		if it.hasLabel {
			appendWord(b, it.labelText)
		}
	case *DefinitionItem, *ReadAsItem:
	}
	for _, c := range item.Children() {
		plainText(c, b, limit)
	}
}

func appendWord(b *strings.Builder, s string) {
	if s == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(s)
}
