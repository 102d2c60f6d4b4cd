package statute

import (
	"strings"

	"github.com/coolbeans/statwiki/pkg/diag"
	"github.com/coolbeans/statwiki/pkg/label"
	"github.com/coolbeans/statwiki/pkg/markup"
)

// segmentCodes are the code keys a heading carries for each level, coarsest
// first.
var segmentCodes = [...]string{"ga", "gb", "gc"}

// HeadingItem is a part, division or subdivision heading. Headings belong to
// the statute, not to the provision tree.
type HeadingItem struct {
	source *markup.Node

	labelText string
	hasLabel  bool
	title     string

	numbered bool
	kind     label.SegmentKind
	value    string
}

// LabelText returns the heading label as printed, e.g. "Part 3".
func (h *HeadingItem) LabelText() (string, bool) { return h.labelText, h.hasLabel }

// Title returns the heading's title text.
func (h *HeadingItem) Title() string { return h.title }

// Numbering returns the parsed segment kind and value. The last result is
// false for unlabelled or malformed headings.
func (h *HeadingItem) Numbering() (label.SegmentKind, string, bool) {
	return h.kind, h.value, h.numbered
}

// Location reports the heading label.
func (h *HeadingItem) Location() (string, bool) { return h.labelText, h.hasLabel }

// LocationParent is nil: headings sit at the top level.
func (h *HeadingItem) LocationParent() diag.Locator { return nil }

func (b *builder) heading(n *markup.Node) (*HeadingItem, error) {
	h := &HeadingItem{source: n}
	var extra []*markup.Node
	for _, c := range n.Children {
		switch {
		case c.IsText():
			if c.RawText() != "" {
				extra = append(extra, c)
			}
		case c.Tag == "label":
			h.labelText, h.hasLabel = strings.TrimSpace(c.RawText()), true
		case c.Tag == "titletext":
			h.title = strings.TrimSpace(c.SpacedRawText())
		default:
			extra = append(extra, c)
		}
	}
	if len(extra) > 0 {
		if err := b.warn(h, "excess nodes in heading: %v", extra); err != nil {
			return nil, err
		}
	}
	if !h.hasLabel {
		return h, nil
	}

	fields := strings.Fields(h.labelText)
	if len(fields) != 2 {
		return h, b.warn(h, "incorrect number of pieces in heading label: [%s]", h.labelText)
	}
	kind, err := label.ParseSegmentKind(fields[0])
	if err != nil {
		return h, b.warn(h, "unknown segment type for heading: [%s]", h.labelText)
	}
	h.numbered, h.kind, h.value = true, kind, fields[1]

	return h, b.checkHeadingCode(h, n)
}

// checkHeadingCode cross-validates the heading label against its code
// attribute: one g-pair per level plus the heading's own pair, with the
// deepest g-pair's value ending in "_" and the segment value.
func (b *builder) checkHeadingCode(h *HeadingItem, n *markup.Node) error {
	if !n.HasCode() {
		return b.warn(h, "no code attribute on heading: [%s]", h.labelText)
	}
	if n.CodeErr != nil {
		return b.warn(h, "malformed code attribute on heading: %v", n.CodeErr)
	}

	depth := int(h.kind) + 1
	pairs := n.Code
	consistent := len(pairs) == depth+1
	for i := 0; consistent && i < depth; i++ {
		consistent = pairs[i].Key == segmentCodes[i]
	}
	if !consistent {
		if err := b.warn(h, "heading code does not match its segments: [%s][%s]", n.Attr("code"), h.labelText); err != nil {
			return err
		}
	}
	if len(pairs) < 2 {
		return nil
	}
	_, value, ok := strings.Cut(pairs[len(pairs)-2].Value, "_")
	if !ok || !strings.EqualFold(value, h.value) {
		return b.warn(h, "heading code does not match its segment label: [%s][%s]", n.Attr("code"), h.labelText)
	}
	return nil
}
