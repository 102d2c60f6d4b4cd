package statute

import (
	"strings"

	"github.com/coolbeans/statwiki/pkg/diag"
	"github.com/coolbeans/statwiki/pkg/markup"
)

// builder constructs items in a single top-down pass. Every warning goes
// through the reporter; a non-nil error from it aborts the build.
type builder struct {
	reporter *diag.Reporter
}

func (b *builder) warn(loc diag.Locator, format string, args ...any) error {
	return b.reporter.Warn(loc, format, args...)
}

// children builds an item for every node and appends it to parent.
// Definitions are matched before the generic section tags so they receive
// definition handling.
func (b *builder) children(parent Item, nodes []*markup.Node) error {
	base := parent.base()
	for _, n := range nodes {
		child, err := b.child(parent, n)
		if err != nil {
			return err
		}
		if child != nil {
			base.children = append(base.children, child)
		}
	}
	return nil
}

func (b *builder) child(parent Item, n *markup.Node) (Item, error) {
	if n.IsText() {
		if text := strings.TrimSpace(n.Text); text != "" {
			return nil, b.warn(parent, "text appearing directly in a section: [%s]", text)
		}
		return nil, nil
	}

	switch {
	case n.Tag == "definition":
		return b.definition(parent, n)
	case isSectionTag(n.Tag):
		return b.section(parent, n)
	case n.Tag == "formulagroup":
		return b.formula(parent, n)
	case n.Tag == "provision":
		return b.text(parent, n, true)
	case n.Tag == "readastext":
		return b.readAs(parent, n)
	case textTags[n.Tag]:
		return b.text(parent, n, false)
	case n.Tag == "a":
		if text := strings.ToLower(strings.TrimSpace(n.RawText())); text != previousVersion {
			return nil, b.warn(parent, "unknown <a> tag: [%s]", text)
		}
		return nil, nil
	default:
		return nil, b.warn(parent, "unknown tag: %s", n)
	}
}
