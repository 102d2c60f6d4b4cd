package statute

import (
	"strings"

	"github.com/coolbeans/statwiki/pkg/decoration"
	"github.com/coolbeans/statwiki/pkg/label"
)

// Pinpoint locates a provision: the statute, the page holding it and the
// anchor within that page.
type Pinpoint struct {
	Statute string
	Label   label.SectionLabel
	Page    string
	Anchor  string
}

// Target converts the pinpoint into a link target.
func (p Pinpoint) Target() decoration.Target {
	return decoration.Target{Statute: p.Statute, Page: p.Page, Anchor: p.Anchor}
}

// LinkResolver resolves references to other instruments.
type LinkResolver interface {
	ResolveLink(d decoration.Decorator) (decoration.Target, bool)
}

// referenceWords are the leading words stripped from an internal reference
// before it is looked up: "paragraph (2)(a)" is looked up as "(2)(a)".
var referenceWords = []string{
	"sections", "section",
	"subsections", "subsection",
	"paragraphs", "paragraph",
	"subparagraphs", "subparagraph",
	"clauses", "clause",
	"subclauses", "subclause",
}

// normalizeReference reduces link text to an id string fragment.
func normalizeReference(ref string) string {
	ref = strings.TrimSpace(ref)
	lower := strings.ToLower(ref)
	for _, w := range referenceWords {
		if strings.HasPrefix(lower, w) {
			ref = ref[len(w):]
			break
		}
	}
	return strings.Join(strings.Fields(ref), "")
}

// ResolveLinks sets targets on the statute's link decorators. Internal
// references are looked up in the index relative to the provision they
// occur in; external ones go to external, which may be nil. It returns how
// many links were and were not resolved.
func (s *Statute) ResolveLinks(external LinkResolver) (resolved, unresolved int) {
	s.Walk(func(item Item) bool {
		t, ok := item.(*TextItem)
		if !ok {
			return true
		}
		near := t.SectionLabel()
		resolved += t.Decorated().ResolveLinks(func(d decoration.Decorator) (decoration.Target, bool) {
			if d.External {
				if external == nil {
					return decoration.Target{}, false
				}
				return external.ResolveLink(d)
			}
			ref := normalizeReference(d.Reference)
			if ref == "" {
				return decoration.Target{}, false
			}
			l, _, ok := s.index.LookupNear(ref, near)
			if !ok {
				return decoration.Target{}, false
			}
			return s.Pinpoint(l).Target(), true
		})
		for _, d := range t.Decorated().Decorators() {
			if d.Kind == decoration.DecoratorLink && d.Target == nil {
				unresolved++
			}
		}
		return true
	})
	return resolved, unresolved
}

// Reference is a cross-reference together with the provision it occurs in.
type Reference struct {
	From      label.SectionLabel
	Decorator decoration.Decorator
}

// References lists every cross-reference in document order.
func (s *Statute) References() []Reference {
	var out []Reference
	s.Walk(func(item Item) bool {
		if t, ok := item.(*TextItem); ok {
			for _, d := range t.Decorated().Decorators() {
				if d.Kind == decoration.DecoratorLink {
					out = append(out, Reference{From: t.SectionLabel(), Decorator: d})
				}
			}
		}
		return true
	})
	return out
}
