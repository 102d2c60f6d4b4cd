package decoration

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/coolbeans/statwiki/pkg/render"
)

var (
	// ErrDecoratorCollision is returned when a decorator overlaps one already
	// recorded.
	ErrDecoratorCollision = errors.New("decorator collision")

	// ErrDecoratorBounds is returned when a decorator lies outside the text.
	ErrDecoratorBounds = errors.New("decorator outside text")
)

// DecoratorKind identifies what a decorator renders.
type DecoratorKind int

const (
	DecoratorDefinedTerm DecoratorKind = iota
	DecoratorLink
)

// Target is the resolved destination of a link: a page and an anchor on it.
type Target struct {
	Statute string
	Page    string
	Anchor  string
}

// Decorator overlays the half-open byte interval [Start, End) of a text.
type Decorator struct {
	Start, End int
	Kind       DecoratorKind
	Term       string // defined term
	Reference  string // link text as written
	External   bool   // link to another instrument
	Link       string // target instrument named by the source, if any
	Target     *Target
}

// Overlaps reports whether the two intervals share any position.
func (d Decorator) Overlaps(o Decorator) bool {
	return d.Start < o.End && o.Start < d.End
}

// DecoratedText is assembled text with its decorators in ascending order.
type DecoratedText struct {
	text       string
	decorators []Decorator
}

// NewDecoratedText wraps text with no decorators.
func NewDecoratedText(text string) *DecoratedText {
	return &DecoratedText{text: text}
}

// Text returns the undecorated text.
func (dt *DecoratedText) Text() string { return dt.text }

// Decorators returns a copy of the decorators in start order.
func (dt *DecoratedText) Decorators() []Decorator {
	return append([]Decorator(nil), dt.decorators...)
}

// Segment returns the text covered by d.
func (dt *DecoratedText) Segment(d Decorator) string { return dt.text[d.Start:d.End] }

// Add inserts d in start order. An overlapping decorator is rejected with
// ErrDecoratorCollision and the overlay is left unchanged. Zero-length
// decorators are ignored.
func (dt *DecoratedText) Add(d Decorator) error {
	if d.Start < 0 || d.End > len(dt.text) || d.Start > d.End {
		return fmt.Errorf("%w: [%d, %d) in %d bytes", ErrDecoratorBounds, d.Start, d.End, len(dt.text))
	}
	if d.Start == d.End {
		return nil
	}
	at := sort.Search(len(dt.decorators), func(i int) bool {
		return dt.decorators[i].Start >= d.Start
	})
	if at > 0 && dt.decorators[at-1].Overlaps(d) {
		return dt.collision(dt.decorators[at-1], d)
	}
	if at < len(dt.decorators) && dt.decorators[at].Overlaps(d) {
		return dt.collision(dt.decorators[at], d)
	}
	dt.decorators = append(dt.decorators, Decorator{})
	copy(dt.decorators[at+1:], dt.decorators[at:])
	dt.decorators[at] = d
	return nil
}

func (dt *DecoratedText) collision(old, d Decorator) error {
	return fmt.Errorf("%w, old:[%s], new:[%s]", ErrDecoratorCollision, dt.Segment(old), dt.Segment(d))
}

// DefinedTerms lists the terms of defined-term decorators in text order.
func (dt *DecoratedText) DefinedTerms() []string {
	var terms []string
	for _, d := range dt.decorators {
		if d.Kind == DecoratorDefinedTerm {
			terms = append(terms, d.Term)
		}
	}
	return terms
}

// ResolveLinks asks resolve for a target for every unresolved link and
// returns how many were resolved.
func (dt *DecoratedText) ResolveLinks(resolve func(Decorator) (Target, bool)) int {
	resolved := 0
	for i := range dt.decorators {
		d := &dt.decorators[i]
		if d.Kind != DecoratorLink || d.Target != nil {
			continue
		}
		if t, ok := resolve(*d); ok {
			d.Target = &t
			resolved++
		}
	}
	return resolved
}

// Render walks the overlay: plain stretches go through Clean, defined terms
// are bolded (or linked once a target is known) and links render as
// hyperlinks, or plain text while unresolved.
func (dt *DecoratedText) Render(r render.Renderer) string {
	var b strings.Builder
	cursor := 0
	for _, d := range dt.decorators {
		b.WriteString(r.Clean(dt.text[cursor:d.Start]))
		segment := r.Clean(dt.Segment(d))
		switch {
		case d.Target != nil:
			b.WriteString(r.Link(d.Target.Page, d.Target.Anchor, segment))
		case d.Kind == DecoratorDefinedTerm:
			b.WriteString(r.Bold(segment))
		default:
			b.WriteString(segment)
		}
		cursor = d.End
	}
	b.WriteString(r.Clean(dt.text[cursor:]))
	return b.String()
}
