package label

import (
	"errors"
	"strings"
)

// ErrNoDefinition is returned when a definition operation is applied to a
// label that does not end in a definition.
var ErrNoDefinition = errors.New("label does not end in a definition")

// SectionLabel is an ordered, root-to-leaf sequence of Numberings identifying
// one provision. The zero value is the empty label. Every derivation returns
// a new SectionLabel; the receiver is never modified.
type SectionLabel struct {
	numberings []Numbering
}

// New builds a SectionLabel from the given numberings.
func New(numberings ...Numbering) SectionLabel {
	if len(numberings) == 0 {
		return SectionLabel{}
	}
	return SectionLabel{numberings: append([]Numbering(nil), numberings...)}
}

// Len returns the number of levels in the label.
func (l SectionLabel) Len() int { return len(l.numberings) }

// IsEmpty reports whether the label has no levels.
func (l SectionLabel) IsEmpty() bool { return len(l.numberings) == 0 }

// At returns the numbering at level i.
func (l SectionLabel) At(i int) Numbering { return l.numberings[i] }

// Last returns the deepest numbering. It panics on an empty label.
func (l SectionLabel) Last() Numbering { return l.numberings[len(l.numberings)-1] }

// Numberings returns a copy of the label's levels.
func (l SectionLabel) Numberings() []Numbering {
	return append([]Numbering(nil), l.numberings...)
}

// Concat returns a followed by b.
func Concat(a, b SectionLabel) SectionLabel {
	if a.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return a
	}
	out := make([]Numbering, 0, len(a.numberings)+len(b.numberings))
	out = append(out, a.numberings...)
	out = append(out, b.numberings...)
	return SectionLabel{numberings: out}
}

// Append returns the label extended by one numbering of the given kind.
func (l SectionLabel) Append(kind Kind, text string) (SectionLabel, error) {
	n, err := NewNumbering(kind, text)
	if err != nil {
		return SectionLabel{}, err
	}
	return Concat(l, New(n)), nil
}

// Slice returns the levels in [start, end). Bounds are clamped to the label.
func (l SectionLabel) Slice(start, end int) SectionLabel {
	if start < 0 {
		start = 0
	}
	if end > len(l.numberings) {
		end = len(l.numberings)
	}
	if start >= end {
		return SectionLabel{}
	}
	return SectionLabel{numberings: l.numberings[start:end:end]}
}

// Top returns the label's first level only.
func (l SectionLabel) Top() SectionLabel { return l.Slice(0, 1) }

// Equal requires the same length and element-wise equal numberings.
func (l SectionLabel) Equal(o SectionLabel) bool {
	if len(l.numberings) != len(o.numberings) {
		return false
	}
	for i := range l.numberings {
		if !l.numberings[i].Equal(o.numberings[i]) {
			return false
		}
	}
	return true
}

// QuasiEqual requires the same length, equal numberings up to the last, and
// quasi-equal last numberings. It validates an address computed from document
// nesting against a declared one before the defined term is known.
func (l SectionLabel) QuasiEqual(o SectionLabel) bool {
	if len(l.numberings) != len(o.numberings) {
		return false
	}
	if len(l.numberings) == 0 {
		return true
	}
	last := len(l.numberings) - 1
	if !l.numberings[last].QuasiEqual(o.numberings[last]) {
		return false
	}
	return l.Slice(0, last).Equal(o.Slice(0, last))
}

// IsSuperOf reports whether l is a prefix of o (including l == o).
func (l SectionLabel) IsSuperOf(o SectionLabel) bool {
	if len(l.numberings) > len(o.numberings) {
		return false
	}
	for i := range l.numberings {
		if !l.numberings[i].Equal(o.numberings[i]) {
			return false
		}
	}
	return true
}

// IndentLevel sums the indent contributions of every level.
func (l SectionLabel) IndentLevel() int {
	level := 0
	for _, n := range l.numberings {
		level += n.IndentIncrement()
	}
	return level
}

// IDString is the canonical key used for cross-reference resolution,
// e.g. "4(2)(a)".
func (l SectionLabel) IDString() string {
	var b strings.Builder
	for _, n := range l.numberings {
		b.WriteString(n.IDString())
	}
	return b.String()
}

// DisplayString is a debugging form that shows every level's kind.
func (l SectionLabel) DisplayString() string {
	var b strings.Builder
	for _, n := range l.numberings {
		b.WriteString(n.DisplayString())
	}
	return b.String()
}

// String implements fmt.Stringer with the id string.
func (l SectionLabel) String() string { return l.IDString() }

// Key returns a comparable value that identifies the label exactly, suitable
// as a map key. Unlike IDString it keeps kinds distinct.
func (l SectionLabel) Key() string {
	var b strings.Builder
	for i, n := range l.numberings {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(n.kind.Code())
		b.WriteByte('=')
		b.WriteString(n.text)
	}
	return b.String()
}

// SubLabels returns every non-empty prefix of the label, longest first.
func (l SectionLabel) SubLabels() []SectionLabel {
	subs := make([]SectionLabel, 0, len(l.numberings))
	for n := len(l.numberings); n > 0; n-- {
		subs = append(subs, l.Slice(0, n))
	}
	return subs
}

// HasLastDefinition reports whether the deepest level is a definition.
func (l SectionLabel) HasLastDefinition() bool {
	return len(l.numberings) > 0 && l.Last().kind == KindDefinition
}

// HasLastEmptyDefinition reports whether the deepest level is a definition
// with no term.
func (l SectionLabel) HasLastEmptyDefinition() bool {
	return l.HasLastDefinition() && l.Last().text == ""
}

// LastDefinitionTerm returns the term of the trailing definition, if any.
func (l SectionLabel) LastDefinitionTerm() (string, bool) {
	if !l.HasLastDefinition() {
		return "", false
	}
	return l.Last().text, true
}

// ResolveDefinition returns a copy of the label whose trailing definition
// carries term.
func (l SectionLabel) ResolveDefinition(term string) (SectionLabel, error) {
	if !l.HasLastDefinition() {
		return SectionLabel{}, ErrNoDefinition
	}
	out := l.Numberings()
	out[len(out)-1] = Numbering{kind: KindDefinition, text: term}
	return SectionLabel{numberings: out}, nil
}

// TruncateTo returns the label cut after its first numbering of the given kind.
func (l SectionLabel) TruncateTo(kind Kind) (SectionLabel, bool) {
	for i, n := range l.numberings {
		if n.kind == kind {
			return l.Slice(0, i+1), true
		}
	}
	return SectionLabel{}, false
}
