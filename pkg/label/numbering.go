package label

import (
	"fmt"
	"strings"
)

// Numbering is one typed level of a provision address.
//
// A Numbering is immutable. A definition may be created with an empty
// (pending) term and resolved later through SectionLabel.ResolveDefinition,
// which produces a new value rather than changing this one.
type Numbering struct {
	kind Kind
	text string
}

// NewNumbering builds a Numbering of the given kind. Section labels have
// trailing periods stripped, since statutes cite "4(2)" rather than "4.(2)".
func NewNumbering(kind Kind, text string) (Numbering, error) {
	if !kind.Valid() {
		return Numbering{}, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
	if kind == KindSection {
		text = strings.TrimRight(text, ".")
	}
	return Numbering{kind: kind, text: text}, nil
}

// MustNumbering is like NewNumbering but panics on an invalid kind.
func MustNumbering(kind Kind, text string) Numbering {
	n, err := NewNumbering(kind, text)
	if err != nil {
		panic(err)
	}
	return n
}

// Kind returns the numbering's kind.
func (n Numbering) Kind() Kind { return n.kind }

// Text returns the raw label text (the defined term for definitions).
func (n Numbering) Text() string { return n.text }

// IsPending reports whether n is a definition whose term is not yet known.
func (n Numbering) IsPending() bool {
	return n.kind == KindDefinition && n.text == ""
}

// Equal requires the same kind and the same raw text.
func (n Numbering) Equal(o Numbering) bool {
	return n.kind == o.kind && n.text == o.text
}

// QuasiEqual is Equal, except that any two definitions match regardless of term.
func (n Numbering) QuasiEqual(o Numbering) bool {
	if n.kind == KindDefinition && o.kind == KindDefinition {
		return true
	}
	return n.Equal(o)
}

// IDString returns the identifier fragment used to build cross-reference keys.
func (n Numbering) IDString() string {
	switch n.kind {
	case KindSection:
		return n.text
	case KindDefinition:
		return "[" + n.text + "]"
	case KindFormulaDefinition:
		return ""
	default:
		return "(" + n.text + ")"
	}
}

// IndentIncrement is the visual nesting this level contributes.
func (n Numbering) IndentIncrement() int {
	switch n.kind {
	case KindSection, KindDefinition, KindFormulaDefinition:
		return 0
	default:
		return 1
	}
}

// DisplayString is a debugging form that keeps the kind visible.
func (n Numbering) DisplayString() string {
	return "[" + n.kind.String() + " : <" + n.text + ">]"
}
