// Package decoration assembles the inline runs of a text block into one
// string plus an ordered, non-overlapping set of decorators (defined terms
// and cross-reference links), and renders the result.
package decoration

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// PieceKind identifies what a run of inline text represents.
type PieceKind int

const (
	PieceText PieceKind = iota
	PieceDefinedTerm
	PieceLink
)

// Piece is one inline run. For defined terms Text holds the bare term; the
// assembled text wraps it in double quotes.
type Piece struct {
	Kind     PieceKind
	Text     string
	External bool   // link to another instrument
	Link     string // link attribute of an external reference, if any
}

// RunList holds the pieces of one text block in document order. Neighbours
// are addressed by index, so spacing is derived without pointer links.
type RunList struct {
	pieces []Piece
}

// AddText appends a literal run.
func (l *RunList) AddText(text string) {
	l.pieces = append(l.pieces, Piece{Kind: PieceText, Text: text})
}

// AddDefinedTerm appends an occurrence of a defined term.
func (l *RunList) AddDefinedTerm(term string) {
	l.pieces = append(l.pieces, Piece{Kind: PieceDefinedTerm, Text: term})
}

// AddLink appends a cross-reference whose visible text is text.
func (l *RunList) AddLink(text string, external bool) {
	l.AddLinkTo(text, "", external)
}

// AddLinkTo is AddLink for a reference that names its target instrument.
func (l *RunList) AddLinkTo(text, link string, external bool) {
	l.pieces = append(l.pieces, Piece{Kind: PieceLink, Text: text, External: external, Link: link})
}

// Len returns the number of pieces.
func (l *RunList) Len() int { return len(l.pieces) }

// Piece returns the piece at index i.
func (l *RunList) Piece(i int) Piece { return l.pieces[i] }

func (l *RunList) isSpaced(i int) bool {
	return l.pieces[i].Kind != PieceText
}

func (l *RunList) unspacedText(i int) string {
	p := l.pieces[i]
	if p.Kind == PieceDefinedTerm {
		return `"` + p.Text + `"`
	}
	return p.Text
}

func isSpacingStart(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '('
}

// isAlnumStart reports whether piece i starts with a character that earns a
// soft space before it. Empty text takes the answer of the piece after it.
func (l *RunList) isAlnumStart(i int) bool {
	p := l.pieces[i]
	switch p.Kind {
	case PieceDefinedTerm:
		return true
	case PieceLink:
		return p.Text != "" && isSpacingStart(p.Text)
	}
	if p.Text == "" {
		return l.nextIsAlnumStart(i)
	}
	return isSpacingStart(p.Text)
}

func (l *RunList) nextIsAlnumStart(i int) bool {
	return i+1 < len(l.pieces) && l.isAlnumStart(i+1)
}

// eatsFollowingSpace reports whether piece i suppresses the initial space of
// the next piece. Empty text and empty links defer to their predecessor.
func (l *RunList) eatsFollowingSpace(i int) bool {
	p := l.pieces[i]
	if p.Kind == PieceDefinedTerm || p.Text != "" {
		return false
	}
	return l.previousEatsSpace(i)
}

// previousEatsSpace treats the position before the first piece as eating.
func (l *RunList) previousEatsSpace(i int) bool {
	if i == 0 {
		return true
	}
	return l.eatsFollowingSpace(i - 1)
}

// HasInitialSpace reports whether a space is synthesized before piece i.
func (l *RunList) HasInitialSpace(i int) bool {
	if i == 0 {
		return false
	}
	if l.HasTrailingSpace(i - 1) {
		return false
	}
	if l.previousEatsSpace(i) {
		return false
	}
	return l.isSpaced(i)
}

// HasTrailingSpace reports whether a space is synthesized after piece i.
func (l *RunList) HasTrailingSpace(i int) bool {
	if i == len(l.pieces)-1 {
		return false
	}
	if !l.nextIsAlnumStart(i) {
		return false
	}
	return l.isSpaced(i)
}

// Assemble concatenates the pieces with their synthesized spaces and records
// each decorated piece's decorator shifted to its position in the result.
func (l *RunList) Assemble() (*DecoratedText, error) {
	var b strings.Builder
	var decorators []Decorator
	for i, p := range l.pieces {
		if l.HasInitialSpace(i) {
			b.WriteByte(' ')
		}
		offset := b.Len()
		text := l.unspacedText(i)
		switch p.Kind {
		case PieceDefinedTerm:
			decorators = append(decorators, Decorator{
				Start: offset + 1,
				End:   offset + 1 + len(p.Text),
				Kind:  DecoratorDefinedTerm,
				Term:  p.Text,
			})
		case PieceLink:
			decorators = append(decorators, Decorator{
				Start:     offset,
				End:       offset + len(p.Text),
				Kind:      DecoratorLink,
				Reference: p.Text,
				External:  p.External,
				Link:      p.Link,
			})
		}
		b.WriteString(text)
		if l.HasTrailingSpace(i) {
			b.WriteByte(' ')
		}
	}

	// Colliding decorators are dropped; the rest are still recorded.
	dt := NewDecoratedText(b.String())
	var errs []error
	for _, d := range decorators {
		if err := dt.Add(d); err != nil {
			errs = append(errs, err)
		}
	}
	return dt, errors.Join(errs...)
}
