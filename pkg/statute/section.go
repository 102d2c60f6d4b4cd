package statute

import (
	"fmt"
	"strings"

	"github.com/coolbeans/statwiki/pkg/label"
	"github.com/coolbeans/statwiki/pkg/markup"
	"github.com/coolbeans/statwiki/pkg/render"
)

// SectionItem is a section, subsection, paragraph or any deeper provision.
type SectionItem struct {
	BaseItem

	label label.SectionLabel

	marginalNote      string
	hasMarginalNote   bool
	labelText         string // e.g. "(ii.1)", as printed
	hasLabel          bool
	historicalNote    string
	hasHistoricalNote bool
	repealed          bool
}

// Label returns the provision's address.
func (s *SectionItem) Label() label.SectionLabel { return s.label }

// SectionLabel returns the provision's own address.
func (s *SectionItem) SectionLabel() label.SectionLabel { return s.label }

// LabelText returns the label as printed in the source, if any.
func (s *SectionItem) LabelText() (string, bool) { return s.labelText, s.hasLabel }

// MarginalNote returns the marginal note, if any.
func (s *SectionItem) MarginalNote() (string, bool) { return s.marginalNote, s.hasMarginalNote }

// HistoricalNote returns the historical note, if any.
func (s *SectionItem) HistoricalNote() (string, bool) { return s.historicalNote, s.hasHistoricalNote }

// Repealed reports whether the provision carries a repealed marker.
func (s *SectionItem) Repealed() bool { return s.repealed }

// IndentLevel is the indent level of the provision's address.
func (s *SectionItem) IndentLevel() int {
	if s.label.IsEmpty() {
		return s.BaseItem.IndentLevel()
	}
	return s.label.IndentLevel()
}

// Location reports the provision's address.
func (s *SectionItem) Location() (string, bool) {
	if s.label.IsEmpty() {
		return "", false
	}
	return s.label.IDString(), true
}

// Paragraphs renders the marginal note, the anchored label, the children
// and the historical note.
func (s *SectionItem) Paragraphs(r render.Renderer) []Paragraph {
	return s.paragraphs(r, false)
}

func (s *SectionItem) paragraphs(r render.Renderer, skipLabel bool) []Paragraph {
	var ps []Paragraph
	needForce := true
	if s.hasMarginalNote {
		ps = append(ps, Paragraph{Text: r.Clean(s.marginalNote), MarginalNote: true})
		needForce = false
	}
	if !skipLabel && s.hasLabel {
		text := r.Bold(r.Clean(s.labelText))
		// Formula definitions share the enclosing provision's anchor.
		if s.label.IsEmpty() || s.label.Last().Kind() != label.KindFormulaDefinition {
			text = r.Anchor(s.label.IDString()) + text
		}
		ps = append(ps, Paragraph{
			Text:              text,
			IndentLevel:       s.IndentLevel(),
			ForceNewParagraph: true,
			SoftSpace:         true,
		})
		needForce = false
	}
	ps = append(ps, s.childParagraphs(r)...)
	if s.hasHistoricalNote {
		ps = append(ps, Paragraph{
			Text:              r.Clean(s.historicalNote),
			IndentLevel:       s.IndentLevel(),
			ForceNewParagraph: true,
		})
	}
	if needForce && len(ps) > 0 {
		ps[0].ForceNewParagraph = true
	}
	return ps
}

// RenderedText returns the merged, rendered text of the provision. The top
// label is left out when skipLabel is set, as on a page named after it.
func (s *SectionItem) RenderedText(r render.Renderer, skipLabel bool) string {
	return RenderParagraphs(r, s.paragraphs(r, skipLabel))
}

func (b *builder) section(parent Item, n *markup.Node) (*SectionItem, error) {
	s := &SectionItem{BaseItem: BaseItem{parent: parent, source: n}}
	rest, err := b.sectionMetadata(s, n)
	if err != nil {
		return nil, err
	}
	if err := b.finalizeLabel(s, s, n); err != nil {
		return nil, err
	}
	if err := b.children(s, rest); err != nil {
		return nil, err
	}
	return s, nil
}

// sectionMetadata collects the marginal note, label, historical note and
// repealed marker and returns the remaining children.
func (b *builder) sectionMetadata(s *SectionItem, n *markup.Node) ([]*markup.Node, error) {
	var rest []*markup.Node
	for _, c := range n.Children {
		if c.IsText() {
			if c.RawText() != "" {
				rest = append(rest, c)
			}
			continue
		}
		switch c.Tag {
		case "marginalnote":
			text := strings.TrimSpace(c.RawText())
			if s.hasMarginalNote {
				if err := b.warn(s.locator(), "multiple marginal notes: [%s][%s]", s.marginalNote, text); err != nil {
					return nil, err
				}
			}
			s.marginalNote, s.hasMarginalNote = text, true
		case "label", "formulaterm":
			text := strings.TrimSpace(c.RawText())
			if s.hasLabel {
				if err := b.warn(s.locator(), "%s encountered after another label: [%s][%s]", c.Tag, s.labelText, text); err != nil {
					return nil, err
				}
			}
			if len(rest) > 0 {
				if err := b.warn(s.locator(), "%s encountered after other content: [%s]", c.Tag, text); err != nil {
					return nil, err
				}
			}
			s.labelText, s.hasLabel = text, true
		case "historicalnote":
			if err := b.historicalNote(s, c); err != nil {
				return nil, err
			}
		case "repealed":
			s.repealed = true
			rest = append(rest, c)
		default:
			rest = append(rest, c)
		}
	}
	return rest, nil
}

func (b *builder) historicalNote(s *SectionItem, c *markup.Node) error {
	if s.hasHistoricalNote {
		if err := b.warn(s.locator(), "multiple historical notes"); err != nil {
			return err
		}
	}
	s.historicalNote, s.hasHistoricalNote = strings.TrimSpace(c.SpacedRawText()), true
	return nil
}

// locator is where metadata warnings are reported before the provision's
// own address is known.
func (s *SectionItem) locator() Item {
	if s.parent == nil {
		return s
	}
	return s.parent
}

// finalizeLabel computes the imputed address (the parent's address plus this
// provision's numbering) and checks it against the address declared in the
// code attribute. The declared address wins.
func (b *builder) finalizeLabel(s *SectionItem, self Item, n *markup.Node) error {
	kind, ok := label.KindForTag(n.Tag)
	if !ok {
		return fmt.Errorf("tag %q is not a section tag", n.Tag)
	}

	clean := ""
	if s.hasLabel {
		clean = strings.Trim(s.labelText, "().")
	}
	// Repealed ranges are labelled "3 to 5" or "(a) and (b)"; keep the first.
	if strings.Contains(clean, " to ") || strings.Contains(clean, " and ") {
		clean = strings.Trim(strings.Fields(clean)[0], "()")
	}
	imputed, err := s.BaseItem.SectionLabel().Append(kind, clean)
	if err != nil {
		return fmt.Errorf("failed to impute label for %s: %w", n, err)
	}

	declared, hasDeclared, err := b.declaredLabel(s, n)
	if err != nil {
		return err
	}
	if !hasDeclared {
		s.label = imputed
		return nil
	}
	s.label = declared
	if !declared.QuasiEqual(imputed) {
		return b.warn(self, "inconsistent labelling, declared [%s] imputed [%s]", declared.DisplayString(), imputed.DisplayString())
	}
	return nil
}

func (b *builder) declaredLabel(s *SectionItem, n *markup.Node) (label.SectionLabel, bool, error) {
	if !n.HasCode() {
		return label.SectionLabel{}, false, nil
	}
	if n.CodeErr != nil {
		return label.SectionLabel{}, false, b.warn(s.locator(), "error parsing section label: %v", n.CodeErr)
	}
	l, err := label.FromCode(n.Code)
	if err != nil {
		return label.SectionLabel{}, false, b.warn(s.locator(), "error parsing section label: %v", err)
	}
	if l.IsEmpty() {
		return label.SectionLabel{}, false, nil
	}
	return l, true, nil
}

// DefinitionItem is a definition within a definitions provision. Its
// address ends in a definition numbering carrying the defined term.
type DefinitionItem struct {
	SectionItem

	term  string
	terms []string
}

// Term returns the adopted defined term.
func (d *DefinitionItem) Term() string { return d.term }

// DefinedTerms lists every term defined by the definition's text.
func (d *DefinitionItem) DefinedTerms() []string { return append([]string(nil), d.terms...) }

// Paragraphs renders the definition's text, starting a new block.
func (d *DefinitionItem) Paragraphs(r render.Renderer) []Paragraph {
	ps := d.childParagraphs(r)
	if len(ps) > 0 {
		ps[0].ForceNewParagraph = true
	}
	return ps
}

func (b *builder) definition(parent Item, n *markup.Node) (*DefinitionItem, error) {
	d := &DefinitionItem{SectionItem: SectionItem{BaseItem: BaseItem{parent: parent, source: n}}}
	rest, err := b.definitionMetadata(d, n)
	if err != nil {
		return nil, err
	}
	if err := b.finalizeLabel(&d.SectionItem, d, n); err != nil {
		return nil, err
	}
	if err := b.children(d, rest); err != nil {
		return nil, err
	}

	for _, c := range d.children {
		Walk(c, func(item Item) bool {
			switch it := item.(type) {
			case *TextItem:
				d.terms = append(d.terms, it.DefinedTerms()...)
			case *DefinitionItem:
				return false
			}
			return true
		})
	}
	if err := b.reconcileTerm(d); err != nil {
		return nil, err
	}
	return d, nil
}

// definitionMetadata keeps only the English part of the marginal note;
// definitions carry no printed label.
func (b *builder) definitionMetadata(d *DefinitionItem, n *markup.Node) ([]*markup.Node, error) {
	var rest []*markup.Node
	for _, c := range n.Children {
		switch {
		case c.IsText():
			if c.RawText() != "" {
				rest = append(rest, c)
			}
		case c.Tag == "marginalnote":
			text, ok := c.EnglishMarginalText()
			if !ok {
				continue
			}
			if d.hasMarginalNote {
				if err := b.warn(d.locator(), "multiple marginal notes: [%s][%s]", d.marginalNote, text); err != nil {
					return nil, err
				}
			}
			d.marginalNote, d.hasMarginalNote = text, true
		case c.Tag == "historicalnote":
			if err := b.historicalNote(&d.SectionItem, c); err != nil {
				return nil, err
			}
		default:
			rest = append(rest, c)
		}
	}
	return rest, nil
}

// reconcileTerm compares the term carried by the address with the first term
// defined in the text, adopts one and resolves a pending address with it.
func (b *builder) reconcileTerm(d *DefinitionItem) error {
	labelTerm, hasDefinition := d.label.LastDefinitionTerm()
	textTerm := ""
	if len(d.terms) > 0 {
		textTerm = d.terms[0]
	}

	if !hasDefinition {
		if err := b.warn(d, "definition label does not end in a definition: %s", d.label.DisplayString()); err != nil {
			return err
		}
	} else if labelTerm == "" && !strings.Contains(strings.ToLower(PlainText(d, 100)), "repealed") {
		if err := b.warn(d, "empty definition"); err != nil {
			return err
		}
	}
	if labelTerm != "" && textTerm != "" && labelTerm != textTerm && !strings.HasPrefix(textTerm, labelTerm) {
		if err := b.warn(d, "defined term mismatch, label [%s] text [%s]", labelTerm, textTerm); err != nil {
			return err
		}
	}

	switch {
	case textTerm != "":
		d.term = textTerm
	default:
		d.term = labelTerm
	}
	if hasDefinition && labelTerm == "" && d.term != "" {
		resolved, err := d.label.ResolveDefinition(d.term)
		if err != nil {
			return err
		}
		d.label = resolved
	}
	return nil
}
