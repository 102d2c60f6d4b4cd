package statute

import (
	"github.com/coolbeans/statwiki/pkg/diag"
	"github.com/coolbeans/statwiki/pkg/label"
)

// Index maps labels to the provisions they address. It is built once after
// construction and is read-only afterwards. Read-as substitute text is not
// indexed.
type Index struct {
	labels []label.SectionLabel
	items  []Item
	byKey  map[string]int // label key -> position
	byID   map[string]int // id string -> position
	ends   map[string]int // label key -> last position within that label
}

func buildIndex(s *Statute, reporter *diag.Reporter) (*Index, error) {
	ix := &Index{
		byKey: make(map[string]int),
		byID:  make(map[string]int),
		ends:  make(map[string]int),
	}
	var err error
	s.Walk(func(item Item) bool {
		if err != nil {
			return false
		}
		switch it := item.(type) {
		case *SectionItem:
			err = ix.add(it, it.Label(), reporter)
		case *DefinitionItem:
			err = ix.add(it, it.Label(), reporter)
		case *ReadAsItem:
			return false
		case *FormulaItem, *TextItem:
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return ix, nil
}

func (ix *Index) add(item Item, l label.SectionLabel, reporter *diag.Reporter) error {
	pos := len(ix.labels)
	key := l.Key()
	if _, dup := ix.byKey[key]; dup {
		// Repealed definitions commonly share an empty term.
		if !l.HasLastEmptyDefinition() {
			if err := reporter.Warn(item, "duplicate section label: %s", l.DisplayString()); err != nil {
				return err
			}
		}
	} else {
		ix.byKey[key] = pos
	}

	// Formula definitions share the id string of their enclosing provision.
	if !l.IsEmpty() && l.Last().Kind() != label.KindFormulaDefinition && !l.HasLastEmptyDefinition() {
		id := l.IDString()
		if prev, dup := ix.byID[id]; dup {
			if err := reporter.Warn(item, "duplicate id string %q, also %s", id, ix.labels[prev].DisplayString()); err != nil {
				return err
			}
		} else {
			ix.byID[id] = pos
		}
	}

	ix.labels = append(ix.labels, l)
	ix.items = append(ix.items, item)
	for _, sub := range l.SubLabels() {
		ix.ends[sub.Key()] = pos
	}
	return nil
}

// Len returns the number of indexed provisions.
func (ix *Index) Len() int { return len(ix.labels) }

// Labels returns every indexed label in document order.
func (ix *Index) Labels() []label.SectionLabel {
	return append([]label.SectionLabel(nil), ix.labels...)
}

// Lookup returns the provision with exactly the label l.
func (ix *Index) Lookup(l label.SectionLabel) (Item, bool) {
	pos, ok := ix.byKey[l.Key()]
	if !ok {
		return nil, false
	}
	return ix.items[pos], true
}

// LookupID returns the provision whose id string is id.
func (ix *Index) LookupID(id string) (label.SectionLabel, Item, bool) {
	pos, ok := ix.byID[id]
	if !ok {
		return label.SectionLabel{}, nil, false
	}
	return ix.labels[pos], ix.items[pos], true
}

// LookupNear resolves a reference made from within near. The reference is
// tried below each enclosing label of near, innermost first, then on its
// own: "(3)" cited from 4(2)(a) finds 4(2)(a)(3), then 4(2)(3), then 4(3).
func (ix *Index) LookupNear(ref string, near label.SectionLabel) (label.SectionLabel, Item, bool) {
	for _, sub := range near.SubLabels() {
		if l, item, ok := ix.LookupID(sub.IDString() + ref); ok {
			return l, item, true
		}
	}
	return ix.LookupID(ref)
}

// Position returns the document-order position of l.
func (ix *Index) Position(l label.SectionLabel) (int, bool) {
	pos, ok := ix.byKey[l.Key()]
	return pos, ok
}

// Span returns the positions of the first and last provisions within l.
func (ix *Index) Span(l label.SectionLabel) (start, end int, ok bool) {
	start, ok = ix.byKey[l.Key()]
	if !ok {
		return 0, 0, false
	}
	return start, ix.ends[l.Key()], true
}

// Within returns the labels of every provision in the range, in document
// order.
func (ix *Index) Within(r label.Range) []label.SectionLabel {
	var out []label.SectionLabel
	for _, l := range ix.labels {
		if r.Contains(l) {
			out = append(out, l)
		}
	}
	return out
}
