package label

// DivisionData records headings and section membership while walking a
// statute in document order.
type DivisionData struct {
	current    Division
	order      []Division
	seen       map[string]bool
	titles     map[string]string
	containing map[string]Division
	contents   map[string][]SectionLabel
}

// NewDivisionData returns an empty tracker positioned outside any part.
func NewDivisionData() *DivisionData {
	return &DivisionData{
		seen:       make(map[string]bool),
		titles:     make(map[string]string),
		containing: make(map[string]Division),
		contents:   make(map[string][]SectionLabel),
	}
}

// Current returns the division sections are currently added to.
func (dd *DivisionData) Current() Division { return dd.current }

// AddNumbering advances to the division introduced by a heading. The
// repeated result is true when that division was already seen; the tracker
// still moves to it.
func (dd *DivisionData) AddNumbering(kind SegmentKind, value, title string) (div Division, repeated bool, err error) {
	div, err = dd.current.Advance(kind, value)
	if err != nil {
		return Division{}, false, err
	}
	key := div.Key()
	repeated = dd.seen[key]
	dd.seen[key] = true
	if !repeated {
		dd.order = append(dd.order, div)
	}
	if title != "" {
		dd.titles[key] = title
	}
	dd.current = div
	return div, repeated, nil
}

// AddSection records a top-level section under the current division and
// every enclosing one.
func (dd *DivisionData) AddSection(l SectionLabel) {
	dd.containing[l.Key()] = dd.current
	if dd.current.IsZero() {
		dd.contents[""] = append(dd.contents[""], l)
		return
	}
	for _, proj := range dd.current.Projections() {
		dd.contents[proj.Key()] = append(dd.contents[proj.Key()], l)
	}
}

// Containing returns the narrowest division holding the label's top-level
// section.
func (dd *DivisionData) Containing(l SectionLabel) (Division, bool) {
	d, ok := dd.containing[l.Top().Key()]
	return d, ok
}

// Contents lists the top-level sections within div, in document order. The
// zero Division lists sections outside any part.
func (dd *DivisionData) Contents(div Division) []SectionLabel {
	return append([]SectionLabel(nil), dd.contents[div.Key()]...)
}

// Title returns the heading title recorded for div.
func (dd *DivisionData) Title(div Division) string { return dd.titles[div.Key()] }

// Divisions returns every division seen, in document order.
func (dd *DivisionData) Divisions() []Division {
	return append([]Division(nil), dd.order...)
}
