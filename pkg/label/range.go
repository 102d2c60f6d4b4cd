package label

type rangeKind int

const (
	rangeSingleton rangeKind = iota
	rangeBounded
	rangeUniversal
)

// Range is a set of labels: everything under one label, an inclusive
// interval of labels, or every label.
type Range struct {
	kind       rangeKind
	start, end SectionLabel
}

// SingletonRange matches l and every label beneath it.
func SingletonRange(l SectionLabel) Range {
	return Range{kind: rangeSingleton, start: l, end: l}
}

// BoundedRange matches labels between start and end inclusive, under the
// order of Compare.
func BoundedRange(start, end SectionLabel) Range {
	return Range{kind: rangeBounded, start: start, end: end}
}

// UniversalRange matches every label.
func UniversalRange() Range {
	return Range{kind: rangeUniversal}
}

// Contains reports definite membership. The candidate is truncated to the
// length of each bound before comparing, so 4(2)(a) lies in [4(1), 4(3)].
func (r Range) Contains(l SectionLabel) bool {
	switch r.kind {
	case rangeUniversal:
		return true
	case rangeSingleton:
		return r.start.IsSuperOf(l)
	}
	return Compare(l.Slice(0, r.start.Len()), r.start) >= 0 &&
		Compare(l.Slice(0, r.end.Len()), r.end) <= 0
}

// PossiblyContains is the weaker test for a label that is still being
// extended: both sides are truncated to the shorter length, so it only rules
// out definite non-membership.
func (r Range) PossiblyContains(l SectionLabel) bool {
	switch r.kind {
	case rangeUniversal:
		return true
	case rangeSingleton:
		n := min(l.Len(), r.start.Len())
		return l.Slice(0, n).Equal(r.start.Slice(0, n))
	}
	ns := min(l.Len(), r.start.Len())
	ne := min(l.Len(), r.end.Len())
	return Compare(l.Slice(0, ns), r.start.Slice(0, ns)) >= 0 &&
		Compare(l.Slice(0, ne), r.end.Slice(0, ne)) <= 0
}

// String describes the range for diagnostics.
func (r Range) String() string {
	switch r.kind {
	case rangeUniversal:
		return "<all>"
	case rangeSingleton:
		return r.start.IDString()
	}
	return r.start.IDString() + " to " + r.end.IDString()
}

// RangeSet is a union of ranges.
type RangeSet []Range

// Contains reports whether any member range contains l.
func (s RangeSet) Contains(l SectionLabel) bool {
	for _, r := range s {
		if r.Contains(l) {
			return true
		}
	}
	return false
}

// PossiblyContains reports whether any member range possibly contains l.
func (s RangeSet) PossiblyContains(l SectionLabel) bool {
	for _, r := range s {
		if r.PossiblyContains(l) {
			return true
		}
	}
	return false
}
