package label

import (
	"errors"
	"fmt"
	"strings"
)

// MaxDivisionDepth is the number of segmentation levels: part, division,
// subdivision.
const MaxDivisionDepth = 3

// ErrDivisionTooDeep is returned when a Division would exceed MaxDivisionDepth.
var ErrDivisionTooDeep = errors.New("division has more than three levels")

// ErrDivisionOrder is returned when a heading cannot follow the current
// division, e.g. a subdivision outside any division.
var ErrDivisionOrder = errors.New("heading out of order")

// SegmentKind is one level of the part/division/subdivision axis.
type SegmentKind int

const (
	SegmentPart SegmentKind = iota
	SegmentDivision
	SegmentSubdivision
)

var segmentNames = [...]string{"part", "division", "subdivision"}
var segmentTitles = [...]string{"Part", "Division", "Subdivision"}

// String returns the lower-case segment name.
func (k SegmentKind) String() string {
	if k < SegmentPart || k > SegmentSubdivision {
		return fmt.Sprintf("segment(%d)", int(k))
	}
	return segmentNames[k]
}

// ParseSegmentKind resolves "part", "division" or "subdivision", ignoring case.
func ParseSegmentKind(s string) (SegmentKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range segmentNames {
		if name == s {
			return SegmentKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown segment kind %q", s)
}

// Division is a position on the part/division/subdivision axis, recorded as
// up to three ordered components. Shorter divisions are prefixes of longer ones.
type Division struct {
	levels []string
}

// NewDivision builds a Division from its components, coarsest first.
func NewDivision(components ...string) (Division, error) {
	if len(components) > MaxDivisionDepth {
		return Division{}, ErrDivisionTooDeep
	}
	if len(components) == 0 {
		return Division{}, nil
	}
	return Division{levels: append([]string(nil), components...)}, nil
}

// Len returns the number of levels.
func (d Division) Len() int { return len(d.levels) }

// IsZero reports whether d lies outside any part.
func (d Division) IsZero() bool { return len(d.levels) == 0 }

// Components returns a copy of the division's levels.
func (d Division) Components() []string { return append([]string(nil), d.levels...) }

// Kind returns the segment kind of the deepest level.
func (d Division) Kind() SegmentKind { return SegmentKind(len(d.levels) - 1) }

// Value returns the deepest level's component.
func (d Division) Value() string {
	if len(d.levels) == 0 {
		return ""
	}
	return d.levels[len(d.levels)-1]
}

// Equal reports component-wise equality.
func (d Division) Equal(o Division) bool {
	if len(d.levels) != len(o.levels) {
		return false
	}
	for i := range d.levels {
		if d.levels[i] != o.levels[i] {
			return false
		}
	}
	return true
}

// IsSubdivisionOf reports whether o is a prefix of d (including d == o).
func (d Division) IsSubdivisionOf(o Division) bool {
	if len(o.levels) > len(d.levels) {
		return false
	}
	for i := range o.levels {
		if d.levels[i] != o.levels[i] {
			return false
		}
	}
	return true
}

// Projection returns the first n levels.
func (d Division) Projection(n int) Division {
	if n > len(d.levels) {
		n = len(d.levels)
	}
	if n <= 0 {
		return Division{}
	}
	return Division{levels: d.levels[:n:n]}
}

// Projections returns part-only, part+division and full projections, as far
// as d reaches.
func (d Division) Projections() []Division {
	out := make([]Division, 0, len(d.levels))
	for n := 1; n <= len(d.levels); n++ {
		out = append(out, d.Projection(n))
	}
	return out
}

// Advance returns the division that follows d when a heading of the given
// kind and value is encountered.
func (d Division) Advance(kind SegmentKind, value string) (Division, error) {
	depth := int(kind)
	if depth < 0 || depth >= MaxDivisionDepth {
		return Division{}, fmt.Errorf("%w: %s", ErrDivisionTooDeep, kind)
	}
	if len(d.levels) < depth {
		return Division{}, fmt.Errorf("%w: %s %s under %q", ErrDivisionOrder, kind, value, d.String())
	}
	levels := make([]string, 0, depth+1)
	levels = append(levels, d.levels[:depth]...)
	levels = append(levels, value)
	return Division{levels: levels}, nil
}

// Key returns a comparable map key for the division.
func (d Division) Key() string { return strings.Join(d.levels, "\x1f") }

// String renders the division for headings, e.g. "Part 1, Division B".
func (d Division) String() string {
	parts := make([]string, len(d.levels))
	for i, v := range d.levels {
		parts[i] = segmentTitles[i] + " " + v
	}
	return strings.Join(parts, ", ")
}

// Title renders only the deepest level, e.g. "Division B".
func (d Division) Title() string {
	if len(d.levels) == 0 {
		return ""
	}
	return segmentTitles[len(d.levels)-1] + " " + d.Value()
}

// ChangedLevels returns the projections of next that must be announced when
// moving from prev to next in document order: the coarsest level at which
// the two differ (or at which next is newly present) and every finer level of
// next. Leaving a deeper division for an enclosing one re-announces next's
// deepest level. Equal divisions need no announcement.
func ChangedLevels(prev, next Division) []Division {
	if prev.Equal(next) {
		return nil
	}
	k := 0
	for k < len(prev.levels) && k < len(next.levels) && prev.levels[k] == next.levels[k] {
		k++
	}
	if k >= len(next.levels) {
		if next.IsZero() {
			return nil
		}
		return []Division{next}
	}
	out := make([]Division, 0, len(next.levels)-k)
	for n := k + 1; n <= len(next.levels); n++ {
		out = append(out, next.Projection(n))
	}
	return out
}
