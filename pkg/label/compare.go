package label

import (
	"strconv"
	"strings"
	"unicode"
)

// Compare orders labels lexicographically by level. Levels are ordered by
// kind, then by label text in natural order: digit runs compare numerically
// and roman numerals of subparagraphs and subclauses compare by value. A
// label sorts before any label it is a strict prefix of.
func Compare(a, b SectionLabel) int {
	n := min(a.Len(), b.Len())
	for i := 0; i < n; i++ {
		if c := compareNumbering(a.At(i), b.At(i)); c != 0 {
			return c
		}
	}
	switch {
	case a.Len() < b.Len():
		return -1
	case a.Len() > b.Len():
		return 1
	}
	return 0
}

func compareNumbering(a, b Numbering) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	roman := a.kind == KindSubparagraph || a.kind == KindSubclause
	return compareSegments(splitSegments(a.text, roman), splitSegments(b.text, roman))
}

type segment struct {
	numeric bool
	value   int
	text    string
}

// splitSegments breaks label text into alternating digit and non-digit runs.
// Punctuation separates runs and is dropped, so "2.1" yields [2 1].
func splitSegments(text string, roman bool) []segment {
	var segs []segment
	runes := []rune(strings.ToLower(text))
	for i := 0; i < len(runes); {
		r := runes[i]
		j := i + 1
		switch {
		case unicode.IsDigit(r):
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
			v, err := strconv.Atoi(string(runes[i:j]))
			if err != nil {
				segs = append(segs, segment{text: string(runes[i:j])})
			} else {
				segs = append(segs, segment{numeric: true, value: v})
			}
		case unicode.IsLetter(r):
			for j < len(runes) && unicode.IsLetter(runes[j]) {
				j++
			}
			word := string(runes[i:j])
			if v, ok := romanValue(word); roman && ok {
				segs = append(segs, segment{numeric: true, value: v})
			} else {
				segs = append(segs, segment{text: word})
			}
		}
		i = j
	}
	return segs
}

func compareSegments(a, b []segment) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		x, y := a[i], b[i]
		switch {
		case x.numeric && y.numeric:
			if x.value != y.value {
				if x.value < y.value {
					return -1
				}
				return 1
			}
		case x.numeric:
			return -1
		case y.numeric:
			return 1
		default:
			if c := strings.Compare(x.text, y.text); c != 0 {
				return c
			}
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

var romanDigits = map[rune]int{'i': 1, 'v': 5, 'x': 10, 'l': 50, 'c': 100}

func romanValue(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	total := 0
	prev := 0
	runes := []rune(s)
	for i := len(runes) - 1; i >= 0; i-- {
		v, ok := romanDigits[runes[i]]
		if !ok {
			return 0, false
		}
		if v < prev {
			total -= v
		} else {
			total += v
			prev = v
		}
	}
	return total, true
}
