// Package label implements the addressing model for statute provisions:
// typed numberings, hierarchical section labels, part/division segmentation,
// label ranges and the structured "code" attribute carried on source markup.
package label

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned when a numbering kind is outside the recognized set.
var ErrUnknownKind = errors.New("unknown section kind")

// Kind identifies the level of a single Numbering.
type Kind int

const (
	KindSection Kind = iota
	KindSubsection
	KindParagraph
	KindSubparagraph
	KindClause
	KindSubclause
	KindSubsubclause
	KindDefinition
	KindFormulaDefinition
)

var kindNames = [...]string{
	KindSection:           "section",
	KindSubsection:        "subsection",
	KindParagraph:         "paragraph",
	KindSubparagraph:      "subparagraph",
	KindClause:            "clause",
	KindSubclause:         "subclause",
	KindSubsubclause:      "subsubclause",
	KindDefinition:        "definition",
	KindFormulaDefinition: "formuladefinition",
}

// kindCodes are the 2-letter codes used in the markup's code attribute.
var kindCodes = [...]string{
	KindSection:           "se",
	KindSubsection:        "ss",
	KindParagraph:         "p1",
	KindSubparagraph:      "p2",
	KindClause:            "c1",
	KindSubclause:         "cs",
	KindSubsubclause:      "c3",
	KindDefinition:        "df",
	KindFormulaDefinition: "fd",
}

// formulaKinds maps formula-context tags onto their ordinary equivalents.
var formulaKinds = map[string]Kind{
	"formulaparagraph":    KindParagraph,
	"formulasubparagraph": KindSubparagraph,
	"formulaclause":       KindClause,
	"formulasubclause":    KindSubclause,
	"formulasubsubclause": KindSubsubclause,
	"formuladefinition":   KindFormulaDefinition,
}

// Kinds returns every recognized kind in hierarchy order.
func Kinds() []Kind {
	kinds := make([]Kind, len(kindNames))
	for i := range kindNames {
		kinds[i] = Kind(i)
	}
	return kinds
}

// Valid reports whether k is one of the recognized kinds.
func (k Kind) Valid() bool {
	return k >= KindSection && k <= KindFormulaDefinition
}

// String returns the tag name of the kind.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Code returns the 2-letter code of the kind.
func (k Kind) Code() string {
	if !k.Valid() {
		return ""
	}
	return kindCodes[k]
}

// ParseKind resolves a tag name ("subsection") or 2-letter code ("ss").
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range kindNames {
		if name == s || kindCodes[i] == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// KindForTag resolves a section-like tag, mapping formula-context tags
// (formulaparagraph, ...) to their ordinary kind. The second result is false
// when the tag is not section-like.
func KindForTag(tag string) (Kind, bool) {
	tag = strings.ToLower(tag)
	if k, ok := formulaKinds[tag]; ok {
		return k, true
	}
	for i, name := range kindNames {
		if name == tag {
			return Kind(i), true
		}
	}
	return 0, false
}

// IsFormulaTag reports whether tag is a formula-context section tag.
func IsFormulaTag(tag string) bool {
	_, ok := formulaKinds[strings.ToLower(tag)]
	return ok
}
