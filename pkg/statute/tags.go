package statute

import "github.com/coolbeans/statwiki/pkg/label"

// textTags are elements that hold only inline text and become TextItems.
var textTags = map[string]bool{
	"text":                       true,
	"continuedsectionsubsection": true,
	"continuedparagraph":         true,
	"continuedsubparagraph":      true,
	"continuedclause":            true,
	"continuedsubclause":         true,
	"continueddefinition":        true,
	"continuedformulaparagraph":  true,
	"oath":                       true,
	"formulaconnector":           true,
	"repealed":                   true,
}

// textTriggers are the elements whose literal text is written out. Text
// found outside all of them is reported.
var textTriggers = func() map[string]bool {
	m := map[string]bool{"provision": true}
	for tag := range textTags {
		m[tag] = true
	}
	return m
}()

// knownTextTags may appear inside text without a warning.
var knownTextTags = func() map[string]bool {
	m := map[string]bool{
		"emphasis":      true,
		"language":      true,
		"definedtermfr": true,
		"sup":           true,
		"sub":           true,
		"superscript":   true,
		"subscript":     true,
		"leader":        true,
		"linebreak":     true,
		"fraction":      true,
		"numerator":     true,
		"denominator":   true,
		"footnoteref":   true,
		"formula":       true,
		"formulaterm":   true,
		"provision":     true,
	}
	for tag := range textTags {
		m[tag] = true
	}
	return m
}()

// Inline decoration tags.
const (
	tagDefinedTerm  = "definedtermen"
	tagXRefExternal = "xrefexternal"
	tagXRefInternal = "xrefinternal"
)

// previousVersion is the text of the history anchors that sections may carry.
const previousVersion = "previous version"

// maxTextDepth bounds the nesting of tags inside one text block.
const maxTextDepth = 100

// isSectionTag reports whether tag is section-like, including the
// formula-context variants.
func isSectionTag(tag string) bool {
	_, ok := label.KindForTag(tag)
	return ok
}
