package markup

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/coolbeans/statwiki/pkg/label"
)

// codedElements selects every element carrying a code attribute.
var codedElements = xpath.MustCompile(`//*[@code or @Code]`)

// Prune returns the XML of a statute reduced to its identification block and
// the provisions whose code attribute starts with pairs. Enclosing elements
// of kept provisions are retained without their other content.
func Prune(r io.Reader, pairs []label.CodePair) (string, error) {
	doc, err := xmlquery.ParseWithOptions(r, parserOptions())
	if err != nil {
		return "", fmt.Errorf("failed to parse statute XML: %w", err)
	}
	var root *xmlquery.Node
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			root = c
			break
		}
	}
	if root == nil {
		return "", ErrNoRoot
	}

	keep := make(map[*xmlquery.Node]bool)
	for _, el := range xmlquery.QuerySelectorAll(doc, codedElements) {
		code := el.SelectAttr("code")
		if code == "" {
			code = el.SelectAttr("Code")
		}
		got, err := label.ParseCode(code)
		if err != nil || !hasPrefix(got, pairs) {
			continue
		}
		keep[el] = true
	}
	var walk func(n *xmlquery.Node)
	walk = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == xmlquery.ElementNode && strings.EqualFold(c.Data, "identification") {
				keep[c] = true
				continue
			}
			walk(c)
		}
	}
	walk(root)

	prune(root, keep)
	return root.OutputXMLWithOptions(xmlquery.WithOutputSelf(), xmlquery.WithPreserveSpace()), nil
}

// prune removes every child of n that neither is kept nor encloses a kept
// element. It reports whether anything below n is kept.
func prune(n *xmlquery.Node, keep map[*xmlquery.Node]bool) bool {
	found := false
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case keep[c]:
			found = true
		case c.Type == xmlquery.ElementNode && prune(c, keep):
			found = true
		default:
			xmlquery.RemoveFromTree(c)
		}
		c = next
	}
	return found
}

func hasPrefix(code, prefix []label.CodePair) bool {
	if len(prefix) > len(code) {
		return false
	}
	for i := range prefix {
		if code[i] != prefix[i] {
			return false
		}
	}
	return true
}
