// Package markup turns statute XML into a generic tag tree that the statute
// builder dispatches on. Tag and attribute names are lower-cased, code
// attributes are parsed into label pairs and entity references are decoded.
package markup

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/antchfx/xmlquery"
	"github.com/ulikunitz/xz"

	"github.com/coolbeans/statwiki/pkg/label"
)

// ErrNoRoot is returned when a document has no root element.
var ErrNoRoot = errors.New("document has no root element")

// NodeKind distinguishes elements from literal text.
type NodeKind int

const (
	Element NodeKind = iota
	Text
)

// Node is one element or text run of a parsed document.
type Node struct {
	Kind     NodeKind
	Tag      string            // lower-cased element name; empty for text
	Attrs    map[string]string // lower-cased attribute names
	Text     string            // decoded text for text nodes
	Line     int
	Parent   *Node
	Children []*Node

	// Code holds the parsed code attribute. CodeErr is set when the attribute
	// is present but malformed; the builder reports it.
	Code    []label.CodePair
	CodeErr error
}

// Parse reads a document and returns its root element.
func Parse(r io.Reader) (*Node, error) {
	doc, err := xmlquery.ParseWithOptions(r, parserOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to parse statute XML: %w", err)
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return convert(c, nil), nil
		}
	}
	return nil, ErrNoRoot
}

// parserOptions accepts the HTML named entities statute files use.
func parserOptions() xmlquery.ParserOptions {
	return xmlquery.ParserOptions{
		WithLineNumbers: true,
		Decoder: &xmlquery.DecoderOptions{
			Strict: true,
			Entity: xml.HTMLEntity,
		},
	}
}

// Open parses the document at path. Files ending in ".xz" are decompressed.
func Open(path string) (*Node, error) {
	rc, err := OpenSource(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	root, err := Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return root, nil
}

// OpenSource opens path for reading, decompressing ".xz" bundles.
func OpenSource(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open statute: %w", err)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".xz") {
		return f, nil
	}
	zr, err := xz.NewReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open xz stream %s: %w", path, err)
	}
	return &xzFile{Reader: zr, file: f}, nil
}

type xzFile struct {
	*xz.Reader
	file *os.File
}

func (x *xzFile) Close() error { return x.file.Close() }

func convert(src *xmlquery.Node, parent *Node) *Node {
	n := &Node{
		Kind:   Element,
		Tag:    strings.ToLower(src.Data),
		Line:   src.LineNumber,
		Parent: parent,
	}
	if len(src.Attr) > 0 {
		n.Attrs = make(map[string]string, len(src.Attr))
		for _, a := range src.Attr {
			n.Attrs[strings.ToLower(a.Name.Local)] = a.Value
		}
	}
	if code, ok := n.Attrs["code"]; ok {
		n.Code, n.CodeErr = label.ParseCode(code)
	}

	for c := src.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.ElementNode:
			n.Children = append(n.Children, convert(c, n))
		case xmlquery.TextNode, xmlquery.CharDataNode:
			// Adjacent runs (text around a CDATA section) are joined.
			if last := n.lastChild(); last != nil && last.Kind == Text {
				last.Text += c.Data
				continue
			}
			n.Children = append(n.Children, &Node{Kind: Text, Text: c.Data, Line: c.LineNumber, Parent: n})
		}
	}
	return n
}

func (n *Node) lastChild() *Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[len(n.Children)-1]
}

// IsText reports whether n is a literal text run.
func (n *Node) IsText() bool { return n.Kind == Text }

// Attr returns the named attribute, or "".
func (n *Node) Attr(name string) string { return n.Attrs[strings.ToLower(name)] }

// HasCode reports whether the element carries a code attribute.
func (n *Node) HasCode() bool {
	_, ok := n.Attrs["code"]
	return ok
}

// Child returns the first child element with the given tag.
func (n *Node) Child(tag string) *Node {
	tag = strings.ToLower(tag)
	for _, c := range n.Children {
		if c.Kind == Element && c.Tag == tag {
			return c
		}
	}
	return nil
}

// ChildrenByTag returns every child element with the given tag.
func (n *Node) ChildrenByTag(tag string) []*Node {
	tag = strings.ToLower(tag)
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == Element && c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// RawText concatenates the text below n. A whitespace-only text run
// contributes nothing, so the result can lack spaces implied by tags.
func (n *Node) RawText() string {
	if n.Kind == Text {
		if strings.TrimSpace(n.Text) == "" {
			return ""
		}
		return n.Text
	}
	var b strings.Builder
	for _, c := range n.Children {
		b.WriteString(c.RawText())
	}
	return b.String()
}

// SpacedRawText is RawText with a space inserted wherever two child runs
// would otherwise join alphanumeric characters.
func (n *Node) SpacedRawText() string {
	if n.Kind == Text {
		return n.RawText()
	}
	var b strings.Builder
	var last rune
	for _, c := range n.Children {
		s := c.SpacedRawText()
		if s == "" {
			continue
		}
		first := []rune(s)[0]
		if isAlnum(last) && isAlnum(first) {
			b.WriteByte(' ')
		}
		b.WriteString(s)
		last = []rune(s)[len([]rune(s))-1]
	}
	return b.String()
}

func isAlnum(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

// EnglishMarginalText extracts the English part of a definition's marginal
// note: the English defined terms and the text that joins them. The second
// result is false when the note holds no English defined term.
func (n *Node) EnglishMarginalText() (string, bool) {
	var b strings.Builder
	english, addSpace := false, false
	for _, c := range n.Children {
		switch {
		case c.Kind == Element && c.Tag == "definedtermen":
			english = true
			b.WriteString(" " + strings.TrimSpace(c.RawText()))
			addSpace = true
		case c.Kind == Text:
			if addSpace {
				b.WriteByte(' ')
			}
			b.WriteString(strings.TrimSpace(c.RawText()))
			addSpace = false
		}
	}
	if !english {
		return "", false
	}
	return strings.TrimSpace(b.String()), true
}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// String is a short description used in diagnostics.
func (n *Node) String() string {
	if n.Kind == Text {
		text := strings.TrimSpace(n.Text)
		if len(text) > 40 {
			text = text[:40] + "..."
		}
		return fmt.Sprintf("[text: %q]", text)
	}
	if n.Line > 0 {
		return fmt.Sprintf("<%s> (line %d)", n.Tag, n.Line)
	}
	return "<" + n.Tag + ">"
}
