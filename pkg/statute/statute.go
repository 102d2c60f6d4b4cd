package statute

import (
	"fmt"
	"io"
	"strings"

	"github.com/coolbeans/statwiki/pkg/diag"
	"github.com/coolbeans/statwiki/pkg/label"
	"github.com/coolbeans/statwiki/pkg/markup"
	"github.com/coolbeans/statwiki/pkg/render"
)

// InstrumentKind distinguishes acts from regulations.
type InstrumentKind string

const (
	KindStatute    InstrumentKind = "statute"
	KindRegulation InstrumentKind = "regulation"
)

// Options configure a build.
type Options struct {
	// Name identifies the statute in links and the catalog. Defaults to the
	// page prefix.
	Name string
	// Prefix overrides the short title as the page-name prefix.
	Prefix string
	// Reporter receives diagnostics. A lenient reporter that discards log
	// output is used when nil.
	Reporter *diag.Reporter
}

// Statute is a parsed instrument: its identification, the top-level
// provisions and headings in document order and the label index.
type Statute struct {
	Name              string
	Kind              InstrumentKind
	ShortTitle        string
	LongTitle         string
	Citation          string // chapter, or instrument number for regulations
	EnablingAuthority string
	Prefix            string

	Sections  []*SectionItem
	Headings  []*HeadingItem
	Divisions *label.DivisionData

	index    *Index
	reporter *diag.Reporter
}

// Parse reads statute XML and builds it.
func Parse(r io.Reader, opts Options) (*Statute, error) {
	root, err := markup.Parse(r)
	if err != nil {
		return nil, err
	}
	return Build(root, opts)
}

// Build builds a statute from a parsed document whose root element is
// "statute" or "regulation".
func Build(root *markup.Node, opts Options) (*Statute, error) {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = diag.NewReporter(false, nil)
	}
	b := &builder{reporter: reporter}

	s := &Statute{
		Divisions: label.NewDivisionData(),
		reporter:  reporter,
	}
	switch root.Tag {
	case "statute":
		s.Kind = KindStatute
	case "regulation":
		s.Kind = KindRegulation
	default:
		return nil, reporter.Fatal(diag.At(root.Tag), "cannot find any instrument in document, root is <%s>", root.Tag)
	}

	ident := root.Child("identification")
	if ident == nil {
		return nil, reporter.Fatal(diag.At(string(s.Kind)), "missing identification")
	}
	if err := s.identify(b, ident); err != nil {
		return nil, err
	}
	s.Prefix = firstNonEmpty(opts.Prefix, s.ShortTitle, s.LongTitle, s.Citation)
	s.Name = firstNonEmpty(opts.Name, s.Prefix)

	body := root.Child("body")
	if body == nil {
		return nil, reporter.Fatal(diag.At(s.Name), "missing body")
	}
	if err := s.walkBody(b, body); err != nil {
		return nil, err
	}

	index, err := buildIndex(s, reporter)
	if err != nil {
		return nil, err
	}
	s.index = index
	return s, nil
}

// identField is one identification element copied onto the statute.
type identField struct {
	tag      string
	dest     *string
	optional bool
}

func (s *Statute) identify(b *builder, ident *markup.Node) error {
	fields := []identField{
		// Regulations are often untitled.
		{tag: "shorttitle", dest: &s.ShortTitle, optional: s.Kind == KindRegulation},
		{tag: "longtitle", dest: &s.LongTitle},
	}
	switch s.Kind {
	case KindStatute:
		fields = append(fields, identField{tag: "chapter", dest: &s.Citation})
	case KindRegulation:
		fields = append(fields,
			identField{tag: "instrumentnumber", dest: &s.Citation},
			identField{tag: "enablingauthority", dest: &s.EnablingAuthority},
		)
	}

	for _, f := range fields {
		n := ident.Child(f.tag)
		if n == nil {
			if f.optional {
				continue
			}
			if err := b.warn(diag.At("identification"), "missing <%s>", f.tag); err != nil {
				return err
			}
			continue
		}
		*f.dest = strings.Join(strings.Fields(n.SpacedRawText()), " ")
	}
	return nil
}

func (s *Statute) walkBody(b *builder, body *markup.Node) error {
	for _, n := range body.Children {
		if n.IsText() {
			continue
		}
		switch n.Tag {
		case "section":
			sec, err := b.section(nil, n)
			if err != nil {
				return err
			}
			s.Sections = append(s.Sections, sec)
			s.Divisions.AddSection(sec.Label())
		case "heading":
			h, err := b.heading(n)
			if err != nil {
				return err
			}
			s.Headings = append(s.Headings, h)
			if err := s.advanceDivision(b, h); err != nil {
				return err
			}
		default:
			if err := b.warn(diag.At(s.Name), "unknown tag at top level: %s", n); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Statute) advanceDivision(b *builder, h *HeadingItem) error {
	kind, value, ok := h.Numbering()
	if !ok {
		return nil
	}
	_, repeated, err := s.Divisions.AddNumbering(kind, value, h.Title())
	if err != nil {
		return b.warn(h, "cannot place heading: %v", err)
	}
	if repeated {
		return b.warn(h, "repeated heading")
	}
	return nil
}

// Reporter returns the reporter the statute was built with.
func (s *Statute) Reporter() *diag.Reporter { return s.reporter }

// Index returns the label index.
func (s *Statute) Index() *Index { return s.index }

// Walk visits every item of every top-level section in document order.
func (s *Statute) Walk(fn func(Item) bool) {
	for _, sec := range s.Sections {
		Walk(sec, fn)
	}
}

// PageName is the name of the page holding the top-level section of l.
func (s *Statute) PageName(l label.SectionLabel) string {
	return s.Prefix + " " + l.Top().IDString()
}

// ContentsPageName is the name of the statute's contents page.
func (s *Statute) ContentsPageName() string { return s.Prefix }

// Pinpoint locates a provision for linking.
func (s *Statute) Pinpoint(l label.SectionLabel) Pinpoint {
	return Pinpoint{Statute: s.Name, Label: l, Page: s.PageName(l), Anchor: l.IDString()}
}

// Page is the rendered text of one top-level section.
type Page struct {
	Key   string // id string of the section
	Name  string
	Label label.SectionLabel
	Body  string
}

// RenderPages renders one page per top-level section, in document order.
// The section's own label is left out because it names the page. A later
// section whose page name is taken is skipped with a warning, as the index
// keeps the first of two duplicate labels.
func (s *Statute) RenderPages(r render.Renderer) []Page {
	pages := make([]Page, 0, len(s.Sections))
	for _, sec := range s.pageSections(true) {
		pages = append(pages, s.RenderPage(sec, r))
	}
	return pages
}

// pageSections returns the top-level sections that own a page.
func (s *Statute) pageSections(warn bool) []*SectionItem {
	seen := make(map[string]bool, len(s.Sections))
	out := make([]*SectionItem, 0, len(s.Sections))
	for _, sec := range s.Sections {
		name := s.PageName(sec.Label())
		if seen[name] {
			if warn {
				// A strict parse has already stopped at the duplicate label.
				_ = s.reporter.Warn(sec, "duplicate page %q, section skipped", name)
			}
			continue
		}
		seen[name] = true
		out = append(out, sec)
	}
	return out
}

// RenderPage renders a single top-level section.
func (s *Statute) RenderPage(sec *SectionItem, r render.Renderer) Page {
	l := sec.Label()
	return Page{
		Key:   l.Top().IDString(),
		Name:  s.PageName(l),
		Label: l,
		Body:  r.Document(s.PageName(l), sec.RenderedText(r, true)),
	}
}

// RenderContents renders the contents page: each part, division and
// subdivision heading as it is entered, then a link per section.
func (s *Statute) RenderContents(r render.Renderer) Page {
	var lines []string
	var prev label.Division
	for _, sec := range s.pageSections(false) {
		current, _ := s.Divisions.Containing(sec.Label())
		for _, div := range label.ChangedLevels(prev, current) {
			text := div.Title()
			if title := s.Divisions.Title(div); title != "" {
				text += ": " + title
			}
			lines = append(lines, r.Heading(r.Clean(text), div.Len()+1))
		}
		prev = current

		text := sec.Label().Top().IDString()
		if note, ok := sec.MarginalNote(); ok {
			text += " " + note
		}
		lines = append(lines, r.Indent(r.Link(s.PageName(sec.Label()), "", r.Clean(text)), 0))
	}

	title := firstNonEmpty(s.LongTitle, s.ShortTitle, s.Prefix)
	return Page{
		Key:  "",
		Name: s.ContentsPageName(),
		Body: r.Document(title, strings.Join(lines, r.NewLine())),
	}
}

// String describes the statute, e.g. "Widget Act (S.C. 2001, c. 9)".
func (s *Statute) String() string {
	if s.Citation == "" {
		return s.Prefix
	}
	return fmt.Sprintf("%s (%s)", s.Prefix, s.Citation)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
