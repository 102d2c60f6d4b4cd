package statute

import (
	"errors"
	"strings"
	"testing"

	"github.com/coolbeans/statwiki/pkg/decoration"
	"github.com/coolbeans/statwiki/pkg/diag"
	"github.com/coolbeans/statwiki/pkg/label"
	"github.com/coolbeans/statwiki/pkg/render"
)

const widgetAct = `<?xml version="1.0" encoding="UTF-8"?>
<Statute>
  <Identification>
    <ShortTitle>Widget Act</ShortTitle>
    <LongTitle>An Act respecting widgets</LongTitle>
    <Chapter>S.C. 2001, c. 9</Chapter>
  </Identification>
  <Body>
    <Heading Code='ga="pt_1",hd="1"'>
      <Label>Part 1</Label>
      <TitleText>Widgets</TitleText>
    </Heading>
    <Section Code='se="2"'>
      <MarginalNote>Definitions</MarginalNote>
      <Label>2</Label>
      <Text>The following definitions apply in this Act.</Text>
      <Definition Code='se="2",df="{producer organization}{organisation de producteurs}"'>
        <Text><DefinedTermEn>producer organization</DefinedTermEn> means a body of producers.</Text>
      </Definition>
      <Definition Code='se="2",df="{widget}{bidule}"'>
        <Text><DefinedTermEn>widget</DefinedTermEn> means a small device.</Text>
      </Definition>
    </Section>
    <Heading Code='ga="pt_1",gb="dv_A",hd="A"'>
      <Label>Division A</Label>
      <TitleText>Sizes</TitleText>
    </Heading>
    <Section Code='se="4"'>
      <MarginalNote>Application</MarginalNote>
      <Label>4</Label>
      <Subsection Code='se="4",ss="1"'>
        <Label>(1)</Label>
        <Text>This Act applies to widgets.</Text>
      </Subsection>
      <Subsection Code='se="4",ss="2"'>
        <Label>(2)</Label>
        <Text>It does not apply to</Text>
        <Paragraph Code='se="4",ss="2",p1="a"'>
          <Label>(a)</Label>
          <Text>gadgets; or</Text>
        </Paragraph>
        <Paragraph Code='se="4",ss="2",p1="b"'>
          <Label>(b)</Label>
          <Text>widgets described in <XRefInternal>paragraph (a)</XRefInternal>.</Text>
        </Paragraph>
      </Subsection>
      <HistoricalNote>2001, c. 9, s. 4</HistoricalNote>
    </Section>
    <Heading Code='ga="pt_2",hd="2"'>
      <Label>Part 2</Label>
      <TitleText>Enforcement</TitleText>
    </Heading>
    <Section Code='se="5"'>
      <Label>5</Label>
      <Text>Despite <XRefInternal>subsection 4(2)</XRefInternal>, the <XRefExternal link="C-46">Criminal Code</XRefExternal> applies.</Text>
    </Section>
  </Body>
</Statute>
`

func parse(t *testing.T, src string, reporter *diag.Reporter) *Statute {
	t.Helper()
	s, err := Parse(strings.NewReader(src), Options{Reporter: reporter})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return s
}

// wrap places body provisions in a minimal statute document.
func wrap(body string) string {
	return `<Statute><Identification><ShortTitle>Test Act</ShortTitle>` +
		`<LongTitle>An Act for testing</LongTitle><Chapter>c. 1</Chapter>` +
		`</Identification><Body>` + body + `</Body></Statute>`
}

func findSection(t *testing.T, s *Statute, id string) Item {
	t.Helper()
	_, item, ok := s.Index().LookupID(id)
	if !ok {
		t.Fatalf("no provision %q", id)
	}
	return item
}

// --- Identification ---

func TestParseIdentification(t *testing.T) {
	reporter := diag.NewReporter(true, nil)
	s := parse(t, widgetAct, reporter)

	if s.Kind != KindStatute {
		t.Errorf("Kind: got %q, want %q", s.Kind, KindStatute)
	}
	if s.ShortTitle != "Widget Act" {
		t.Errorf("ShortTitle: got %q", s.ShortTitle)
	}
	if s.LongTitle != "An Act respecting widgets" {
		t.Errorf("LongTitle: got %q", s.LongTitle)
	}
	if s.Citation != "S.C. 2001, c. 9" {
		t.Errorf("Citation: got %q", s.Citation)
	}
	if s.Prefix != "Widget Act" || s.Name != "Widget Act" {
		t.Errorf("Prefix/Name: got %q/%q", s.Prefix, s.Name)
	}
	if got := s.String(); got != "Widget Act (S.C. 2001, c. 9)" {
		t.Errorf("String: got %q", got)
	}
	if reporter.Count() != 0 {
		t.Errorf("expected no warnings, got %v", reporter.Diagnostics())
	}
}

func TestParseOptionsOverrideNames(t *testing.T) {
	s, err := Parse(strings.NewReader(widgetAct), Options{Name: "C-9", Prefix: "WA"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Name != "C-9" || s.Prefix != "WA" {
		t.Errorf("got Name %q Prefix %q", s.Name, s.Prefix)
	}
	if got := s.PageName(label.New(label.MustNumbering(label.KindSection, "4"))); got != "WA 4" {
		t.Errorf("PageName: got %q", got)
	}
}

func TestParseRegulation(t *testing.T) {
	src := `<Regulation><Identification><LongTitle>Widget Regulations</LongTitle>` +
		`<InstrumentNumber>SOR/2002-1</InstrumentNumber>` +
		`<EnablingAuthority>Widget Act</EnablingAuthority></Identification>` +
		`<Body><Section Code='se="1"'><Label>1</Label><Text>Hello.</Text></Section></Body></Regulation>`
	reporter := diag.NewReporter(false, nil)
	s := parse(t, src, reporter)
	if s.Kind != KindRegulation {
		t.Errorf("Kind: got %q", s.Kind)
	}
	if s.Citation != "SOR/2002-1" || s.EnablingAuthority != "Widget Act" {
		t.Errorf("got Citation %q EnablingAuthority %q", s.Citation, s.EnablingAuthority)
	}
	if s.Prefix != "Widget Regulations" {
		t.Errorf("Prefix: got %q", s.Prefix)
	}
	if reporter.Count() != 0 {
		t.Errorf("untitled regulation should not warn: %v", reporter.Diagnostics())
	}
}

func TestParseRejectsOtherRoots(t *testing.T) {
	_, err := Parse(strings.NewReader(`<Bill><Body/></Bill>`), Options{})
	if !diag.IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
}

func TestParseMissingBody(t *testing.T) {
	src := `<Statute><Identification><ShortTitle>X</ShortTitle></Identification></Statute>`
	_, err := Parse(strings.NewReader(src), Options{})
	if !diag.IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
}

// --- Addressing ---

func TestNestedParagraphAddress(t *testing.T) {
	s := parse(t, widgetAct, nil)
	item := findSection(t, s, "4(2)(a)")
	sec, ok := item.(*SectionItem)
	if !ok {
		t.Fatalf("4(2)(a): got %T", item)
	}
	if got := sec.Label().IDString(); got != "4(2)(a)" {
		t.Errorf("IDString: got %q, want %q", got, "4(2)(a)")
	}
	if got := sec.IndentLevel(); got != 2 {
		t.Errorf("IndentLevel: got %d, want 2", got)
	}
	if text, _ := sec.LabelText(); text != "(a)" {
		t.Errorf("LabelText: got %q", text)
	}

	child := sec.Children()[0]
	if got := child.SectionLabel().IDString(); got != "4(2)(a)" {
		t.Errorf("text inherits label: got %q", got)
	}
	if got := child.IndentLevel(); got != 2 {
		t.Errorf("text indent: got %d", got)
	}
}

func TestImputedLabelWithoutCode(t *testing.T) {
	src := wrap(`<Section><Label>7.</Label><Subsection><Label>(3)</Label><Text>Hi.</Text></Subsection></Section>`)
	reporter := diag.NewReporter(true, nil)
	s := parse(t, src, reporter)
	findSection(t, s, "7(3)")
}

func TestDeclaredLabelWins(t *testing.T) {
	src := wrap(`<Section Code='se="8"'><Label>9</Label><Text>Hi.</Text></Section>`)
	reporter := diag.NewReporter(false, nil)
	s := parse(t, src, reporter)
	if got := s.Sections[0].Label().IDString(); got != "8" {
		t.Errorf("label: got %q, want %q", got, "8")
	}
	if reporter.Count() != 1 {
		t.Errorf("expected 1 warning, got %v", reporter.Diagnostics())
	}
}

func TestRangeLabelKeepsFirst(t *testing.T) {
	src := wrap(`<Section><Label>3 to 5</Label><Repealed>[Repealed, 2001, c. 2, s. 1]</Repealed></Section>`)
	s := parse(t, src, diag.NewReporter(true, nil))
	sec := s.Sections[0]
	if got := sec.Label().IDString(); got != "3" {
		t.Errorf("label: got %q, want %q", got, "3")
	}
	if !sec.Repealed() {
		t.Error("expected repealed section")
	}
}

func TestDuplicateMetadataWarns(t *testing.T) {
	src := wrap(`<Section Code='se="1"'><MarginalNote>A</MarginalNote><MarginalNote>B</MarginalNote>` +
		`<Label>1</Label><Text>x</Text></Section>`)
	reporter := diag.NewReporter(false, nil)
	s := parse(t, src, reporter)
	if reporter.Count() != 1 {
		t.Fatalf("expected 1 warning, got %v", reporter.Diagnostics())
	}
	if note, _ := s.Sections[0].MarginalNote(); note != "B" {
		t.Errorf("marginal note: got %q, want the last one", note)
	}
}

func TestLabelAfterContentWarns(t *testing.T) {
	src := wrap(`<Section Code='se="1"'><Text>x</Text><Label>1</Label></Section>`)
	reporter := diag.NewReporter(false, nil)
	parse(t, src, reporter)
	if reporter.Count() != 1 {
		t.Errorf("expected 1 warning, got %v", reporter.Diagnostics())
	}
}

// --- Definitions ---

func TestDefinitionTermReconciliation(t *testing.T) {
	tests := []struct {
		name      string
		codeTerm  string
		textTerm  string
		wantTerm  string
		wantWarns int
	}{
		{"same term", "producer organization", "producer organization", "producer organization", 0},
		{"label is prefix", "producer organization", "producer organizations, generally", "producer organizations, generally", 0},
		{"mismatch", "widget", "producer organization", "producer organization", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := wrap(`<Section Code='se="2"'><Label>2</Label>` +
				`<Definition Code='se="2",df="{` + tt.codeTerm + `}{x}"'>` +
				`<Text><DefinedTermEn>` + tt.textTerm + `</DefinedTermEn> means something.</Text>` +
				`</Definition></Section>`)
			reporter := diag.NewReporter(false, nil)
			s := parse(t, src, reporter)

			def, ok := s.Sections[0].Children()[0].(*DefinitionItem)
			if !ok {
				t.Fatalf("got %T", s.Sections[0].Children()[0])
			}
			if def.Term() != tt.wantTerm {
				t.Errorf("Term: got %q, want %q", def.Term(), tt.wantTerm)
			}
			if reporter.Count() != tt.wantWarns {
				t.Errorf("warnings: got %d, want %d (%v)", reporter.Count(), tt.wantWarns, reporter.Diagnostics())
			}
		})
	}
}

func TestPendingDefinitionResolvedFromText(t *testing.T) {
	src := wrap(`<Section Code='se="2"'><Label>2</Label>` +
		`<Definition><Text><DefinedTermEn>gadget</DefinedTermEn> means a tool.</Text></Definition></Section>`)
	reporter := diag.NewReporter(false, nil)
	s := parse(t, src, reporter)

	def := s.Sections[0].Children()[0].(*DefinitionItem)
	if got := def.Label().IDString(); got != "2[gadget]" {
		t.Errorf("label: got %q, want %q", got, "2[gadget]")
	}
	if _, _, ok := s.Index().LookupID("2[gadget]"); !ok {
		t.Error("resolved definition not indexed")
	}
}

func TestRepealedEmptyDefinitionDoesNotWarn(t *testing.T) {
	src := wrap(`<Section Code='se="2"'><Label>2</Label>` +
		`<Definition><Repealed>[Repealed, 2003, c. 4, s. 1]</Repealed></Definition>` +
		`<Definition><Repealed>[Repealed, 2004, c. 5, s. 1]</Repealed></Definition></Section>`)
	reporter := diag.NewReporter(true, nil)
	s := parse(t, src, reporter)
	if got := s.Index().Len(); got != 3 {
		t.Errorf("indexed: got %d, want 3", got)
	}
}

func TestDefinitionWithoutTermWarns(t *testing.T) {
	src := wrap(`<Section Code='se="2"'><Label>2</Label><Definition><Text>means nothing.</Text></Definition></Section>`)
	reporter := diag.NewReporter(false, nil)
	parse(t, src, reporter)
	if reporter.Count() != 1 {
		t.Errorf("expected 1 warning, got %v", reporter.Diagnostics())
	}
}

// --- Diagnostics ---

func TestStrictModeAborts(t *testing.T) {
	src := wrap(`<Section Code='se="2"'><Label>2</Label>` +
		`<Definition Code='se="2",df="{widget}{x}"'><Text><DefinedTermEn>gadget</DefinedTermEn> means.</Text></Definition></Section>`)
	_, err := Parse(strings.NewReader(src), Options{Reporter: diag.NewReporter(true, nil)})
	if err == nil {
		t.Fatal("expected strict mode to abort")
	}
	var de *diag.Error
	if !errors.As(err, &de) {
		t.Fatalf("expected *diag.Error, got %T", err)
	}
	if diag.IsFatal(err) {
		t.Error("strict-mode abort should carry a warning, not a fatal")
	}
	if de.Diagnostic.Location != "2[widget]" {
		t.Errorf("location: got %q, want %q", de.Diagnostic.Location, "2[widget]")
	}
}

func TestEmptyReadAsIsFatal(t *testing.T) {
	src := wrap(`<Section Code='se="7"'><Label>7</Label><Text>Section 3 is to read:</Text><ReadAsText></ReadAsText></Section>`)
	for _, strict := range []bool{false, true} {
		_, err := Parse(strings.NewReader(src), Options{Reporter: diag.NewReporter(strict, nil)})
		if !diag.IsFatal(err) {
			t.Errorf("strict=%v: expected fatal error, got %v", strict, err)
		}
	}
}

func TestReadAsSectionsAreNotIndexed(t *testing.T) {
	src := wrap(`<Section Code='se="7"'><Label>7</Label><Text>Section 3 is replaced by:</Text>` +
		`<ReadAsText><SectionPiece><Section><Label>3</Label><Text>New text.</Text></Section></SectionPiece></ReadAsText></Section>` +
		`<Section Code='se="3"'><Label>3</Label><Text>Old text.</Text></Section>`)
	reporter := diag.NewReporter(true, nil)
	s := parse(t, src, reporter)

	_, item, ok := s.Index().LookupID("73")
	if ok {
		t.Errorf("read-as section indexed: %v", item)
	}
	if got := s.Index().Len(); got != 2 {
		t.Errorf("indexed: got %d, want 2", got)
	}
	text := s.Sections[0].RenderedText(render.Wiki{}, false)
	if !strings.Contains(text, "New text.") {
		t.Errorf("read-as text not rendered: %q", text)
	}
}

func TestReadAsContainers(t *testing.T) {
	piece := func(id, text string) string {
		return `<SectionPiece><Section><Label>` + id + `</Label><Text>` + text + `</Text></Section></SectionPiece>`
	}
	direct := `<Section><Label>4</Label><Text>Direct text.</Text></Section>`

	tests := []struct {
		name      string
		readAs    string
		wantWarns int
		want      string
		notWant   string
	}{
		{"single piece", piece("3", "New text."), 0, "New text.", ""},
		{"multiple pieces", piece("3", "New text.") + piece("3", "Other text."), 1, "New text.", "Other text."},
		{"piece and direct section", piece("3", "New text.") + direct, 1, "New text.", "Direct text."},
		{"direct sections only", direct, 1, "Direct text.", ""},
		{"text beside piece", "stray" + piece("3", "New text."), 1, "New text.", "stray"},
		{"unknown node", `<Note>x</Note>` + piece("3", "New text."), 1, "New text.", ""},
		{"empty piece", `<SectionPiece></SectionPiece>`, 1, "is replaced by:", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := wrap(`<Section Code='se="7"'><Label>7</Label><Text>Section 3 is replaced by:</Text>` +
				`<ReadAsText>` + tt.readAs + `</ReadAsText></Section>`)
			reporter := diag.NewReporter(false, nil)
			s := parse(t, src, reporter)
			if reporter.Count() != tt.wantWarns {
				t.Errorf("warnings: got %d, want %d (%v)", reporter.Count(), tt.wantWarns, reporter.Diagnostics())
			}
			text := s.Sections[0].RenderedText(render.Wiki{}, false)
			if !strings.Contains(text, tt.want) {
				t.Errorf("rendered text missing %q: %q", tt.want, text)
			}
			if tt.notWant != "" && strings.Contains(text, tt.notWant) {
				t.Errorf("rendered text has %q: %q", tt.notWant, text)
			}
		})
	}
}

func TestUnknownTagWarns(t *testing.T) {
	src := wrap(`<Section Code='se="1"'><Label>1</Label><Widget/><Text>x <Blink>y</Blink></Text></Section>`)
	reporter := diag.NewReporter(false, nil)
	s := parse(t, src, reporter)
	if reporter.Count() != 2 {
		t.Errorf("expected 2 warnings, got %v", reporter.Diagnostics())
	}
	text := s.Sections[0].Children()[0].(*TextItem).Text()
	if text != "x y" && text != "xy" {
		t.Errorf("unknown inline tag still traversed: got %q", text)
	}
}

func TestDuplicateLabelWarns(t *testing.T) {
	src := wrap(`<Section Code='se="1"'><Label>1</Label><Text>a</Text></Section>` +
		`<Section Code='se="1"'><Label>1</Label><Text>b</Text></Section>`)
	reporter := diag.NewReporter(false, nil)
	s := parse(t, src, reporter)
	if reporter.Count() == 0 {
		t.Error("expected a duplicate-label warning")
	}
	_, item, _ := s.Index().LookupID("1")
	if item != Item(s.Sections[0]) {
		t.Error("first duplicate should win")
	}
}

// --- Formulas ---

const formulaSection = `<Section Code='se="9"'><Label>9</Label>` +
	`<Subsection Code='se="9",ss="1"'><Label>(1)</Label><Text>The amount is determined by the formula</Text>` +
	`<FormulaGroup><Formula>A + B</Formula><FormulaConnector>where</FormulaConnector>` +
	`<FormulaDefinition><FormulaTerm>A</FormulaTerm><Text>is the base amount, and</Text>` +
	`<FormulaParagraph><Label>(a)</Label><Text>increased by 10%.</Text></FormulaParagraph>` +
	`</FormulaDefinition></FormulaGroup></Subsection></Section>`

func TestFormulaGroupAddressing(t *testing.T) {
	reporter := diag.NewReporter(true, nil)
	s := parse(t, wrap(formulaSection), reporter)

	labels := s.Index().Labels()
	tests := []struct {
		id     string
		kind   label.Kind
		indent int
	}{
		{"9", label.KindSection, 0},
		{"9(1)", label.KindSubsection, 1},
		{"9(1)", label.KindFormulaDefinition, 1},
		{"9(1)(a)", label.KindParagraph, 2},
	}
	if len(labels) != len(tests) {
		t.Fatalf("labels: got %v, want %d", labels, len(tests))
	}
	for i, tt := range tests {
		l := labels[i]
		if l.IDString() != tt.id || l.Last().Kind() != tt.kind || l.IndentLevel() != tt.indent {
			t.Errorf("label %d: got %s %v indent %d, want %s %v indent %d",
				i, l.IDString(), l.Last().Kind(), l.IndentLevel(), tt.id, tt.kind, tt.indent)
		}
	}

	_, item, ok := s.Index().LookupID("9(1)")
	if !ok || item.(*SectionItem).Label().Last().Kind() != label.KindSubsection {
		t.Errorf("LookupID(9(1)): got %v", item)
	}

	sub := s.Sections[0].Children()[0]
	var group *FormulaItem
	for _, c := range sub.Children() {
		if f, ok := c.(*FormulaItem); ok {
			group = f
		}
	}
	if group == nil {
		t.Fatal("no formula group built")
	}
	if group.Formula() != "A + B" {
		t.Errorf("Formula: got %q", group.Formula())
	}
	if _, ok := group.Location(); ok {
		t.Error("formula group should have no address of its own")
	}
}

func TestRenderFormulaGroup(t *testing.T) {
	s := parse(t, wrap(formulaSection), nil)
	text := s.Sections[0].RenderedText(render.Wiki{}, false)
	want := strings.Join([]string{
		" [[#9]]**9**",
		"> [[#9(1)]]**(1)** The amount is determined by the formula",
		"> **A + B**",
		"> where",
		"> **A** is the base amount, and",
		">> [[#9(1)(a)]]**(a)** increased by 10%.",
	}, "\n")
	if text != want {
		t.Errorf("got:\n%s\nwant:\n%s", text, want)
	}
	if n := strings.Count(text, "[[#9(1)]]"); n != 1 {
		t.Errorf("anchor 9(1): got %d, want 1", n)
	}
}

func TestFormulaWarnings(t *testing.T) {
	tests := []struct {
		name      string
		group     string
		wantWarns int
	}{
		{"formula first", `<FormulaGroup><Formula>A</Formula><FormulaConnector>where</FormulaConnector></FormulaGroup>`, 0},
		{"two formulas", `<FormulaGroup><Formula>A</Formula><Formula>B</Formula></FormulaGroup>`, 1},
		{"formula after content", `<FormulaGroup><FormulaConnector>where</FormulaConnector><Formula>A</Formula></FormulaGroup>`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reporter := diag.NewReporter(false, nil)
			parse(t, wrap(`<Section Code='se="9"'><Label>9</Label>`+tt.group+`</Section>`), reporter)
			if reporter.Count() != tt.wantWarns {
				t.Errorf("warnings: got %d, want %d (%v)", reporter.Count(), tt.wantWarns, reporter.Diagnostics())
			}
		})
	}
}

// --- Headings ---

func TestHeadingValidation(t *testing.T) {
	tests := []struct {
		name      string
		heading   string
		wantWarns int
	}{
		{"valid part", `<Heading Code='ga="pt_3",hd="3"'><Label>Part 3</Label><TitleText>T</TitleText></Heading>`, 0},
		{"case-insensitive kind", `<Heading Code='ga="pt_IV",hd="IV"'><Label>PART iv</Label></Heading>`, 0},
		{"unlabelled", `<Heading><TitleText>General</TitleText></Heading>`, 0},
		{"one piece", `<Heading Code='ga="pt_3",hd="3"'><Label>Part</Label></Heading>`, 1},
		{"unknown segment", `<Heading Code='ga="pt_3",hd="3"'><Label>Chapter 3</Label></Heading>`, 1},
		{"value mismatch", `<Heading Code='ga="pt_4",hd="4"'><Label>Part 3</Label></Heading>`, 1},
		{"segment mismatch", `<Heading Code='gb="pt_3",hd="3"'><Label>Part 3</Label></Heading>`, 1},
		{"missing code", `<Heading><Label>Part 3</Label></Heading>`, 1},
		{"excess node", `<Heading Code='ga="pt_3",hd="3"'><Label>Part 3</Label><Note>x</Note></Heading>`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reporter := diag.NewReporter(false, nil)
			s := parse(t, wrap(tt.heading), reporter)
			if reporter.Count() != tt.wantWarns {
				t.Errorf("warnings: got %d, want %d (%v)", reporter.Count(), tt.wantWarns, reporter.Diagnostics())
			}
			if len(s.Headings) != 1 {
				t.Errorf("headings: got %d, want 1", len(s.Headings))
			}
		})
	}
}

func TestDivisionsTracked(t *testing.T) {
	s := parse(t, widgetAct, nil)
	divs := s.Divisions.Divisions()
	var got []string
	for _, d := range divs {
		got = append(got, d.String())
	}
	want := []string{"Part 1", "Part 1, Division A", "Part 2"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("divisions: got %v, want %v", got, want)
	}

	four := label.New(label.MustNumbering(label.KindSection, "4"))
	div, ok := s.Divisions.Containing(four)
	if !ok || div.String() != "Part 1, Division A" {
		t.Errorf("Containing(4): got %v %v", div, ok)
	}
}

func TestSubdivisionOutsideDivisionWarns(t *testing.T) {
	src := wrap(`<Heading Code='ga="pt_1",hd="1"'><Label>Part 1</Label></Heading>` +
		`<Heading Code='ga="pt_1",gb="dv_A",gc="sd_1",hd="1"'><Label>Subdivision 1</Label></Heading>`)
	reporter := diag.NewReporter(false, nil)
	parse(t, src, reporter)
	if reporter.Count() == 0 {
		t.Error("expected a warning for a subdivision outside any division")
	}
}

// --- Rendering ---

func TestRenderPage(t *testing.T) {
	s := parse(t, widgetAct, nil)
	page := s.RenderPage(s.Sections[1], render.Wiki{})

	if page.Name != "Widget Act 4" {
		t.Errorf("Name: got %q", page.Name)
	}
	if page.Key != "4" {
		t.Errorf("Key: got %q", page.Key)
	}
	want := strings.Join([]string{
		"===== Application =====",
		"> [[#4(1)]]**(1)** This Act applies to widgets.",
		"> [[#4(2)]]**(2)** It does not apply to",
		">> [[#4(2)(a)]]**(a)** gadgets; or",
		">> [[#4(2)(b)]]**(b)** widgets described in paragraph (a).",
		" 2001, c. 9, s. 4",
	}, "\n")
	if page.Body != want {
		t.Errorf("Body:\ngot:\n%s\nwant:\n%s", page.Body, want)
	}
}

func TestRenderDefinitions(t *testing.T) {
	s := parse(t, widgetAct, nil)
	text := s.Sections[0].RenderedText(render.Wiki{}, false)
	want := strings.Join([]string{
		"===== Definitions =====",
		" [[#2]]**2** The following definitions apply in this Act.",
		` "**producer organization**" means a body of producers.`,
		` "**widget**" means a small device.`,
	}, "\n")
	if text != want {
		t.Errorf("got:\n%s\nwant:\n%s", text, want)
	}
}

func TestRenderContents(t *testing.T) {
	s := parse(t, widgetAct, nil)
	page := s.RenderContents(render.Wiki{})
	if page.Name != "Widget Act" {
		t.Errorf("Name: got %q", page.Name)
	}
	want := strings.Join([]string{
		"== Part 1: Widgets ==",
		" [[Widget Act 2|2 Definitions]]",
		"=== Division A: Sizes ===",
		" [[Widget Act 4|4 Application]]",
		"== Part 2: Enforcement ==",
		" [[Widget Act 5|5]]",
	}, "\n")
	if page.Body != want {
		t.Errorf("Body:\ngot:\n%s\nwant:\n%s", page.Body, want)
	}
}

func TestRenderPagesOrder(t *testing.T) {
	s := parse(t, widgetAct, nil)
	pages := s.RenderPages(render.HTML{})
	var names []string
	for _, p := range pages {
		names = append(names, p.Name)
	}
	if got := strings.Join(names, "|"); got != "Widget Act 2|Widget Act 4|Widget Act 5" {
		t.Errorf("pages: got %q", got)
	}
}

func TestDuplicateSectionKeepsFirstPage(t *testing.T) {
	src := wrap(`<Section Code='se="4"'><Label>4</Label><Text>First.</Text></Section>` +
		`<Section Code='se="4"'><Label>4</Label><Text>Second.</Text></Section>` +
		`<Section Code='se="5"'><Label>5</Label><Text>Third.</Text></Section>`)
	reporter := diag.NewReporter(false, nil)
	s := parse(t, src, reporter)
	parsed := reporter.Count()

	pages := s.RenderPages(render.Wiki{})
	var names []string
	for _, p := range pages {
		names = append(names, p.Name)
	}
	if got := strings.Join(names, "|"); got != "Test Act 4|Test Act 5" {
		t.Fatalf("pages: got %q", got)
	}
	if !strings.Contains(pages[0].Body, "First.") || strings.Contains(pages[0].Body, "Second.") {
		t.Errorf("first duplicate should own the page: %q", pages[0].Body)
	}
	if got := reporter.Count() - parsed; got != 1 {
		t.Errorf("render warnings: got %d, want 1", got)
	}

	contents := s.RenderContents(render.Wiki{})
	if n := strings.Count(contents.Body, "[[Test Act 4|"); n != 1 {
		t.Errorf("contents links to Test Act 4: got %d, want 1\n%s", n, contents.Body)
	}
}

// --- Links ---

type fakeResolver map[string]decoration.Target

func (f fakeResolver) ResolveLink(d decoration.Decorator) (decoration.Target, bool) {
	t, ok := f[d.Link]
	return t, ok
}

func TestResolveLinks(t *testing.T) {
	s := parse(t, widgetAct, nil)
	resolved, unresolved := s.ResolveLinks(nil)
	if resolved != 2 || unresolved != 1 {
		t.Errorf("without external resolver: got %d/%d, want 2/1", resolved, unresolved)
	}

	page := s.RenderPage(s.Sections[1], render.Wiki{})
	want := ">> [[#4(2)(b)]]**(b)** widgets described in [[Widget Act 4#4(2)(a)|paragraph (a)]]."
	if !strings.Contains(page.Body, want) {
		t.Errorf("relative link not rendered:\n%s", page.Body)
	}

	external := fakeResolver{"C-46": {Statute: "C-46", Page: "Criminal Code"}}
	resolved, unresolved = s.ResolveLinks(external)
	if resolved != 1 || unresolved != 0 {
		t.Errorf("with external resolver: got %d/%d, want 1/0", resolved, unresolved)
	}
	page = s.RenderPage(s.Sections[2], render.Wiki{})
	want = " Despite [[Widget Act 4#4(2)|subsection 4(2)]], the [[Criminal Code|Criminal Code]] applies."
	if page.Body != want {
		t.Errorf("Body:\ngot:  %q\nwant: %q", page.Body, want)
	}
}

func TestNormalizeReference(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"section 5", "5"},
		{"subsection 4(2)", "4(2)"},
		{"paragraph (a)", "(a)"},
		{"Paragraphs (a) ", "(a)"},
		{"(3)(b)", "(3)(b)"},
		{"12 (1)", "12(1)"},
	}
	for _, tt := range tests {
		if got := normalizeReference(tt.in); got != tt.want {
			t.Errorf("normalizeReference(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLookupNear(t *testing.T) {
	s := parse(t, widgetAct, nil)
	near := label.New(
		label.MustNumbering(label.KindSection, "4"),
		label.MustNumbering(label.KindSubsection, "2"),
		label.MustNumbering(label.KindParagraph, "b"),
	)
	tests := []struct {
		ref, want string
	}{
		{"(a)", "4(2)(a)"},
		{"(1)", "4(1)"},
		{"5", "5"},
	}
	for _, tt := range tests {
		l, _, ok := s.Index().LookupNear(tt.ref, near)
		if !ok || l.IDString() != tt.want {
			t.Errorf("LookupNear(%q): got %q %v, want %q", tt.ref, l.IDString(), ok, tt.want)
		}
	}
	if _, _, ok := s.Index().LookupNear("(z)", near); ok {
		t.Error("LookupNear((z)): expected no match")
	}
}

// --- Index ---

func TestIndexOrderAndSpan(t *testing.T) {
	s := parse(t, widgetAct, nil)
	ix := s.Index()
	var ids []string
	for _, l := range ix.Labels() {
		ids = append(ids, l.IDString())
	}
	want := "2|2[producer organization]|2[widget]|4|4(1)|4(2)|4(2)(a)|4(2)(b)|5"
	if got := strings.Join(ids, "|"); got != want {
		t.Errorf("labels: got %q, want %q", got, want)
	}

	four, _, _ := ix.LookupID("4")
	start, end, ok := ix.Span(four)
	if !ok || start != 3 || end != 7 {
		t.Errorf("Span(4): got %d..%d %v, want 3..7", start, end, ok)
	}

	r := label.BoundedRange(four, four)
	if got := len(ix.Within(r)); got != 5 {
		t.Errorf("Within(4..4): got %d labels, want 5", got)
	}
}

func TestPinpoint(t *testing.T) {
	s := parse(t, widgetAct, nil)
	l, _, _ := s.Index().LookupID("4(2)(a)")
	p := s.Pinpoint(l)
	if p.Page != "Widget Act 4" || p.Anchor != "4(2)(a)" || p.Statute != "Widget Act" {
		t.Errorf("Pinpoint: got %+v", p)
	}
	target := p.Target()
	if target.Page != p.Page || target.Anchor != p.Anchor {
		t.Errorf("Target: got %+v", target)
	}
}

func TestReferences(t *testing.T) {
	s := parse(t, widgetAct, nil)
	refs := s.References()
	if len(refs) != 3 {
		t.Fatalf("got %d references, want 3", len(refs))
	}
	last := refs[2]
	if last.From.IDString() != "5" || !last.Decorator.External || last.Decorator.Link != "C-46" {
		t.Errorf("external reference: got %+v", last)
	}
	if refs[0].From.IDString() != "4(2)(b)" || refs[0].Decorator.Reference != "paragraph (a)" {
		t.Errorf("internal reference: got %+v", refs[0])
	}
}
