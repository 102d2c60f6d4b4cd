package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coolbeans/statwiki/pkg/catalog"
	"github.com/coolbeans/statwiki/pkg/config"
	"github.com/coolbeans/statwiki/pkg/render"
)

const criminalCode = `<Statute>
  <Identification>
    <ShortTitle>Criminal Code</ShortTitle>
    <Chapter>R.S.C. 1985, c. C-46</Chapter>
  </Identification>
  <Body>
    <Section Code='se="1"'><Label>1</Label><Text>This Act may be cited as the Criminal Code.</Text></Section>
  </Body>
</Statute>`

const widgetAct = `<Statute>
  <Identification>
    <ShortTitle>Widget Act</ShortTitle>
    <Chapter>S.C. 2001, c. 9</Chapter>
  </Identification>
  <Body>
    <Section Code='se="1"'><Label>1</Label><Text>The <XRefExternal link="C-46">Criminal Code</XRefExternal> applies.</Text></Section>
    <Section Code='se="2"'><Label>2</Label><Text>Widgets are regulated.</Text></Section>
  </Body>
</Statute>`

func testSite(t *testing.T) (*site, []config.StatuteSource) {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return path
	}

	cfg := config.Default()
	cfg.OutputDir = filepath.Join(dir, "pages")
	cfg.Statutes = []config.StatuteSource{
		{Name: "Widget Act", Path: write("widget.xml", widgetAct)},
		{Name: "Criminal Code", Path: write("C-46.xml", criminalCode), LinkCode: "C-46"},
	}

	cat, err := catalog.Open(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { cat.Close() })

	return &site{cfg: cfg, log: discardLogger(), renderer: render.Wiki{}, catalog: cat}, cfg.Statutes
}

// --- Sources ---

func TestSources(t *testing.T) {
	s, srcs := testSite(t)

	all, err := s.sources(nil)
	if err != nil || len(all) != 2 {
		t.Errorf("no args: got %v %v", all, err)
	}

	named, err := s.sources([]string{"Criminal Code", srcs[0].Path})
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if named[0].LinkCode != "C-46" || named[1].Name != "" || named[1].Path != srcs[0].Path {
		t.Errorf("sources: got %+v", named)
	}

	if _, err := s.sources([]string{"Food Act"}); err == nil {
		t.Error("expected an error for an unknown statute")
	}
}

// --- Rendering ---

func TestRenderAllResolvesLinksAcrossStatutes(t *testing.T) {
	s, srcs := testSite(t)
	ctx := context.Background()

	results, err := s.renderAll(ctx, srcs)
	if err != nil {
		t.Fatalf("renderAll: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results: got %d", len(results))
	}
	widgets := results[0]
	if widgets.Resolved != 1 || widgets.Unresolved != 0 {
		t.Errorf("links: got %d/%d, want 1/0", widgets.Resolved, widgets.Unresolved)
	}
	if got := strings.Join(widgets.Changes.New, "|"); got != "Widget Act|Widget Act 1|Widget Act 2" {
		t.Errorf("new pages: got %q", got)
	}

	body, err := os.ReadFile(filepath.Join(s.cfg.OutputDir, "Widget Act", "Widget Act 1"))
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if !strings.Contains(string(body), "[[Criminal Code|Criminal Code]]") {
		t.Errorf("page body: got %q", body)
	}

	again, err := s.renderAll(ctx, srcs[:1])
	if err != nil {
		t.Fatalf("renderAll: %v", err)
	}
	if !again[0].Changes.Empty() {
		t.Errorf("second run: got %v, want no changes", again[0].Changes)
	}

	links, err := s.catalog.LinksTo(ctx, "Criminal Code")
	if err != nil {
		t.Fatalf("LinksTo: %v", err)
	}
	if len(links["Widget Act"]) != 1 || !links["Widget Act"][0].Resolved {
		t.Errorf("catalogued links: got %+v", links)
	}
}

func TestRenderAllWithoutCatalog(t *testing.T) {
	s, srcs := testSite(t)
	s.catalog = nil

	results, err := s.renderAll(context.Background(), srcs[:1])
	if err != nil {
		t.Fatalf("renderAll: %v", err)
	}
	if results[0].Unresolved != 1 {
		t.Errorf("Unresolved: got %d, want 1", results[0].Unresolved)
	}
}

func TestRenderAllSkipsDuplicateSection(t *testing.T) {
	s, _ := testSite(t)
	path := filepath.Join(t.TempDir(), "dup.xml")
	dup := `<Statute><Identification><ShortTitle>Dup Act</ShortTitle><Chapter>c. 2</Chapter></Identification><Body>` +
		`<Section Code='se="4"'><Label>4</Label><Text>First.</Text></Section>` +
		`<Section Code='se="4"'><Label>4</Label><Text>Second.</Text></Section>` +
		`</Body></Statute>`
	if err := os.WriteFile(path, []byte(dup), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	results, err := s.renderAll(context.Background(), []config.StatuteSource{{Name: "Dup Act", Path: path}})
	if err != nil {
		t.Fatalf("renderAll: %v", err)
	}
	if got := strings.Join(results[0].Changes.New, "|"); got != "Dup Act|Dup Act 4" {
		t.Errorf("new pages: got %q", got)
	}
	if results[0].Warnings != 3 {
		t.Errorf("Warnings: got %d, want 3", results[0].Warnings)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
