package pages

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coolbeans/statwiki/pkg/statute"
)

func page(name, body string) statute.Page {
	return statute.Page{Name: name, Body: body}
}

// --- Digests ---

func TestDigestIgnoresCosmeticDifferences(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"whitespace", "> **(1)** The Minister", ">  **(1)**\tThe\nMinister"},
		{"apostrophe", "Minister's", "Minister&#8217;s"},
		{"curly apostrophe", "Minister's", "Minister’s"},
		{"quotes", `"widget"`, "“widget”"},
		{"indent markers", ">> (a) text", "> (a) text"},
	}
	for _, tt := range tests {
		if Digest(tt.a) != Digest(tt.b) {
			t.Errorf("%s: digests differ for %q and %q", tt.name, tt.a, tt.b)
		}
	}
	if Digest("widget") == Digest("gadget") {
		t.Error("different content has the same digest")
	}
	if len(Digest("x")) != 64 {
		t.Errorf("digest length: got %d, want 64", len(Digest("x")))
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		page, ext, want string
	}{
		{"Widget Act 4", ".md", "Widget Act 4.md"},
		{"SOR/2002-1 3", "", "SOR_2002-1 3"},
	}
	for _, tt := range tests {
		if got := FileName(tt.page, tt.ext); got != tt.want {
			t.Errorf("FileName(%q, %q): got %q, want %q", tt.page, tt.ext, got, tt.want)
		}
	}
}

// --- Writing ---

func TestWriteAndReadManifest(t *testing.T) {
	dir := t.TempDir()
	m, err := Write(dir, []statute.Page{page("A 1", "one"), page("A 2", "two")}, ".html")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "A 1.html"))
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if string(data) != "one" {
		t.Errorf("page body: got %q", data)
	}

	read, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if len(read) != 2 || read["A 2"] != m["A 2"] {
		t.Errorf("manifest: got %+v, want %+v", read, m)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".page-") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestWriteRejectsDuplicateNames(t *testing.T) {
	_, err := Write(t.TempDir(), []statute.Page{page("A", "x"), page("A", "y")}, "")
	if err == nil {
		t.Error("expected an error for duplicate page names")
	}
}

func TestReadManifestMissing(t *testing.T) {
	m, err := ReadManifest(t.TempDir())
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("expected an empty manifest, got %v", m)
	}
}

// --- Change detection ---

func TestDiff(t *testing.T) {
	old := Manifest{
		"A 1": {File: "A 1", Digest: Digest("one")},
		"A 2": {File: "A 2", Digest: Digest("two")},
		"A 3": {File: "A 3", Digest: Digest("three")},
	}
	next := Manifest{
		"A 1": {File: "A 1", Digest: Digest(" one ")},
		"A 2": {File: "A 2", Digest: Digest("two, amended")},
		"A 4": {File: "A 4", Digest: Digest("four")},
		"A 0": {File: "A 0", Digest: Digest("zero")},
	}
	c := Diff(old, next)
	if got := strings.Join(c.New, "|"); got != "A 0|A 4" {
		t.Errorf("New: got %q", got)
	}
	if got := strings.Join(c.Changed, "|"); got != "A 2" {
		t.Errorf("Changed: got %q", got)
	}
	if got := strings.Join(c.Deleted, "|"); got != "A 3" {
		t.Errorf("Deleted: got %q", got)
	}
	if c.String() != "2 new, 1 changed, 1 deleted" {
		t.Errorf("String: got %q", c.String())
	}
	if !Diff(old, old).Empty() {
		t.Error("identical manifests should have no changes")
	}
}

func TestUpdateRemovesDeletedPages(t *testing.T) {
	dir := t.TempDir()
	first, err := Update(dir, []statute.Page{page("A 1", "one"), page("A 2", "two")}, "")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(first.New) != 2 {
		t.Errorf("first run: got %v", first)
	}

	second, err := Update(dir, []statute.Page{page("A 1", "one\n")}, "")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(second.New) != 0 || len(second.Changed) != 0 || len(second.Deleted) != 1 {
		t.Errorf("second run: got %v", second)
	}
	if _, err := os.Stat(filepath.Join(dir, "A 2")); !os.IsNotExist(err) {
		t.Errorf("deleted page still on disk: %v", err)
	}
}
