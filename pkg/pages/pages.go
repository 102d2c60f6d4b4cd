// Package pages writes rendered pages to disk and tracks which of them
// changed between runs. Each output directory carries a manifest of content
// digests; digests ignore whitespace and typographic quote variants so that
// cosmetic differences do not count as changes.
package pages

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/zeebo/blake3"

	"github.com/coolbeans/statwiki/pkg/statute"
)

// ManifestFile is the name of the manifest within an output directory.
const ManifestFile = "manifest.json"

// Entry records one written page.
type Entry struct {
	File   string `json:"file"`
	Digest string `json:"digest"`
}

// Manifest maps page names to their entries.
type Manifest map[string]Entry

// Changes lists page names by what happened to them, each sorted.
type Changes struct {
	New     []string `json:"new"`
	Changed []string `json:"changed"`
	Deleted []string `json:"deleted"`
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.New) == 0 && len(c.Changed) == 0 && len(c.Deleted) == 0
}

// String summarizes the changes, e.g. "2 new, 1 changed, 0 deleted".
func (c Changes) String() string {
	return fmt.Sprintf("%d new, %d changed, %d deleted", len(c.New), len(c.Changed), len(c.Deleted))
}

var normalizer = strings.NewReplacer(
	"&#8217;", "'", "\u2019", "'",
	"&#8220;", `"`, "&#8221;", `"`, "\u201c", `"`, "\u201d", `"`,
	">", "",
)

// Normalize strips whitespace, blockquote markers and quote variants.
func Normalize(content string) string {
	content = normalizer.Replace(content)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, content)
}

// Digest returns the hex blake3 digest of the normalized content.
func Digest(content string) string {
	sum := blake3.Sum256([]byte(Normalize(content)))
	return hex.EncodeToString(sum[:])
}

// FileName maps a page name onto a file name with the given extension.
func FileName(page, ext string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, page)
	return name + ext
}

// Write writes every page into dir, replacing files atomically, and then
// writes the manifest. It returns the new manifest.
func Write(dir string, ps []statute.Page, ext string) (Manifest, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	m := make(Manifest, len(ps))
	for _, p := range ps {
		if _, dup := m[p.Name]; dup {
			return nil, fmt.Errorf("duplicate page name %q", p.Name)
		}
		file := FileName(p.Name, ext)
		if err := writeAtomic(filepath.Join(dir, file), []byte(p.Body)); err != nil {
			return nil, err
		}
		m[p.Name] = Entry{File: file, Digest: Digest(p.Body)}
	}
	if err := WriteManifest(dir, m); err != nil {
		return nil, err
	}
	return m, nil
}

// writeAtomic writes data next to path and renames it into place, so a
// reader never sees a half-written file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".page-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// WriteManifest stores m in dir.
func WriteManifest(dir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return writeAtomic(filepath.Join(dir, ManifestFile), data)
}

// ReadManifest loads the manifest of dir. A directory without one yields an
// empty manifest.
func ReadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m == nil {
		m = Manifest{}
	}
	return m, nil
}

// Diff compares two manifests.
func Diff(old, next Manifest) Changes {
	var c Changes
	for name, e := range next {
		prev, ok := old[name]
		switch {
		case !ok:
			c.New = append(c.New, name)
		case prev.Digest != e.Digest:
			c.Changed = append(c.Changed, name)
		}
	}
	for name := range old {
		if _, ok := next[name]; !ok {
			c.Deleted = append(c.Deleted, name)
		}
	}
	sort.Strings(c.New)
	sort.Strings(c.Changed)
	sort.Strings(c.Deleted)
	return c
}

// RemoveDeleted deletes the files of pages present in old but not in next.
func RemoveDeleted(dir string, old, next Manifest) error {
	for name, e := range old {
		if _, ok := next[name]; ok {
			continue
		}
		err := os.Remove(filepath.Join(dir, e.File))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", e.File, err)
		}
	}
	return nil
}

// Update writes ps into dir, removes pages that no longer exist and reports
// what changed since the previous run.
func Update(dir string, ps []statute.Page, ext string) (Changes, error) {
	old, err := ReadManifest(dir)
	if err != nil {
		return Changes{}, err
	}
	next, err := Write(dir, ps, ext)
	if err != nil {
		return Changes{}, err
	}
	if err := RemoveDeleted(dir, old, next); err != nil {
		return Changes{}, err
	}
	return Diff(old, next), nil
}
