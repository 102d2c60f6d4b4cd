// Package catalog persists the statutes known to a site in SQLite: their
// metadata, the provisions of each and the cross-instrument links between
// them. It backs resolution of references to other instruments.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/coolbeans/statwiki/pkg/label"
	"github.com/coolbeans/statwiki/pkg/statute"
)

// ErrNotFound is returned when a statute or provision is not catalogued.
var ErrNotFound = errors.New("not found in catalog")

// StatuteRecord is the catalogued metadata of one statute.
type StatuteRecord struct {
	Name      string    `json:"name"`
	Prefix    string    `json:"prefix"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Citation  string    `json:"citation"`
	Path      string    `json:"path"`
	URL       string    `json:"url,omitempty"`
	LinkCode  string    `json:"link_code,omitempty"` // identifier used by references from other instruments
	Act       string    `json:"act,omitempty"`       // the enabling act, for regulations
	Sections  int       `json:"sections"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link is a reference from a provision of one statute to another statute.
type Link struct {
	From      string `json:"from"` // id string of the citing provision
	ToStatute string `json:"to_statute"`
	Reference string `json:"reference"`
	Resolved  bool   `json:"resolved"`
}

const schema = `
CREATE TABLE IF NOT EXISTS statutes (
	name        TEXT PRIMARY KEY,
	prefix      TEXT NOT NULL,
	kind        TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	citation    TEXT NOT NULL DEFAULT '',
	path        TEXT NOT NULL DEFAULT '',
	url         TEXT NOT NULL DEFAULT '',
	link_code   TEXT NOT NULL DEFAULT '',
	act         TEXT NOT NULL DEFAULT '',
	sections    INTEGER NOT NULL DEFAULT 0,
	updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS statutes_link_code ON statutes(link_code);
CREATE TABLE IF NOT EXISTS provisions (
	statute  TEXT NOT NULL REFERENCES statutes(name) ON DELETE CASCADE,
	id       TEXT NOT NULL,
	code     TEXT NOT NULL,
	page     TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (statute, id)
);
CREATE TABLE IF NOT EXISTS links (
	statute    TEXT NOT NULL REFERENCES statutes(name) ON DELETE CASCADE,
	from_id    TEXT NOT NULL,
	to_statute TEXT NOT NULL,
	reference  TEXT NOT NULL,
	resolved   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS links_to ON links(to_statute);
`

// Catalog is a handle on the catalog database. It is safe for concurrent
// use.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog at path. ":memory:" gives a private
// in-memory catalog.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", path, err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create catalog schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close closes the database.
func (c *Catalog) Close() error { return c.db.Close() }

// SaveStatute records a statute and replaces its provisions with labels, in
// the given order. pageName maps each label to the page holding it.
func (c *Catalog) SaveStatute(ctx context.Context, rec StatuteRecord, labels []label.SectionLabel, pageName func(label.SectionLabel) string) error {
	if rec.Name == "" {
		return fmt.Errorf("statute name is required")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	rec.Sections = 0
	for _, l := range labels {
		if l.Len() == 1 {
			rec.Sections++
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO statutes (name, prefix, kind, title, citation, path, url, link_code, act, sections, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			prefix = excluded.prefix, kind = excluded.kind, title = excluded.title,
			citation = excluded.citation, path = excluded.path, url = excluded.url,
			link_code = excluded.link_code, act = excluded.act,
			sections = excluded.sections, updated_at = excluded.updated_at`,
		rec.Name, rec.Prefix, rec.Kind, rec.Title, rec.Citation, rec.Path, rec.URL,
		rec.LinkCode, rec.Act, rec.Sections, rec.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save statute %s: %w", rec.Name, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM provisions WHERE statute = ?`, rec.Name); err != nil {
		return fmt.Errorf("failed to clear provisions of %s: %w", rec.Name, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO provisions (statute, id, code, page, position) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare provision insert: %w", err)
	}
	defer stmt.Close()
	for i, l := range labels {
		if _, err := stmt.ExecContext(ctx, rec.Name, l.IDString(), label.FormatCode(l), pageName(l), i); err != nil {
			return fmt.Errorf("failed to save provision %s of %s: %w", l.IDString(), rec.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit statute %s: %w", rec.Name, err)
	}
	return nil
}

// SaveLinks replaces the outgoing cross-instrument links of a statute.
func (c *Catalog) SaveLinks(ctx context.Context, name string, links []Link) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM links WHERE statute = ?`, name); err != nil {
		return fmt.Errorf("failed to clear links of %s: %w", name, err)
	}
	for _, l := range links {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO links (statute, from_id, to_statute, reference, resolved) VALUES (?, ?, ?, ?, ?)`,
			name, l.From, l.ToStatute, l.Reference, l.Resolved)
		if err != nil {
			return fmt.Errorf("failed to save link from %s %s: %w", name, l.From, err)
		}
	}
	return tx.Commit()
}

// LinksTo returns the references made by other statutes to name, keyed by
// citing statute.
func (c *Catalog) LinksTo(ctx context.Context, name string) (map[string][]Link, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT statute, from_id, to_statute, reference, resolved FROM links WHERE to_statute = ? ORDER BY statute, rowid`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query links to %s: %w", name, err)
	}
	defer rows.Close()

	out := make(map[string][]Link)
	for rows.Next() {
		var from string
		var l Link
		if err := rows.Scan(&from, &l.From, &l.ToStatute, &l.Reference, &l.Resolved); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		out[from] = append(out[from], l)
	}
	return out, rows.Err()
}

const statuteColumns = `name, prefix, kind, title, citation, path, url, link_code, act, sections, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanStatute(row scanner) (StatuteRecord, error) {
	var rec StatuteRecord
	var updated string
	err := row.Scan(&rec.Name, &rec.Prefix, &rec.Kind, &rec.Title, &rec.Citation, &rec.Path,
		&rec.URL, &rec.LinkCode, &rec.Act, &rec.Sections, &updated)
	if err != nil {
		return StatuteRecord{}, err
	}
	rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return StatuteRecord{}, fmt.Errorf("bad timestamp for %s: %w", rec.Name, err)
	}
	return rec, nil
}

func (c *Catalog) statuteWhere(ctx context.Context, where string, arg any) (StatuteRecord, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+statuteColumns+` FROM statutes WHERE `+where+` LIMIT 1`, arg)
	rec, err := scanStatute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return StatuteRecord{}, fmt.Errorf("statute %q: %w", arg, ErrNotFound)
	}
	if err != nil {
		return StatuteRecord{}, fmt.Errorf("failed to load statute %q: %w", arg, err)
	}
	return rec, nil
}

// Statute returns the record of the named statute.
func (c *Catalog) Statute(ctx context.Context, name string) (StatuteRecord, error) {
	return c.statuteWhere(ctx, "name = ?", name)
}

// StatuteByLinkCode returns the statute other instruments cite by code.
func (c *Catalog) StatuteByLinkCode(ctx context.Context, code string) (StatuteRecord, error) {
	if code == "" {
		return StatuteRecord{}, fmt.Errorf("empty link code: %w", ErrNotFound)
	}
	return c.statuteWhere(ctx, "link_code = ?", code)
}

// Statutes lists every catalogued statute by name.
func (c *Catalog) Statutes(ctx context.Context) ([]StatuteRecord, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+statuteColumns+` FROM statutes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list statutes: %w", err)
	}
	defer rows.Close()

	var out []StatuteRecord
	for rows.Next() {
		rec, err := scanStatute(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan statute: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Lookup returns the pinpoint of a provision by id string.
func (c *Catalog) Lookup(ctx context.Context, name, id string) (statute.Pinpoint, error) {
	var code, page string
	err := c.db.QueryRowContext(ctx,
		`SELECT code, page FROM provisions WHERE statute = ? AND id = ?`, name, id).Scan(&code, &page)
	if errors.Is(err, sql.ErrNoRows) {
		return statute.Pinpoint{}, fmt.Errorf("%s %s: %w", name, id, ErrNotFound)
	}
	if err != nil {
		return statute.Pinpoint{}, fmt.Errorf("failed to look up %s %s: %w", name, id, err)
	}
	return pinpoint(name, id, code, page)
}

// Provisions lists the provisions of a statute in document order.
func (c *Catalog) Provisions(ctx context.Context, name string) ([]statute.Pinpoint, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, code, page FROM provisions WHERE statute = ? ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list provisions of %s: %w", name, err)
	}
	defer rows.Close()

	var out []statute.Pinpoint
	for rows.Next() {
		var id, code, page string
		if err := rows.Scan(&id, &code, &page); err != nil {
			return nil, fmt.Errorf("failed to scan provision: %w", err)
		}
		p, err := pinpoint(name, id, code, page)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func pinpoint(name, id, code, page string) (statute.Pinpoint, error) {
	pairs, err := label.ParseCode(code)
	if err != nil {
		return statute.Pinpoint{}, fmt.Errorf("stored label of %s %s: %w", name, id, err)
	}
	l, err := label.FromCode(pairs)
	if err != nil {
		return statute.Pinpoint{}, fmt.Errorf("stored label of %s %s: %w", name, id, err)
	}
	return statute.Pinpoint{Statute: name, Label: l, Page: page, Anchor: id}, nil
}
