package catalog

import (
	"context"
	"strings"

	"github.com/coolbeans/statwiki/pkg/config"
	"github.com/coolbeans/statwiki/pkg/decoration"
	"github.com/coolbeans/statwiki/pkg/statute"
)

// Resolver resolves references to other instruments against the catalog.
// A reference carrying a link code resolves to that statute; one without
// resolves when its text names a catalogued statute. Either way the target
// is the statute's contents page.
type Resolver struct {
	ctx     context.Context
	catalog *Catalog
}

var _ statute.LinkResolver = (*Resolver)(nil)

// NewResolver returns a resolver whose lookups run under ctx.
func NewResolver(ctx context.Context, c *Catalog) *Resolver {
	return &Resolver{ctx: ctx, catalog: c}
}

// ResolveLink implements statute.LinkResolver.
func (r *Resolver) ResolveLink(d decoration.Decorator) (decoration.Target, bool) {
	var rec StatuteRecord
	var err error
	if d.Link != "" {
		rec, err = r.catalog.StatuteByLinkCode(r.ctx, d.Link)
	} else {
		rec, err = r.catalog.Statute(r.ctx, strings.TrimSpace(d.Reference))
	}
	if err != nil {
		return decoration.Target{}, false
	}
	return decoration.Target{Statute: rec.Name, Page: rec.Prefix}, true
}

// LinksFrom converts the external references of s into catalog links.
// Resolved references name the target statute; unresolved ones keep the
// link code, or the reference text when there is none.
func LinksFrom(s *statute.Statute) []Link {
	var out []Link
	for _, ref := range s.References() {
		d := ref.Decorator
		if !d.External {
			continue
		}
		l := Link{From: ref.From.IDString(), Reference: d.Reference}
		switch {
		case d.Target != nil:
			l.ToStatute, l.Resolved = d.Target.Statute, true
		case d.Link != "":
			l.ToStatute = d.Link
		default:
			l.ToStatute = d.Reference
		}
		out = append(out, l)
	}
	return out
}

// Record builds the catalog record of a parsed statute.
func Record(s *statute.Statute, src config.StatuteSource) StatuteRecord {
	title := s.LongTitle
	if title == "" {
		title = s.ShortTitle
	}
	rec := StatuteRecord{
		Name:     s.Name,
		Prefix:   s.Prefix,
		Kind:     string(s.Kind),
		Title:    title,
		Citation: s.Citation,
		Path:     src.Path,
		URL:      src.URL,
		LinkCode: src.LinkCode,
	}
	if s.Kind == statute.KindRegulation {
		rec.Act = s.EnablingAuthority
	}
	return rec
}

// Save records s as read from src, its provisions and its external links.
func (c *Catalog) Save(ctx context.Context, s *statute.Statute, src config.StatuteSource) error {
	if err := c.SaveStatute(ctx, Record(s, src), s.Index().Labels(), s.PageName); err != nil {
		return err
	}
	return c.SaveLinks(ctx, s.Name, LinksFrom(s))
}
