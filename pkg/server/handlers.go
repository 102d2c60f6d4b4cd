package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/coolbeans/statwiki/pkg/catalog"
	"github.com/coolbeans/statwiki/pkg/render"
	"github.com/coolbeans/statwiki/pkg/statute"
)

type statuteSummary struct {
	Name     string `json:"name"`
	Title    string `json:"title,omitempty"`
	Citation string `json:"citation,omitempty"`
	Contents string `json:"contents"`
	Pages    int    `json:"pages"`
}

type pageSummary struct {
	Name string `json:"name"`
	Key  string `json:"key,omitempty"`
	URL  string `json:"url"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleListStatutes(w http.ResponseWriter, r *http.Request) {
	out := []statuteSummary{}
	for _, name := range s.names() {
		e, ok := s.edition(name)
		if !ok {
			continue
		}
		out = append(out, statuteSummary{
			Name:     e.Name,
			Title:    e.Title,
			Citation: e.Citation,
			Contents: e.Contents,
			Pages:    len(e.Pages),
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleContents(w http.ResponseWriter, r *http.Request) {
	e, ok := s.edition(param(r, "name"))
	if !ok {
		jsonError(w, "statute not found", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, s.pageURL(e.Name, e.Contents, ""), http.StatusFound)
}

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	e, ok := s.edition(param(r, "name"))
	if !ok {
		jsonError(w, "statute not found", http.StatusNotFound)
		return
	}
	out := make([]pageSummary, 0, len(e.Pages))
	for _, p := range e.Pages {
		out = append(out, pageSummary{Name: p.Name, Key: p.Key, URL: s.pageURL(e.Name, p.Name, "")})
	}
	writeJSON(w, out)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	name := param(r, "name")
	page := strings.TrimSuffix(param(r, "page"), s.renderer.FileExtension())

	e, ok := s.edition(name)
	if !ok {
		jsonError(w, "statute not found", http.StatusNotFound)
		return
	}
	p, ok := e.page(page)
	if !ok {
		// Links between statutes are written relative to the linking page.
		if other, found := s.owner(page); found {
			http.Redirect(w, r, s.pageURL(other.Name, page, ""), http.StatusFound)
			return
		}
		jsonError(w, "page not found", http.StatusNotFound)
		return
	}
	s.writePage(w, p)
}

func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	name := param(r, "name")
	id := param(r, "id")

	if e, ok := s.edition(name); ok {
		if pin, ok := e.Provisions[id]; ok {
			http.Redirect(w, r, s.pageURL(name, pin.Page, pin.Anchor), http.StatusFound)
			return
		}
	}
	if s.catalog == nil {
		jsonError(w, "provision not found", http.StatusNotFound)
		return
	}
	pin, err := s.catalog.Lookup(r.Context(), name, id)
	if errors.Is(err, catalog.ErrNotFound) {
		jsonError(w, "provision not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("provision lookup failed", "statute", name, "id", id, "error", err)
		jsonError(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, s.pageURL(name, pin.Page, pin.Anchor), http.StatusFound)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	recs, err := s.catalog.Statutes(r.Context())
	if err != nil {
		s.log.Error("catalog listing failed", "error", err)
		jsonError(w, "catalog unavailable", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []catalog.StatuteRecord{}
	}
	writeJSON(w, recs)
}

func (s *Server) handleLinksTo(w http.ResponseWriter, r *http.Request) {
	links, err := s.catalog.LinksTo(r.Context(), param(r, "name"))
	if err != nil {
		s.log.Error("link listing failed", "error", err)
		jsonError(w, "catalog unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, links)
}

// writePage sends a page in the renderer's format. Markdown is converted to
// HTML; wiki markup is sent as plain text.
func (s *Server) writePage(w http.ResponseWriter, p statute.Page) {
	switch s.renderer.(type) {
	case render.HTML:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(p.Body))
	case render.Markdown:
		out, err := render.MarkdownToHTML([]byte(p.Body))
		if err != nil {
			s.log.Error("markdown conversion failed", "page", p.Name, "error", err)
			jsonError(w, "page could not be rendered", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(out)
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(p.Body))
	}
}

func (s *Server) pageURL(name, page, anchor string) string {
	u := "/statutes/" + url.PathEscape(name) + "/pages/" + url.PathEscape(page) + s.renderer.FileExtension()
	if anchor != "" {
		u += "#" + url.PathEscape(anchor)
	}
	return u
}

// param returns a decoded URL parameter.
func param(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
