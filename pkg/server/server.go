// Package server serves rendered statute pages over HTTP. Pages are held in
// memory and replaced wholesale whenever a statute is re-rendered.
package server

import (
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/coolbeans/statwiki/pkg/catalog"
	"github.com/coolbeans/statwiki/pkg/render"
	"github.com/coolbeans/statwiki/pkg/statute"
)

// Edition is the rendered output of one statute.
type Edition struct {
	Name     string
	Title    string
	Citation string
	Contents string // name of the contents page
	Pages    []statute.Page

	// Provisions maps provision ids to their location.
	Provisions map[string]statute.Pinpoint
}

// NewEdition renders s with r, contents page first.
func NewEdition(s *statute.Statute, r render.Renderer) Edition {
	contents := s.RenderContents(r)
	provisions := make(map[string]statute.Pinpoint)
	for _, l := range s.Index().Labels() {
		if id := l.IDString(); id != "" {
			provisions[id] = s.Pinpoint(l)
		}
	}
	return Edition{
		Name:       s.Name,
		Title:      firstNonEmpty(s.LongTitle, s.ShortTitle),
		Citation:   s.Citation,
		Contents:   contents.Name,
		Pages:      append([]statute.Page{contents}, s.RenderPages(r)...),
		Provisions: provisions,
	}
}

func (e Edition) page(name string) (statute.Page, bool) {
	for _, p := range e.Pages {
		if p.Name == name {
			return p, true
		}
	}
	return statute.Page{}, false
}

// Server is the HTTP server for rendered statutes.
type Server struct {
	router   chi.Router
	renderer render.Renderer
	catalog  *catalog.Catalog
	log      *slog.Logger

	mu       sync.RWMutex
	editions map[string]Edition
}

// NewServer creates and configures the server. The catalog is optional;
// without it provision lookups are answered from published editions only.
func NewServer(r render.Renderer, cat *catalog.Catalog, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		renderer: r,
		catalog:  cat,
		log:      log,
		editions: make(map[string]Edition),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Get("/statutes", s.handleListStatutes)
	r.Get("/statutes/{name}", s.handleContents)
	r.Get("/statutes/{name}/pages", s.handleListPages)
	r.Get("/statutes/{name}/pages/{page}", s.handlePage)
	r.Get("/statutes/{name}/provisions/{id}", s.handleProvision)

	if s.catalog != nil {
		r.Get("/catalog", s.handleCatalog)
		r.Get("/catalog/{name}/links", s.handleLinksTo)
	}

	s.router = r
}

// Publish replaces the pages served for e.Name.
func (s *Server) Publish(e Edition) {
	s.mu.Lock()
	s.editions[e.Name] = e
	s.mu.Unlock()
	s.log.Info("published statute", "statute", e.Name, "pages", len(e.Pages))
}

// Withdraw stops serving the named statute.
func (s *Server) Withdraw(name string) {
	s.mu.Lock()
	delete(s.editions, name)
	s.mu.Unlock()
}

func (s *Server) edition(name string) (Edition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.editions[name]
	return e, ok
}

// owner finds the published statute holding a page with the given name.
func (s *Server) owner(page string) (Edition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.editions {
		if _, ok := e.page(page); ok {
			return e, true
		}
	}
	return Edition{}, false
}

func (s *Server) names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.editions))
	for name := range s.editions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
