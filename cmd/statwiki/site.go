package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coolbeans/statwiki/pkg/catalog"
	"github.com/coolbeans/statwiki/pkg/config"
	"github.com/coolbeans/statwiki/pkg/diag"
	"github.com/coolbeans/statwiki/pkg/markup"
	"github.com/coolbeans/statwiki/pkg/pages"
	"github.com/coolbeans/statwiki/pkg/render"
	"github.com/coolbeans/statwiki/pkg/statute"
)

// site bundles the configuration and shared resources of one invocation.
type site struct {
	cfg      *config.Config
	log      *slog.Logger
	renderer render.Renderer
	catalog  *catalog.Catalog
}

// loadSite reads the configuration, applies the global flags and sets up
// logging. The catalog is opened only when withCatalog is set.
func loadSite(cmd *cobra.Command, withCatalog bool) (*site, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("strict") {
		cfg.Strict, _ = flags.GetBool("strict")
	}
	if flags.Changed("format") {
		cfg.Format, _ = flags.GetString("format")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("output") {
		cfg.OutputDir, _ = flags.GetString("output")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	r, _ := render.ForFormat(cfg.Format)
	s := &site{cfg: cfg, log: log, renderer: r}

	if withCatalog && cfg.Catalog != "" {
		c, err := catalog.Open(cfg.Catalog)
		if err != nil {
			return nil, err
		}
		s.catalog = c
	}
	return s, nil
}

func (s *site) Close() error {
	if s.catalog != nil {
		return s.catalog.Close()
	}
	return nil
}

// sources resolves command arguments to statute sources. An argument naming
// a configured statute selects it; any other argument is read as a file path.
// No arguments select every configured statute.
func (s *site) sources(args []string) ([]config.StatuteSource, error) {
	if len(args) == 0 {
		if len(s.cfg.Statutes) == 0 {
			return nil, fmt.Errorf("no statutes configured; name a statute file")
		}
		return s.cfg.Statutes, nil
	}
	out := make([]config.StatuteSource, 0, len(args))
	for _, arg := range args {
		if src, ok := s.cfg.Statute(arg); ok {
			out = append(out, src)
			continue
		}
		if _, err := os.Stat(arg); err != nil {
			return nil, fmt.Errorf("%s is neither a configured statute nor a readable file", arg)
		}
		out = append(out, config.StatuteSource{Path: arg})
	}
	return out, nil
}

// parse reads and builds one statute with its own reporter.
func (s *site) parse(src config.StatuteSource) (*statute.Statute, *diag.Reporter, error) {
	reporter := diag.NewReporter(s.cfg.Strict, s.log.With("file", src.Path))
	root, err := markup.Open(src.Path)
	if err != nil {
		return nil, reporter, err
	}
	st, err := statute.Build(root, statute.Options{
		Name:     src.Name,
		Prefix:   src.Prefix,
		Reporter: reporter,
	})
	if err != nil {
		return nil, reporter, fmt.Errorf("%s: %w", src.Path, err)
	}
	return st, reporter, nil
}

// resolver returns the external link resolver, nil without a catalog.
func (s *site) resolver(ctx context.Context) statute.LinkResolver {
	if s.catalog == nil {
		return nil
	}
	return catalog.NewResolver(ctx, s.catalog)
}

// outputDir is the directory holding a statute's pages.
func (s *site) outputDir(st *statute.Statute) string {
	return filepath.Join(s.cfg.OutputDir, pages.FileName(st.Name, ""))
}

// renderResult reports one rendered statute.
type renderResult struct {
	Statute    *statute.Statute
	Changes    pages.Changes
	Resolved   int
	Unresolved int
	Warnings   int
}

// renderAll renders every source. All statutes are catalogued before any
// links are resolved so that statutes in one run can link to each other.
func (s *site) renderAll(ctx context.Context, srcs []config.StatuteSource) ([]renderResult, error) {
	parsed := make([]*statute.Statute, 0, len(srcs))
	reporters := make([]*diag.Reporter, 0, len(srcs))
	for _, src := range srcs {
		st, reporter, err := s.parse(src)
		if err != nil {
			return nil, err
		}
		if s.catalog != nil {
			if err := s.catalog.Save(ctx, st, src); err != nil {
				return nil, err
			}
		}
		parsed = append(parsed, st)
		reporters = append(reporters, reporter)
	}

	results := make([]renderResult, 0, len(parsed))
	for i, st := range parsed {
		res, err := s.publish(ctx, st, srcs[i])
		if err != nil {
			return nil, err
		}
		res.Warnings = reporters[i].Count()
		results = append(results, res)
	}
	return results, nil
}

// publish resolves links, writes the pages and records the links.
func (s *site) publish(ctx context.Context, st *statute.Statute, src config.StatuteSource) (renderResult, error) {
	resolved, unresolved := st.ResolveLinks(s.resolver(ctx))

	ps := append([]statute.Page{st.RenderContents(s.renderer)}, st.RenderPages(s.renderer)...)
	changes, err := pages.Update(s.outputDir(st), ps, s.renderer.FileExtension())
	if err != nil {
		return renderResult{}, fmt.Errorf("%s: %w", st.Name, err)
	}
	if s.catalog != nil {
		if err := s.catalog.Save(ctx, st, src); err != nil {
			return renderResult{}, err
		}
	}
	s.log.Info("rendered statute",
		"statute", st.Name,
		"pages", len(ps),
		"changes", changes.String(),
		"links_resolved", resolved,
		"links_unresolved", unresolved,
	)
	return renderResult{Statute: st, Changes: changes, Resolved: resolved, Unresolved: unresolved}, nil
}

// printChanges lists changed page names under a heading, as the render
// command reports them.
func printChanges(res renderResult) {
	fmt.Printf("%s: %s", res.Statute, res.Changes)
	if res.Unresolved > 0 {
		fmt.Printf(", %d unresolved links", res.Unresolved)
	}
	fmt.Println()
	for _, group := range []struct {
		title string
		names []string
	}{
		{"new", res.Changes.New},
		{"changed", res.Changes.Changed},
		{"deleted", res.Changes.Deleted},
	} {
		if len(group.names) == 0 {
			continue
		}
		fmt.Printf("  %s:\n    %s\n", group.title, strings.Join(group.names, "\n    "))
	}
}
