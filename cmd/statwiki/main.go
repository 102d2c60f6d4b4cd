package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/coolbeans/statwiki/pkg/config"
	"github.com/coolbeans/statwiki/pkg/diag"
	"github.com/coolbeans/statwiki/pkg/fetch"
	"github.com/coolbeans/statwiki/pkg/label"
	"github.com/coolbeans/statwiki/pkg/markup"
	"github.com/coolbeans/statwiki/pkg/render"
	"github.com/coolbeans/statwiki/pkg/server"
	"github.com/coolbeans/statwiki/pkg/watch"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "statwiki",
		Short: "Statute-to-wiki converter",
		Long: `Statwiki converts consolidated statutes and regulations, published as
structured XML, into one wiki page per section plus a contents page.

It produces:
  - Pages in wiki, HTML or markdown format
  - Internal and cross-statute links resolved through a catalog
  - A manifest of page digests, so reruns report what changed
  - A page server and a watcher that re-renders on file changes`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Configuration file (default statwiki.yaml)")
	flags.Bool("strict", false, "Treat every warning as fatal")
	flags.String("format", "", "Output format: "+strings.Join(render.Formats(), ", "))
	flags.String("log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(renderCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(pruneCmd())
	rootCmd.AddCommand(labelsCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(fetchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [statute...]",
		Short: "Render statutes to pages",
		Long: `Render statutes to one page per top-level section plus a contents page.

Arguments name configured statutes or statute XML files (.xml or .xml.xz).
With no arguments every configured statute is rendered. Pages are written
under the output directory, one subdirectory per statute, and the pages
that are new, changed or deleted since the last run are listed.

Example:
  statwiki render
  statwiki render "Criminal Code" --format markdown
  statwiki render data/C-46.xml.xz --output /tmp/pages`,
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet, _ := cmd.Flags().GetBool("quiet")

			s, err := loadSite(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			srcs, err := s.sources(args)
			if err != nil {
				return err
			}
			results, err := s.renderAll(cmd.Context(), srcs)
			if err != nil {
				return err
			}
			for _, res := range results {
				if quiet {
					fmt.Printf("%s: %s\n", res.Statute, res.Changes)
					continue
				}
				printChanges(res)
			}
			return nil
		},
	}
	cmd.Flags().String("output", "", "Output directory (overrides output_dir)")
	cmd.Flags().BoolP("quiet", "q", false, "Print only the change summary")
	return cmd
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [statute...]",
		Short: "Parse statutes and report diagnostics",
		Long: `Parse statutes without writing pages and print every diagnostic.

With --strict the first warning stops the check of that statute.

Example:
  statwiki check data/C-46.xml
  statwiki check --strict --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			s, err := loadSite(cmd, false)
			if err != nil {
				return err
			}
			srcs, err := s.sources(args)
			if err != nil {
				return err
			}

			type report struct {
				Path        string            `json:"path"`
				Statute     string            `json:"statute,omitempty"`
				Sections    int               `json:"sections"`
				Diagnostics []diag.Diagnostic `json:"diagnostics"`
				Error       string            `json:"error,omitempty"`
			}
			var reports []report
			failed := 0
			for _, src := range srcs {
				st, reporter, err := s.parse(src)
				r := report{Path: src.Path, Diagnostics: reporter.Diagnostics()}
				if err != nil {
					r.Error = err.Error()
					failed++
				} else {
					r.Statute = st.Name
					r.Sections = len(st.Sections)
				}
				if r.Diagnostics == nil {
					r.Diagnostics = []diag.Diagnostic{}
				}
				reports = append(reports, r)

				if asJSON {
					continue
				}
				for _, d := range r.Diagnostics {
					fmt.Println(d)
				}
				if err != nil {
					fmt.Printf("%s: failed: %v\n", src.Path, err)
				} else {
					fmt.Printf("%s: %d sections, %s\n", st, r.Sections, reporter.Summary())
				}
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(reports); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d statutes failed", failed, len(srcs))
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print diagnostics as JSON")
	return cmd
}

func pruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune <file> <code>",
		Short: "Extract provisions from a statute file",
		Long: `Reduce a statute file to its identification and the provisions whose
code attribute starts with the given code, for building small test inputs.

Example:
  statwiki prune data/C-46.xml 'se="2"'
  statwiki prune data/C-46.xml.xz 'se="91",ss="1"' --output s91.xml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")

			pairs, err := label.ParseCode(args[1])
			if err != nil {
				return err
			}
			if len(pairs) == 0 {
				return fmt.Errorf("code is empty")
			}

			src, err := markup.OpenSource(args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			pruned, err := markup.Prune(src, pairs)
			if err != nil {
				return err
			}
			if output == "" {
				fmt.Println(pruned)
				return nil
			}
			if err := os.WriteFile(output, []byte(pruned+"\n"), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Printf("Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func labelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels <statute>",
		Short: "List the labels of a statute",
		Long: `List every indexed label of a statute in document order.

Example:
  statwiki labels "Criminal Code"
  statwiki labels data/C-46.xml --within 91 --code`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			within, _ := cmd.Flags().GetString("within")
			showCode, _ := cmd.Flags().GetBool("code")
			display, _ := cmd.Flags().GetBool("display")

			s, err := loadSite(cmd, false)
			if err != nil {
				return err
			}
			srcs, err := s.sources(args)
			if err != nil {
				return err
			}
			st, _, err := s.parse(srcs[0])
			if err != nil {
				return err
			}

			ix := st.Index()
			labels := ix.Labels()
			if within != "" {
				l, _, ok := ix.LookupID(within)
				if !ok {
					return fmt.Errorf("%s has no provision %s", st.Name, within)
				}
				labels = ix.Within(label.SingletonRange(l))
			}

			for _, l := range labels {
				text := l.IDString()
				if display {
					text = l.DisplayString()
				}
				if text == "" {
					continue
				}
				if showCode {
					fmt.Printf("%-30s %s\n", text, label.FormatCode(l))
					continue
				}
				fmt.Println(text)
			}
			return nil
		},
	}
	cmd.Flags().String("within", "", "List only labels within this provision")
	cmd.Flags().Bool("code", false, "Show each label's code attribute")
	cmd.Flags().Bool("display", false, "Show display strings instead of id strings")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [statute...]",
		Short: "Render statutes and serve the pages over HTTP",
		Long: `Render statutes and serve their pages.

Routes:
  GET /health
  GET /statutes
  GET /statutes/{name}/pages
  GET /statutes/{name}/pages/{page}
  GET /statutes/{name}/provisions/{id}

With --watch the source files are watched and statutes re-rendered and
republished when they change.

Example:
  statwiki serve --format markdown --listen :8080 --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			listen, _ := cmd.Flags().GetString("listen")
			watchFiles, _ := cmd.Flags().GetBool("watch")

			s, err := loadSite(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()
			if listen == "" {
				listen = s.cfg.Listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srcs, err := s.sources(args)
			if err != nil {
				return err
			}
			srv := server.NewServer(s.renderer, s.catalog, s.log)
			results, err := s.renderAll(ctx, srcs)
			if err != nil {
				return err
			}
			for _, res := range results {
				srv.Publish(server.NewEdition(res.Statute, s.renderer))
			}

			if watchFiles {
				w, err := s.watcher(srcs, func(res renderResult) {
					srv.Publish(server.NewEdition(res.Statute, s.renderer))
				})
				if err != nil {
					return err
				}
				go func() {
					if err := w.Run(ctx); err != nil {
						s.log.Error("watcher stopped", "error", err)
					}
				}()
			}

			httpServer := &http.Server{
				Addr:         listen,
				Handler:      srv,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  60 * time.Second,
			}
			go func() {
				<-ctx.Done()
				s.log.Info("shutting down...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				httpServer.Shutdown(shutdownCtx)
			}()

			s.log.Info("starting statwiki", "listen", listen, "statutes", len(results))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().String("listen", "", "Listen address (overrides listen)")
	cmd.Flags().Bool("watch", false, "Re-render statutes when their files change")
	return cmd
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [statute...]",
		Short: "Re-render statutes when their files change",
		Long: `Render the statutes once, then watch their source files and re-render
each statute after its file has been quiet for the debounce interval.

Example:
  statwiki watch
  statwiki watch "Criminal Code" --debounce 2s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSite(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()
			if cmd.Flags().Changed("debounce") {
				d, _ := cmd.Flags().GetDuration("debounce")
				s.cfg.Debounce = config.Duration(d)
			}

			srcs, err := s.sources(args)
			if err != nil {
				return err
			}
			results, err := s.renderAll(cmd.Context(), srcs)
			if err != nil {
				return err
			}
			for _, res := range results {
				printChanges(res)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w, err := s.watcher(srcs, printChanges)
			if err != nil {
				return err
			}
			return w.Run(ctx)
		},
	}
	cmd.Flags().String("output", "", "Output directory (overrides output_dir)")
	cmd.Flags().Duration("debounce", 0, "Quiet period before re-rendering (overrides debounce)")
	return cmd
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog [statute]",
		Short: "Show catalogued statutes or the links into one",
		Long: `Without arguments, list every statute recorded in the catalog. With a
statute name, list the provisions of other statutes that link to it.

Example:
  statwiki catalog
  statwiki catalog "Criminal Code"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSite(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()
			if s.catalog == nil {
				return fmt.Errorf("no catalog configured")
			}
			ctx := cmd.Context()

			if len(args) == 0 {
				recs, err := s.catalog.Statutes(ctx)
				if err != nil {
					return err
				}
				if len(recs) == 0 {
					fmt.Println("No statutes catalogued.")
					return nil
				}
				for _, rec := range recs {
					fmt.Printf("%-40s %-10s %5d sections  %s\n", rec.Name, rec.Kind, rec.Sections, rec.Citation)
				}
				return nil
			}

			links, err := s.catalog.LinksTo(ctx, args[0])
			if err != nil {
				return err
			}
			if len(links) == 0 {
				fmt.Printf("Nothing links to %s.\n", args[0])
				return nil
			}
			for from, ls := range links {
				fmt.Printf("%s:\n", from)
				for _, l := range ls {
					status := "resolved"
					if !l.Resolved {
						status = "unresolved"
					}
					fmt.Printf("  %-20s %q (%s)\n", l.From, l.Reference, status)
				}
			}
			return nil
		},
	}
	return cmd
}

func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [statute...]",
		Short: "Download statutes from their landing pages",
		Long: `Download the XML of configured statutes that have a url.

The landing page is read first; the XML is downloaded only when the page
reports an amendment newer than the last fetch, or with --force. Files are
written to each statute's path, compressed when the path ends in .xz, with
the fetch record alongside.

Example:
  statwiki fetch
  statwiki fetch "Criminal Code" --force
  statwiki fetch --check`,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			checkOnly, _ := cmd.Flags().GetBool("check")
			interval, _ := cmd.Flags().GetDuration("rate-limit")

			s, err := loadSite(cmd, false)
			if err != nil {
				return err
			}
			srcs, err := s.sources(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			f := fetch.New(fetch.NewRateLimitedClient(&http.Client{Timeout: fetch.DefaultTimeout}, interval))

			for _, src := range srcs {
				if src.URL == "" {
					s.log.Debug("no url configured", "statute", src.Name)
					continue
				}
				prior, err := fetch.ReadRecord(src.Path)
				if err != nil {
					return err
				}
				landing, err := f.Check(ctx, src.URL)
				if err != nil {
					return fmt.Errorf("%s: %w", src.Name, err)
				}
				stale := fetch.NeedsUpdate(prior, landing)
				if checkOnly {
					state := "up to date"
					if stale {
						state = "amended"
					}
					fmt.Printf("%s: %s (last amended %s, current to %s)\n", src.Name, state,
						landing.Amended.Format("2006-01-02"), landing.Currency.Format("2006-01-02"))
					continue
				}
				if !stale && !force {
					fmt.Printf("%s: up to date\n", src.Name)
					continue
				}

				res, err := f.Fetch(ctx, src.URL)
				if err != nil {
					return fmt.Errorf("%s: %w", src.Name, err)
				}
				changed, err := fetch.Save(src.Path, res)
				if err != nil {
					return fmt.Errorf("%s: %w", src.Name, err)
				}
				if changed {
					fmt.Printf("%s: downloaded to %s\n", src.Name, src.Path)
				} else {
					fmt.Printf("%s: unchanged\n", src.Name)
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Download even when no newer amendment is reported")
	cmd.Flags().Bool("check", false, "Only report which statutes have been amended")
	cmd.Flags().Duration("rate-limit", fetch.DefaultRateLimit, "Minimum interval between requests")
	return cmd
}

// watcher builds a file watcher whose rebuild re-renders one statute and
// hands the result to publish.
func (s *site) watcher(srcs []config.StatuteSource, publish func(renderResult)) (*watch.Watcher, error) {
	files := make(map[string]string, len(srcs))
	byName := make(map[string]config.StatuteSource, len(srcs))
	for _, src := range srcs {
		name := src.Name
		if name == "" {
			name = src.Path
		}
		files[name] = src.Path
		byName[name] = src
	}

	rebuild := func(ctx context.Context, name string) error {
		results, err := s.renderAll(ctx, []config.StatuteSource{byName[name]})
		if err != nil {
			return err
		}
		publish(results[0])
		return nil
	}
	return watch.New(files, time.Duration(s.cfg.Debounce), rebuild, s.log)
}
