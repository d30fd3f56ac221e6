package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/fatih/color"
	"github.com/iishyfishyy/yehdekho/internal/api"
	"github.com/iishyfishyy/yehdekho/internal/catalog"
	"github.com/iishyfishyy/yehdekho/internal/config"
	"github.com/iishyfishyy/yehdekho/internal/executor"
	"github.com/iishyfishyy/yehdekho/internal/history"
	"github.com/iishyfishyy/yehdekho/internal/logging"
	"github.com/iishyfishyy/yehdekho/internal/poster"
	"github.com/iishyfishyy/yehdekho/internal/recommend"
	"github.com/iishyfishyy/yehdekho/internal/recommend/matrixstore"
	"github.com/iishyfishyy/yehdekho/internal/ui"

	"github.com/spf13/cobra"
)

var (
	// version is set by goreleaser at build time
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// CLI flags
	debug        bool
	catalogPath  string
	topK         int
	forceReindex bool
	searchQuery  string
	historyLimit int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "yehdekho [movie title]",
		Short:        "Movie recommendations from a local catalog",
		Long:         "yehdekho recommends movies similar to one you liked, using tag similarity over your catalog",
		Version:      fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE:         runRecommend,
	}

	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&catalogPath, "catalog", "c", "", "Path to the movie catalog (csv, json or yaml)")
	rootCmd.Flags().IntVarP(&topK, "top", "k", 0, "Number of recommendations (defaults to engine.top_k)")

	configureCmd := &cobra.Command{
		Use:   "configure",
		Short: "Configure the catalog, cache and poster lookups",
		RunE:  runConfigure,
	}

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Build and cache the similarity matrix",
		RunE:  runIndex,
	}
	indexCmd.Flags().BoolVarP(&forceReindex, "force", "f", false, "Force rebuilding (bypass cache)")

	listMoviesCmd := &cobra.Command{
		Use:   "list-movies",
		Short: "List catalog titles",
		RunE:  runListMovies,
	}
	listMoviesCmd.Flags().StringVarP(&searchQuery, "search", "s", "", "Only list titles matching this text")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent recommendation queries",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recommendations over HTTP",
		RunE:  runServe,
	}

	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(listMoviesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config, applies flag overrides and configures logging
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if catalogPath != "" {
		cfg.Catalog.Path = catalogPath
	}
	if debug {
		cfg.Log.Level = "debug"
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	if cfg.Catalog.Path == "" {
		return nil, fmt.Errorf("no catalog configured: run 'yehdekho configure' or pass --catalog")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// openStore returns the matrix cache selected by engine.cache. The returned
// close function is never nil.
func openStore(cfg *config.Config) (matrixstore.Store, func(), error) {
	noop := func() {}

	switch cfg.Engine.Cache {
	case config.CacheNone:
		return nil, noop, nil
	case config.CacheMemory:
		return matrixstore.NewMemoryStore(), noop, nil
	default:
		path, err := cfg.ResolveCachePath()
		if err != nil {
			return nil, noop, err
		}
		store, err := matrixstore.NewSQLiteStore(path)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open matrix cache: %w", err)
		}
		logging.Debug().Str("component", "engine").Str("path", path).Msg("opened matrix cache")
		return store, func() { _ = store.Close() }, nil
	}
}

// newEngine loads the catalog and creates an engine backed by the configured cache
func newEngine(cfg *config.Config) (*recommend.Engine, matrixstore.Store, func(), error) {
	movies, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	engine, err := recommend.NewEngine(catalog.ToCorpus(movies), recommend.EngineConfig{
		MaxTerms: cfg.Engine.MaxTerms,
		Store:    store,
	})
	if err != nil {
		closeStore()
		return nil, nil, nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return engine, store, closeStore, nil
}

// newFetcher returns an OMDb fetcher, or a no-op one when posters are off
func newFetcher(cfg *config.Config) poster.Fetcher {
	if !cfg.Poster.Enabled || cfg.Poster.APIKey == "" {
		logging.Debug().Str("component", "poster").Msg("poster lookups disabled")
		return poster.NopFetcher{}
	}

	f, err := poster.NewOMDbFetcher(poster.OMDbConfig{
		APIKey:           cfg.Poster.APIKey,
		BaseURL:          cfg.Poster.BaseURL,
		Timeout:          cfg.Poster.Timeout,
		RatePerSecond:    cfg.Poster.RatePerSecond,
		FailureThreshold: cfg.Poster.FailureThreshold,
	})
	if err != nil {
		logging.Warn().Err(err).Msg("poster lookups disabled")
		return poster.NopFetcher{}
	}
	return f
}

// runRecommend handles the root command
func runRecommend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		if exists, _ := config.Exists(); !exists && catalogPath == "" {
			ui.ShowInfo("No configuration found. Let's set up yehdekho.\n")
			return runConfigure(cmd, args)
		}
		return err
	}

	engine, _, closeStore, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	fetcher := newFetcher(cfg)

	k := cfg.Engine.TopK
	if topK > 0 {
		k = topK
	}

	hist, err := history.Load()
	if err != nil {
		logging.Warn().Err(err).Msg("history unavailable")
		hist = &history.History{}
	}

	interactive := ui.IsInteractive()
	ctx := context.Background()

	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		if !interactive {
			return fmt.Errorf("a movie title is required when not running in a terminal")
		}
		if title, err = ui.SelectMovie(engine.Corpus().Titles(), 15); err != nil {
			return err
		}
	}

	for {
		if !engine.Stats().Built {
			ui.ShowInfo("Finding similar movies...")
		}

		results, err := engine.Recommend(ctx, title, k)
		if errors.Is(err, recommend.ErrItemNotFound) {
			recordHistory(hist, history.NewEntry(title, nil, history.ActionNotFound))

			suggestions := engine.FindTitles(title, 10)
			ui.ShowWarning(fmt.Sprintf("%q is not in the catalog", title))
			if !interactive {
				if len(suggestions) > 0 {
					ui.ShowInfo("Did you mean: " + strings.Join(suggestions, ", "))
				}
				return err
			}
			if len(suggestions) == 0 {
				suggestions = engine.Corpus().Titles()
			}
			if title, err = ui.SelectMovie(suggestions, 15); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}

		rows := buildRows(results, poster.FetchAll(ctx, fetcher, resultTitles(results), poster.DefaultConcurrency))
		ui.ShowRecommendations(title, rows)

		if !interactive {
			recordHistory(hist, history.NewEntry(title, resultTitles(results), history.ActionViewed))
			return nil
		}

		next, err := chooseNext(hist, title, rows, engine.Corpus().Titles())
		if err != nil {
			return err
		}
		if next == "" {
			return nil
		}
		title = next
	}
}

// chooseNext runs the action menu after results are shown. It returns the
// next title to recommend for, or "" to quit.
func chooseNext(hist *history.History, query string, rows []ui.Row, allTitles []string) (string, error) {
	titles := make([]string, len(rows))
	var withPosters []string
	for i, r := range rows {
		titles[i] = r.Title
		if r.Poster != "" {
			withPosters = append(withPosters, r.Title)
		}
	}

	action := history.ActionViewed
	defer func() {
		recordHistory(hist, history.NewEntry(query, titles, action))
	}()

	for {
		choice, err := ui.ChooseAction(len(withPosters) > 0)
		if err != nil {
			return "", err
		}

		switch choice {
		case ui.ActionAnother:
			return ui.SelectMovie(allTitles, 15)

		case ui.ActionCopy:
			if err := clipboard.WriteAll(ui.TitlesText(rows)); err != nil {
				ui.ShowError(fmt.Sprintf("Failed to copy to clipboard: %v", err))
			} else {
				ui.ShowSuccess("Titles copied to clipboard!")
				action = history.ActionCopied
			}

		case ui.ActionOpenPoster:
			selected, err := ui.ShowMenu("Which poster?", withPosters)
			if err != nil {
				return "", err
			}
			for _, r := range rows {
				if r.Title == withPosters[selected] {
					if err := executor.OpenURL(r.Poster); err != nil {
						ui.ShowError(fmt.Sprintf("Failed to open poster: %v", err))
					} else {
						action = history.ActionOpenPoster
					}
					break
				}
			}

		default:
			return "", nil
		}
	}
}

func recordHistory(hist *history.History, entry history.Entry) {
	hist.AddEntry(entry)
	if err := hist.Save(); err != nil {
		// Log error but don't fail
		logging.Warn().Err(err).Msg("failed to save history")
	}
}

func resultTitles(results []recommend.Result) []string {
	titles := make([]string, len(results))
	for i, r := range results {
		titles[i] = r.Title
	}
	return titles
}

// buildRows pairs ranked results with their poster URLs
func buildRows(results []recommend.Result, posters []string) []ui.Row {
	rows := make([]ui.Row, len(results))
	for i, r := range results {
		rows[i] = ui.Row{Rank: i + 1, Title: r.Title, Score: r.Score}
		if i < len(posters) {
			rows[i].Poster = posters[i]
		}
	}
	return rows
}

// runIndex builds the similarity matrix and stores it in the cache
func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	engine, store, closeStore, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()

	if store == nil {
		ui.ShowWarning("engine.cache is 'none'; the matrix will not be reused by later runs")
	} else if forceReindex {
		if err := store.Delete(ctx, engine.Stats().Fingerprint); err != nil {
			return fmt.Errorf("failed to clear cached matrix: %w", err)
		}
	}

	ui.ShowInfo(fmt.Sprintf("Indexing %d movies...", engine.Len()))
	if _, err := engine.Matrix(ctx); err != nil {
		return fmt.Errorf("failed to build similarity matrix: %w", err)
	}

	stats := engine.Stats()
	if stats.FromCache {
		ui.ShowSuccess("Similarity matrix is already cached (use --force to rebuild)")
	} else {
		ui.ShowSuccess(fmt.Sprintf("Built similarity matrix in %s", stats.BuildDuration.Round(time.Millisecond)))
	}

	ui.ShowSection("Index")
	fmt.Printf("  Movies:      %d\n", stats.Items)
	fmt.Printf("  Vocabulary:  %d terms (max %d)\n", stats.VocabularySize, cfg.Engine.MaxTerms)
	fmt.Printf("  Fingerprint: %s\n", stats.Fingerprint)
	if store != nil {
		fmt.Printf("  Cached:      %d matrices (%s)\n", store.Count(), cfg.Engine.Cache)
	}
	fmt.Println()

	return nil
}

// runListMovies prints catalog titles, optionally filtered
func runListMovies(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	movies, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	corpus := catalog.ToCorpus(movies)

	titles := corpus.Titles()
	if searchQuery != "" {
		titles = recommend.FindTitles(corpus, searchQuery, 0)
	}

	if len(titles) == 0 {
		ui.ShowWarning("No matching movies")
		return nil
	}

	for _, t := range titles {
		fmt.Println(t)
	}
	if searchQuery != "" {
		ui.ShowInfo(fmt.Sprintf("\n%d of %d movies match %q", len(titles), len(corpus), searchQuery))
	}

	return nil
}

// runHistory prints recent queries, newest first
func runHistory(cmd *cobra.Command, args []string) error {
	hist, err := history.Load()
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	entries := hist.Recent(historyLimit)
	if len(entries) == 0 {
		ui.ShowInfo("No history yet. Try: yehdekho \"Avatar\"")
		return nil
	}

	bold := color.New(color.Bold)
	gray := color.New(color.FgHiBlack)
	for _, e := range entries {
		when := formatDuration(e.Timestamp)
		if when != "just now" {
			when += " ago"
		}
		bold.Printf("%s", e.Query)
		gray.Printf("  %s, %s\n", when, e.Action)
		if len(e.Results) > 0 {
			fmt.Printf("  %s\n", strings.Join(e.Results, ", "))
		}
	}

	return nil
}

// runServe starts the HTTP API
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	engine, _, closeStore, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// build before accepting requests so the first caller doesn't pay for it
	if _, err := engine.Matrix(ctx); err != nil {
		return fmt.Errorf("failed to build similarity matrix: %w", err)
	}

	server := api.NewServer(api.Config{
		Addr:              cfg.Server.Addr,
		DefaultK:          cfg.Engine.TopK,
		RequestsPerMinute: cfg.Server.RequestsPerMinute,
		PosterConcurrency: poster.DefaultConcurrency,
	}, engine, newFetcher(cfg))

	ui.ShowSuccess(fmt.Sprintf("Serving %d movies on %s", engine.Len(), cfg.Server.Addr))
	if err := server.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// formatDuration formats a time.Time as "X ago"
func formatDuration(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return "just now"
	} else if duration < time.Hour {
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	} else if duration < 24*time.Hour {
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}
