package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"doc-compare/internal/align"
	"doc-compare/internal/compare"
	"doc-compare/internal/config"
	"doc-compare/internal/database"
	"doc-compare/internal/llm"
	"doc-compare/internal/models"
	"doc-compare/internal/processor"
	"doc-compare/internal/render"
	"doc-compare/internal/segment"
	"doc-compare/internal/server"
	"doc-compare/internal/similarity"

	"github.com/urfave/cli/v2"
)

// app holds the components built from the global flags
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	comparator *compare.Comparator
	segmenters *segment.Registry
}

func setup(c *cli.Context) (*app, error) {
	cfg := config.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if v := c.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := c.String("log-format"); v != "" {
		cfg.Log.Format = v
	}
	if v := c.String("db"); v != "" {
		cfg.Store.DSN = v
	}
	if c.IsSet("strategy") {
		cfg.Segment.Strategy = c.String("strategy")
	}
	if c.IsSet("listen") {
		cfg.Server.Listen = c.String("listen")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	var detector segment.SectionDetector
	if cfg.Segment.Strategy == string(segment.StrategyLLM) || cfg.LLM.Host != "" {
		client, err := llm.NewOllamaLLM(cfg.LLM, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		detector = client
	}

	segmenters := segment.NewRegistry(cfg, detector, logger)
	processors := processor.NewRegistry(cfg, logger)

	return &app{
		cfg:        cfg,
		logger:     logger,
		comparator: compare.New(cfg, processors, segmenters, logger),
		segmenters: segmenters,
	}, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func (a *app) openStore(ctx context.Context) (database.Store, error) {
	if a.cfg.Store.DSN == "" {
		return nil, errors.New("no comparison store configured (use --db or store.dsn)")
	}
	store, err := database.Open(ctx, a.cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func documentArgs(c *cli.Context, n int) ([]models.Document, error) {
	if c.NArg() != n {
		return nil, fmt.Errorf("expected %d file argument(s), got %d", n, c.NArg())
	}
	docs := make([]models.Document, n)
	for i := range docs {
		docs[i] = models.Document{Path: c.Args().Get(i)}
	}
	return docs, nil
}

func compareAction(c *cli.Context) error {
	docs, err := documentArgs(c, 2)
	if err != nil {
		return err
	}
	a, err := setup(c)
	if err != nil {
		return err
	}
	ctx := c.Context

	start := time.Now()
	result, err := a.comparator.Compare(ctx, docs[0], docs[1])
	if err != nil {
		return err
	}
	a.logger.Debug("compared", "elapsed", time.Since(start))

	if c.Bool("store") {
		store, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveComparison(ctx, result); err != nil {
			return err
		}
		a.logger.Info("comparison saved", "id", result.ID)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if err := render.Report(os.Stdout, result); err != nil {
		return err
	}
	if !c.Bool("diff") || len(result.UnitResults) == 0 {
		return nil
	}

	// the result carries scores only, so sections are segmented again
	segA, err := a.comparator.WithStrategy(segment.Strategy(result.Strategy)).SegmentDocument(ctx, docs[0])
	if err != nil {
		return err
	}
	segB, err := a.comparator.WithStrategy(segment.Strategy(result.Strategy)).SegmentDocument(ctx, docs[1])
	if err != nil {
		return err
	}
	color := isTerminal(os.Stdout)
	for _, pair := range align.Align(segA.Sections, segB.Sections) {
		fmt.Printf("\n== %s ==\n", pair.Key)
		if err := render.Terminal(os.Stdout, similarity.RenderDiff(pair.ContentA, pair.ContentB), color); err != nil {
			return err
		}
	}
	return nil
}

func segmentAction(c *cli.Context) error {
	docs, err := documentArgs(c, 1)
	if err != nil {
		return err
	}
	a, err := setup(c)
	if err != nil {
		return err
	}

	res, err := a.comparator.SegmentDocument(c.Context, docs[0])
	if err != nil {
		return err
	}
	keys := res.Sections.Keys()
	align.SortKeys(keys)

	fmt.Printf("Strategy: %s, %d sections, %d skipped\n", res.Strategy, len(keys), res.Skipped)
	for _, k := range keys {
		fmt.Printf("\n[%s] %s\n", k, preview(res.Sections[k], 200))
	}
	return nil
}

func paragraphsAction(c *cli.Context) error {
	docs, err := documentArgs(c, 1)
	if err != nil {
		return err
	}
	a, err := setup(c)
	if err != nil {
		return err
	}

	blocks, err := a.comparator.ExtractParagraphBlocks(c.Context, docs[0])
	if err != nil {
		return err
	}
	for _, b := range blocks {
		style := ""
		if b.Style != "" {
			style = " (" + b.Style + ")"
		}
		fmt.Printf("#%d p.%d%s\n%s\n\n", b.Index, b.Page, style, b.Text)
	}
	fmt.Printf("Total: %d paragraphs\n", len(blocks))
	return nil
}

func diffAction(c *cli.Context) error {
	docs, err := documentArgs(c, 2)
	if err != nil {
		return err
	}
	a, err := setup(c)
	if err != nil {
		return err
	}

	textA, err := a.comparator.ExtractText(c.Context, docs[0])
	if err != nil {
		return err
	}
	textB, err := a.comparator.ExtractText(c.Context, docs[1])
	if err != nil {
		return err
	}

	color := isTerminal(os.Stdout)
	if c.Bool("lines") {
		return render.TerminalLines(os.Stdout, similarity.RenderLineDiff(textA, textB), color)
	}
	return render.Terminal(os.Stdout, similarity.RenderDiff(textA, textB), color)
}

func serveAction(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}

	var store database.Store
	if a.cfg.Store.DSN != "" {
		store, err = a.openStore(c.Context)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	return server.New(a.cfg, a.comparator, a.segmenters, store, a.logger).ListenAndServe()
}

func historyAction(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	store, err := a.openStore(c.Context)
	if err != nil {
		return err
	}
	defer store.Close()

	if id := c.Args().First(); id != "" {
		result, err := store.GetComparison(c.Context, id)
		if err != nil {
			return fmt.Errorf("failed to get comparison %s: %w", id, err)
		}
		fmt.Printf("Comparison %s (%s)\n\n", result.ID, result.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		return render.Report(os.Stdout, result)
	}

	list, err := store.ListComparisons(c.Context, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list comparisons: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No comparisons found")
		return nil
	}

	fmt.Printf("%-36s  %-19s  %-10s  %-10s  %-24s  %-24s\n", "ID", "Created", "Strategy", "Similarity", "A", "B")
	fmt.Println(strings.Repeat("-", 132))
	for _, s := range list {
		fmt.Printf("%-36s  %-19s  %-10s  %9.2f%%  %-24s  %-24s\n",
			s.ID,
			s.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			s.Strategy,
			s.Similarity*100,
			s.NameA,
			s.NameB,
		)
	}
	fmt.Printf("\nTotal: %d comparisons\n", len(list))
	return nil
}

func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
