// Package main is the seeding tool. It populates the domain reputation
// table with the curated starter set and, given a sources file, catalogues
// trusted sources with embeddings computed through the configured encoder.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/refcheck/refcheck/internal/config"
	"github.com/refcheck/refcheck/internal/corpus"
	"github.com/refcheck/refcheck/internal/db"
	"github.com/refcheck/refcheck/internal/encoder"
	"github.com/refcheck/refcheck/internal/middleware"
	"github.com/refcheck/refcheck/internal/reference"
	"github.com/refcheck/refcheck/internal/reputation"
)

// sourceEntry is one row of the -sources JSON file. Embeddings are
// computed here, never supplied by the file.
type sourceEntry struct {
	URL              string `json:"url"`
	Title            string `json:"title"`
	ContentText      string `json:"content_text"`
	CredibilityScore int    `json:"credibility_score"`
}

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to optional YAML config file")
	sourcesPath := flag.String("sources", "", "JSON file of trusted sources to catalogue")
	flag.Parse()

	if *help {
		fmt.Println("refcheck Seeder")
		fmt.Println()
		fmt.Println("Usage: seed [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		logger.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	seeded, err := reputation.Seed(ctx, reputation.NewPostgresRepository(conn, logger))
	if err != nil {
		logger.Error("reputation seeding failed", "seeded", seeded, "error", err)
		os.Exit(1)
	}
	logger.Info("reputation table seeded", "domains", seeded)

	if *sourcesPath == "" {
		logger.Info("no sources file given, skipping corpus seeding")
		return
	}

	enc, err := encoder.NewOllamaEncoder(cfg.OllamaHost, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	if err != nil {
		logger.Error("failed to create embedding encoder", "error", err)
		os.Exit(1)
	}

	added, skipped, err := seedCorpus(ctx, *sourcesPath, enc,
		corpus.NewPostgresSourceRepository(conn, logger), logger)
	if err != nil {
		logger.Error("corpus seeding failed", "error", err)
		os.Exit(1)
	}
	logger.Info("corpus seeded", "added", added, "skipped", skipped)
}

// seedCorpus catalogues each entry of the sources file, embedding its
// title and content. Entries whose URL is already catalogued are skipped
// so reruns are safe.
func seedCorpus(ctx context.Context, path string, enc encoder.Encoder, sources corpus.SourceRepository, logger *slog.Logger) (added, skipped int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("read sources file: %w", err)
	}

	var entries []sourceEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, 0, fmt.Errorf("parse sources file: %w", err)
	}

	for _, entry := range entries {
		if entry.URL == "" || entry.Title == "" {
			logger.Warn("skipping source without url or title", "url", entry.URL)
			skipped++
			continue
		}

		domain, err := reference.ExtractDomain(entry.URL)
		if err != nil {
			logger.Warn("skipping source with unparseable url", "url", entry.URL, "error", err)
			skipped++
			continue
		}

		text := entry.Title
		if entry.ContentText != "" {
			text += "\n" + entry.ContentText
		}
		embedding, err := enc.Encode(ctx, text)
		if err != nil {
			return added, skipped, fmt.Errorf("embed source %s: %w", entry.URL, err)
		}
		// A zero vector can never match a query; storing it would only
		// bloat the corpus.
		if corpus.Magnitude(embedding) == 0 {
			logger.Warn("skipping source with degenerate embedding", "url", entry.URL)
			skipped++
			continue
		}

		src := &corpus.TrustedSource{
			URL:              entry.URL,
			Title:            entry.Title,
			ContentText:      entry.ContentText,
			Embedding:        embedding,
			Domain:           domain,
			CredibilityScore: entry.CredibilityScore,
		}
		if err := sources.Add(ctx, src); err != nil {
			if errors.Is(err, corpus.ErrDuplicateURL) {
				skipped++
				continue
			}
			return added, skipped, fmt.Errorf("add source %s: %w", entry.URL, err)
		}
		added++
	}
	return added, skipped, nil
}
