// Package app turns a Config into the running pieces shared by the search
// server and the CLI: the catalog stores, the checkpoint store and the
// engine snapshot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/checkpoint"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/language"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/library"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/workpool"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/postgres"
)

// Catalog is the configured book metadata source and text store. Postgres
// is set only for the postgres source.
type Catalog struct {
	Source   library.Source
	Texts    library.TextStore
	Postgres *postgres.Client
}

func (c *Catalog) Close() error {
	if c.Postgres != nil {
		return c.Postgres.Close()
	}
	return nil
}

// OpenCatalog connects to the catalog named by cfg.Catalog.Source. For
// postgres the books table is created if missing.
func OpenCatalog(ctx context.Context, cfg *config.Config) (*Catalog, error) {
	cat := &Catalog{Texts: library.DirTextStore{Dir: cfg.Catalog.TextDir}}
	switch cfg.Catalog.Source {
	case "file":
		cat.Source = library.FileSource{Path: cfg.Catalog.BooksFile}
	case "postgres":
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connecting to catalog database: %w", err)
		}
		src := library.NewPostgresSource(pg.DB)
		if err := src.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		cat.Source = src
		cat.Postgres = pg
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}
	slog.Info("catalog opened", "source", cfg.Catalog.Source, "text_dir", cfg.Catalog.TextDir)
	return cat, nil
}

// OpenCheckpoints returns the badger store, or a Nop store when
// checkpointing is disabled.
func OpenCheckpoints(cfg config.CheckpointConfig) (checkpoint.Store, error) {
	if !cfg.Enabled {
		return checkpoint.Nop{}, nil
	}
	store, err := checkpoint.OpenBadger(cfg.Dir, cfg.InMemory)
	if err != nil {
		return nil, err
	}
	slog.Info("checkpoint store opened", "dir", cfg.Dir, "in_memory", cfg.InMemory)
	return store, nil
}

// BuildOptions tune BuildSnapshot. Fresh drops every checkpoint first.
type BuildOptions struct {
	Fresh   bool
	Pool    *workpool.Pool
	Metrics *metrics.Metrics
}

// BuildSnapshot loads or builds every artefact of the catalog.
func BuildSnapshot(ctx context.Context, cfg *config.Config, cat *Catalog, store checkpoint.Store, opts BuildOptions) (*engine.Snapshot, error) {
	if store == nil {
		return nil, errors.New("checkpoint store is required")
	}
	if opts.Fresh {
		if err := store.Reset(ctx); err != nil {
			return nil, fmt.Errorf("resetting checkpoints: %w", err)
		}
		slog.Info("checkpoints reset")
	}
	reg, err := language.NewRegistry(cfg.Languages.Precedence, cfg.Languages.ResourceDir)
	if err != nil {
		return nil, fmt.Errorf("loading languages: %w", err)
	}
	b := engine.NewBuilder(cat.Source, cat.Texts, reg,
		engine.WithCheckpoints(store),
		engine.WithPool(opts.Pool),
		engine.WithMetrics(opts.Metrics),
		engine.WithTracing(cfg.Tracing.Enabled),
	)
	return b.Build(ctx)
}
