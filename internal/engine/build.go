package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/checkpoint"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/graph"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/language"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/library"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/workpool"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/tracing"
)

// Checkpoint names of the artefacts.
const (
	ArtifactLibrary   = "library"
	ArtifactKeywords  = "keywords"
	ArtifactTitles    = "titles"
	ArtifactAuthors   = "authors"
	ArtifactJaccard   = "jaccard"
	ArtifactCloseness = "closeness"
)

type Builder struct {
	source    library.Source
	texts     library.TextStore
	languages *language.Registry
	store     checkpoint.Store
	pool      *workpool.Pool
	metrics   *metrics.Metrics
	trace     bool
	logger    *slog.Logger
}

type Option func(*Builder)

func WithCheckpoints(store checkpoint.Store) Option {
	return func(b *Builder) { b.store = store }
}

func WithPool(pool *workpool.Pool) Option {
	return func(b *Builder) { b.pool = pool }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithTracing logs a span tree of the build stages when Build finishes.
func WithTracing(enabled bool) Option {
	return func(b *Builder) { b.trace = enabled }
}

func NewBuilder(source library.Source, texts library.TextStore, languages *language.Registry, opts ...Option) *Builder {
	b := &Builder{
		source:    source,
		texts:     texts,
		languages: languages,
		store:     checkpoint.Nop{},
		logger:    slog.Default().With("component", "engine"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build produces a Snapshot. Each artefact is loaded from the checkpoint
// store or built from the previous ones and saved.
func (b *Builder) Build(ctx context.Context) (*Snapshot, error) {
	ctx, root := tracing.Start(ctx, "engine.build")
	defer func() {
		root.End()
		if b.trace {
			root.Log(b.logger)
		}
	}()
	start := time.Now()

	lib, err := stage(ctx, b, ArtifactLibrary, func(ctx context.Context) (library.Library, error) {
		return b.source.Load(ctx)
	})
	if err != nil {
		return nil, err
	}

	ib := index.NewBuilder(b.languages, b.texts,
		index.WithPool(b.pool),
		index.WithSkipHook(func(r index.SkipReason) {
			if b.metrics != nil {
				b.metrics.DocumentsSkipped.WithLabelValues(string(r)).Inc()
			}
		}),
	)

	keywords, err := stage(ctx, b, ArtifactKeywords, func(ctx context.Context) (*index.KeywordDictionary, error) {
		return ib.BuildKeywordIndex(ctx, lib)
	})
	if err != nil {
		return nil, err
	}
	titles, err := stage(ctx, b, ArtifactTitles, func(context.Context) (index.WordIndex, error) {
		return ib.BuildTitleIndex(lib), nil
	})
	if err != nil {
		return nil, err
	}
	authors, err := stage(ctx, b, ArtifactAuthors, func(context.Context) (index.WordIndex, error) {
		return ib.BuildAuthorIndex(lib), nil
	})
	if err != nil {
		return nil, err
	}
	jaccard, err := stage(ctx, b, ArtifactJaccard, func(ctx context.Context) (*graph.Matrix, error) {
		return graph.JaccardMatrix(ctx, keywords, b.pool)
	})
	if err != nil {
		return nil, err
	}
	ranking, err := stage(ctx, b, ArtifactCloseness, func(context.Context) (graph.Ranking, error) {
		r, err := graph.Closeness(jaccard)
		if errors.Is(err, graph.ErrEmptyMatrix) {
			b.logger.Warn("no book has keywords, closeness ranking is empty")
			return graph.Ranking{}, nil
		}
		return r, err
	})
	if err != nil {
		return nil, err
	}

	if b.metrics != nil {
		b.metrics.IndexEntries.WithLabelValues("books").Set(float64(len(lib)))
		b.metrics.IndexEntries.WithLabelValues("stems").Set(float64(len(keywords.StemToBooks)))
		b.metrics.IndexEntries.WithLabelValues("words").Set(float64(len(keywords.WordToStem)))
		b.metrics.IndexEntries.WithLabelValues("titles").Set(float64(len(titles)))
		b.metrics.IndexEntries.WithLabelValues("authors").Set(float64(len(authors)))
		b.metrics.IndexEntries.WithLabelValues("ranked").Set(float64(len(ranking)))
	}
	b.logger.Info("snapshot ready",
		"books", len(lib),
		"stems", len(keywords.StemToBooks),
		"ranked", len(ranking),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return NewSnapshot(lib, keywords, titles, authors, jaccard, ranking), nil
}

func stage[T any](ctx context.Context, b *Builder, name string, build func(context.Context) (T, error)) (T, error) {
	ctx, span := tracing.Start(ctx, name)
	defer span.End()
	start := time.Now()

	v, err := checkpoint.LoadOrBuild(ctx, b.store, name, build, func(r checkpoint.Result) {
		span.SetAttr("checkpoint", string(r))
		if b.metrics != nil {
			b.metrics.CheckpointTotal.WithLabelValues(name, string(r)).Inc()
		}
	})
	if b.metrics != nil {
		b.metrics.BuildDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("building %s: %w", name, err)
	}
	return v, nil
}
