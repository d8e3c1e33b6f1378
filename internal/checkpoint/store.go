// Package checkpoint persists built artefacts between runs so the engine can
// load them instead of rebuilding. Checkpoints are a cache: a missing or
// unreadable checkpoint only costs a rebuild.
package checkpoint

import (
	"context"
	"log/slog"
)

// Store loads and saves gob-encodable values by name.
type Store interface {
	// Load decodes the checkpoint name into v. found is false when there is
	// no checkpoint.
	Load(ctx context.Context, name string, v any) (found bool, err error)
	Save(ctx context.Context, name string, v any) error
	// Reset removes every checkpoint.
	Reset(ctx context.Context) error
	Close() error
}

// Result labels the outcome of LoadOrBuild for metrics.
type Result string

const (
	ResultHit   Result = "hit"
	ResultMiss  Result = "miss"
	ResultError Result = "error"
)

// LoadOrBuild returns the checkpoint name when present, otherwise the value
// produced by build, which is then saved. Store failures are logged and never
// change the returned value.
func LoadOrBuild[T any](ctx context.Context, store Store, name string, build func(context.Context) (T, error), observe func(Result)) (T, error) {
	logger := slog.Default().With("component", "checkpoint", "artifact", name)
	if observe == nil {
		observe = func(Result) {}
	}

	var v T
	found, err := store.Load(ctx, name, &v)
	switch {
	case err != nil:
		observe(ResultError)
		logger.Warn("checkpoint unreadable, rebuilding", "error", err)
	case found:
		observe(ResultHit)
		logger.Info("loaded from checkpoint")
		return v, nil
	default:
		observe(ResultMiss)
	}

	v, err = build(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := store.Save(ctx, name, v); err != nil {
		logger.Warn("saving checkpoint failed", "error", err)
	}
	return v, nil
}

// Nop never finds a checkpoint and discards saves.
type Nop struct{}

func (Nop) Load(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Save(context.Context, string, any) error         { return nil }
func (Nop) Reset(context.Context) error                     { return nil }
func (Nop) Close() error                                    { return nil }
