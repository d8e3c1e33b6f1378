package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/checkpoint"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/engine/enginetest"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/internal/graph"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/config"
)

// writeCorpus lays the fixture catalog out on disk the way a file catalog
// is configured.
func writeCorpus(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	textDir := filepath.Join(dir, "texts")
	require.NoError(t, os.MkdirAll(textDir, 0o755))

	lib := enginetest.Catalog()
	books := make([]any, 0, len(lib))
	for _, id := range lib.IDs() {
		books = append(books, lib[id])
	}
	data, err := json.Marshal(map[string]any{"results": books})
	require.NoError(t, err)
	booksFile := filepath.Join(dir, "books.json")
	require.NoError(t, os.WriteFile(booksFile, data, 0o644))

	for id, text := range enginetest.CatalogTexts() {
		require.NoError(t, os.WriteFile(filepath.Join(textDir, strconv.Itoa(id)+".txt"), []byte(text), 0o644))
	}

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Catalog = config.CatalogConfig{Source: "file", BooksFile: booksFile, TextDir: textDir}
	cfg.Checkpoint = config.CheckpointConfig{Enabled: true, InMemory: true}
	return cfg
}

func TestBuildFromFileCatalog(t *testing.T) {
	ctx := context.Background()
	cfg := writeCorpus(t)

	cat, err := OpenCatalog(ctx, cfg)
	require.NoError(t, err)
	defer cat.Close()
	assert.Nil(t, cat.Postgres)

	store, err := OpenCheckpoints(cfg.Checkpoint)
	require.NoError(t, err)
	defer store.Close()

	snap, err := BuildSnapshot(ctx, cfg, cat, store, BuildOptions{})
	require.NoError(t, err)
	assert.Len(t, snap.Library, 6)
	assert.Equal(t, []int{2, 3}, snap.Authors.Lookup("london"))

	var ranking graph.Ranking
	found, err := store.Load(ctx, engine.ArtifactCloseness, &ranking)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, snap.Closeness, ranking)

	snap, err = BuildSnapshot(ctx, cfg, cat, store, BuildOptions{Fresh: true})
	require.NoError(t, err)
	assert.Len(t, snap.Library, 6)
}

func TestOpenCheckpointsDisabled(t *testing.T) {
	store, err := OpenCheckpoints(config.CheckpointConfig{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, checkpoint.Nop{}, store)
}

func TestOpenCatalogUnknownSource(t *testing.T) {
	cfg := writeCorpus(t)
	cfg.Catalog.Source = "s3"
	_, err := OpenCatalog(context.Background(), cfg)
	assert.Error(t, err)
}
