package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/docsync/internal/content"
	"github.com/Kamar-Folarin/docsync/internal/logging"
)

func setupPipeline(t *testing.T, opts Options) (*Pipeline, *content.SQLiteStore, string) {
	t.Helper()
	dir := t.TempDir()

	store, err := content.NewSQLiteStore(filepath.Join(dir, "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewPipeline(Settings{Provider: "local"}, opts, store, logging.Discard()), store, dir
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want FileType
	}{
		{"/a/notes.txt", FileTypePlain},
		{"/a/README.MD", FileTypeMarkdown},
		{"/a/page.htm", FileTypeHTML},
		{"/a/image.png", FileTypeUnknown},
		{"/a/noext", FileTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.path))
		})
	}
}

func TestPipeline_Ingest(t *testing.T) {
	ctx := context.Background()

	t.Run("plain text is split with overlap", func(t *testing.T) {
		p, store, dir := setupPipeline(t, Options{ChunkWords: 4, ChunkOverlap: 1})
		path := writeFile(t, dir, "a.txt", "one two three four five six seven")

		res, err := p.Ingest(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Written)

		n, err := store.CountBySource(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("markdown keeps its heading as title", func(t *testing.T) {
		p, store, dir := setupPipeline(t, Options{ChunkWords: 50})
		path := writeFile(t, dir, "b.md", "# Release Plan\n\nShip the **docs** [today](http://x).\n")

		res, err := p.Ingest(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Written)

		docs, err := store.Search(ctx, "ship the docs today")
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "Release Plan", docs[0].Title)
	})

	t.Run("unclassified file is skipped", func(t *testing.T) {
		p, _, dir := setupPipeline(t, Options{ChunkWords: 50})
		path := writeFile(t, dir, "c.bin", "binary")

		res, err := p.Ingest(ctx, path)
		require.NoError(t, err)
		assert.Zero(t, res.Written)
	})

	t.Run("empty text file writes nothing", func(t *testing.T) {
		p, _, dir := setupPipeline(t, Options{ChunkWords: 50})
		path := writeFile(t, dir, "d.txt", "   \n\n  ")

		res, err := p.Ingest(ctx, path)
		require.NoError(t, err)
		assert.Zero(t, res.Written)
	})

	t.Run("re-ingesting a file replaces its chunks", func(t *testing.T) {
		p, store, dir := setupPipeline(t, Options{ChunkWords: 50})
		path := writeFile(t, dir, "e.txt", "first version")

		for i := 0; i < 3; i++ {
			_, err := p.Ingest(ctx, path)
			require.NoError(t, err)
		}
		n, err := store.CountBySource(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		writeFile(t, dir, "e.txt", "  ")
		res, err := p.Ingest(ctx, path)
		require.NoError(t, err)
		assert.Zero(t, res.Written)

		n, err = store.CountBySource(ctx, path)
		require.NoError(t, err)
		assert.Zero(t, n, "an emptied file leaves no stale chunks")
	})

	t.Run("missing file errors", func(t *testing.T) {
		p, _, dir := setupPipeline(t, Options{ChunkWords: 50})

		_, err := p.Ingest(ctx, filepath.Join(dir, "gone.txt"))
		assert.Error(t, err)
	})
}

func TestSplitWords(t *testing.T) {
	words := strings.Fields("a b c d e f g h i j")

	chunks := splitWords(strings.Join(words, " "), 4, 2)
	assert.Equal(t, []string{"a b c d", "c d e f", "e f g h", "g h i j"}, chunks)

	assert.Equal(t, []string{"a b c"}, splitWords("a b c", 10, 0))
	assert.Nil(t, splitWords("", 10, 0))
	// overlap >= size falls back to no overlap
	assert.Equal(t, []string{"a b", "c"}, splitWords("a b c", 2, 5))
}

func TestClean(t *testing.T) {
	assert.Equal(t, "a b\n\nc", clean("  a \t b \r\n\n\n\n c  "))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(Options{ChunkWords: 10}, nil, logging.Discard())

	a := r.Get(Settings{Provider: "p", Model: "m"})
	assert.Same(t, a, r.Get(Settings{Provider: "p", Model: "m"}))
	assert.NotSame(t, a, r.Get(Settings{Provider: "p", Model: "other"}))
	assert.Equal(t, "p", a.settings.Provider)
	assert.Same(t, a, r.Ingester(Settings{Provider: "p", Model: "m"}))

	r.Invalidate()
	assert.NotSame(t, a, r.Get(Settings{Provider: "p", Model: "m"}))
}
