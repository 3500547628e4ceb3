package indexer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docdex/internal/errors"
	"github.com/Aman-CERP/docdex/internal/input"
	"github.com/Aman-CERP/docdex/internal/schema"
	"github.com/Aman-CERP/docdex/internal/value"
)

func testConfig(path string) schema.IndexConfig {
	return schema.IndexConfig{
		Path: path,
		Fields: []schema.FieldConfig{
			{Name: "id", Type: value.TypeNumber, Stored: true, Indexed: true, Fast: true},
			{Name: "title", Type: value.TypeText, Stored: true, Indexed: true, Tokenized: true},
			{Name: "content", Type: value.TypeText, Stored: true, Indexed: true, Tokenized: true},
		},
		Reload: schema.ReloadManual,
	}
}

// newTestIndexer opens an in-memory index with manual reload, so tests
// control exactly when commits become visible.
func newTestIndexer(t *testing.T) *Indexer {
	t.Helper()
	ix, err := OpenOrCreate(testConfig(""))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func commitJSON(t *testing.T, ix *Indexer, data string) {
	t.Helper()
	u, err := ix.Updater()
	require.NoError(t, err)
	defer u.Close()
	require.NoError(t, u.Add([]byte(data), input.NewConfig(input.TypeJSON, nil, nil)))
	require.NoError(t, u.Commit())
}

func TestOpenOrCreate_RejectsInvalidConfig(t *testing.T) {
	_, err := OpenOrCreate(schema.IndexConfig{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigInvalid))
}

func TestIndexer_AddCommitReloadSearch(t *testing.T) {
	ix := newTestIndexer(t)

	commitJSON(t, ix, `[
		{"id": 1, "title": "hello world", "content": "the first document"},
		{"id": 2, "title": "goodbye", "content": "the second document"}
	]`)
	require.NoError(t, ix.Reload())
	assert.Equal(t, uint64(2), ix.NumDocs())

	hits, err := ix.Search("hello", []string{"title"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "1", hits[0].ID)
	assert.Greater(t, hits[0].Score, 0.0)
	assert.Equal(t, "hello world", hits[0].Fields["title"])

	// Both documents mention "document"; scoring ranks them.
	hits, err = ix.Search("document", []string{"title", "content"}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestIndexer_CommitNotVisibleUntilReload(t *testing.T) {
	ix := newTestIndexer(t)

	commitJSON(t, ix, `{"id": 1, "title": "pending", "content": "x"}`)
	assert.Equal(t, uint64(0), ix.NumDocs())
	hits, err := ix.Search("pending", []string{"title"}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, ix.Reload())
	assert.Equal(t, uint64(1), ix.NumDocs())
	hits, err = ix.Search("pending", []string{"title"}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestIndexer_UpdateByIDIsIdempotent(t *testing.T) {
	ix := newTestIndexer(t)
	cfg := input.NewConfig(input.TypeJSON, nil, nil)

	u, err := ix.Updater()
	require.NoError(t, err)
	require.NoError(t, u.Update([]byte(`{"id": 7, "title": "first version", "content": "x"}`), cfg))
	require.NoError(t, u.Update([]byte(`{"id": 7, "title": "second version", "content": "x"}`), cfg))
	require.NoError(t, u.Commit())
	require.NoError(t, u.Close())
	require.NoError(t, ix.Reload())

	assert.Equal(t, uint64(1), ix.NumDocs())
	hits, err := ix.Search("version", []string{"title"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "second version", hits[0].Fields["title"])
}

func TestIndexer_AddWithoutIDNeverReplaces(t *testing.T) {
	ix := newTestIndexer(t)

	commitJSON(t, ix, `{"title": "anonymous", "content": "a"}`)
	commitJSON(t, ix, `{"title": "anonymous", "content": "b"}`)
	require.NoError(t, ix.Reload())
	assert.Equal(t, uint64(2), ix.NumDocs())
}

func TestIndexer_SingleUpdaterLease(t *testing.T) {
	ix := newTestIndexer(t)

	u, err := ix.Updater()
	require.NoError(t, err)

	_, err = ix.Updater()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUpdaterBusy))

	require.NoError(t, u.Close())
	u2, err := ix.Updater()
	require.NoError(t, err)
	require.NoError(t, u2.Close())
}

func TestUpdater_CloseDiscardsUncommitted(t *testing.T) {
	ix := newTestIndexer(t)

	u, err := ix.Updater()
	require.NoError(t, err)
	require.NoError(t, u.Add([]byte(`{"id": 1, "title": "lost", "content": "x"}`),
		input.NewConfig(input.TypeJSON, nil, nil)))
	assert.Equal(t, 1, u.Pending())
	require.NoError(t, u.Close())

	require.NoError(t, ix.Reload())
	assert.Equal(t, uint64(0), ix.NumDocs())
}

func TestUpdater_UnusableAfterClose(t *testing.T) {
	ix := newTestIndexer(t)

	u, err := ix.Updater()
	require.NoError(t, err)
	require.NoError(t, u.Close())

	err = u.Commit()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUpdaterBusy))
	assert.Error(t, u.Clear())

	// Close is idempotent.
	assert.NoError(t, u.Close())
}

func TestIndexer_Clear(t *testing.T) {
	ix := newTestIndexer(t)

	commitJSON(t, ix, `[
		{"id": 1, "title": "a", "content": "x"},
		{"id": 2, "title": "b", "content": "y"}
	]`)
	require.NoError(t, ix.Reload())
	require.Equal(t, uint64(2), ix.NumDocs())

	u, err := ix.Updater()
	require.NoError(t, err)
	require.NoError(t, u.Clear())
	require.NoError(t, u.Commit())
	require.NoError(t, u.Close())
	require.NoError(t, ix.Reload())

	assert.Equal(t, uint64(0), ix.NumDocs())
}

func TestIndexer_ClearThenAddInOneCommit(t *testing.T) {
	ix := newTestIndexer(t)

	commitJSON(t, ix, `{"id": 1, "title": "old", "content": "x"}`)
	require.NoError(t, ix.Reload())

	u, err := ix.Updater()
	require.NoError(t, err)
	require.NoError(t, u.Clear())
	require.NoError(t, u.Add([]byte(`{"id": 2, "title": "new", "content": "y"}`),
		input.NewConfig(input.TypeJSON, nil, nil)))
	require.NoError(t, u.Commit())
	require.NoError(t, u.Close())
	require.NoError(t, ix.Reload())

	assert.Equal(t, uint64(1), ix.NumDocs())
	hits, err := ix.Search("new", []string{"title"}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestIndexer_SearchLimitAndOffset(t *testing.T) {
	ix := newTestIndexer(t)

	commitJSON(t, ix, `[
		{"id": 1, "title": "common term alpha", "content": "x"},
		{"id": 2, "title": "common term beta", "content": "x"},
		{"id": 3, "title": "common term gamma", "content": "x"}
	]`)
	require.NoError(t, ix.Reload())

	page1, err := ix.Search("common", []string{"title"}, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page2, err := ix.Search("common", []string{"title"}, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 1)
	assert.NotContains(t, []string{page1[0].ID, page1[1].ID}, page2[0].ID)
}

func TestIndexer_SearchEdgeCases(t *testing.T) {
	ix := newTestIndexer(t)
	commitJSON(t, ix, `{"id": 1, "title": "something", "content": "x"}`)
	require.NoError(t, ix.Reload())

	hits, err := ix.Search("", []string{"title"}, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = ix.Search("something", []string{"title"}, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	// Unknown fields are dropped; the query still runs across all fields.
	hits, err = ix.Search("something", []string{"no_such_field"}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestIndexer_OperationsAfterClose(t *testing.T) {
	ix, err := OpenOrCreate(testConfig(""))
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	_, err = ix.Search("x", nil, 10, 0)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEngineClosed))

	_, err = ix.Updater()
	assert.True(t, errors.IsCode(err, errors.ErrCodeEngineClosed))

	assert.Error(t, ix.Reload())
	assert.NoError(t, ix.Close(), "close is idempotent")
}

func TestIndexer_DoubleCloseWithAutoReload(t *testing.T) {
	cfg := testConfig("")
	cfg.Reload = schema.ReloadAuto
	ix, err := OpenOrCreate(cfg)
	require.NoError(t, err)

	require.NoError(t, ix.Close())
	assert.NoError(t, ix.Close())
}

func TestIndexer_AutoReloadMakesCommitsVisible(t *testing.T) {
	cfg := testConfig("")
	cfg.Reload = schema.ReloadAuto
	cfg.AutoReloadEvery = 10 * time.Millisecond
	ix, err := OpenOrCreate(cfg)
	require.NoError(t, err)
	defer ix.Close()

	commitJSON(t, ix, `{"id": 1, "title": "eventually visible", "content": "x"}`)

	require.Eventually(t, func() bool {
		return ix.NumDocs() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestIndexer_OnDiskPersistsAcrossReopen(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "idx"))

	ix, err := OpenOrCreate(cfg)
	require.NoError(t, err)
	commitJSON(t, ix, `{"id": 1, "title": "durable", "content": "x"}`)
	// Close applies committed batches even without an explicit reload.
	require.NoError(t, ix.Close())

	ix, err = OpenOrCreate(cfg)
	require.NoError(t, err)
	defer ix.Close()
	assert.Equal(t, uint64(1), ix.NumDocs())

	hits, err := ix.Search("durable", []string{"title"}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestIndexer_WriterLockExcludesSecondOpen(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "idx"))

	ix, err := OpenOrCreate(cfg)
	require.NoError(t, err)
	defer ix.Close()

	_, err = OpenOrCreate(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeWriterLocked))
}

func TestIndexer_ReopenWithChangedSchemaRejected(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "idx"))

	ix, err := OpenOrCreate(cfg)
	require.NoError(t, err)
	require.NoError(t, ix.Close())

	changed := cfg
	changed.Fields = append([]schema.FieldConfig(nil), cfg.Fields...)
	changed.Fields[1].Tokenized = false
	_, err = OpenOrCreate(changed)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSchemaIncompatible))
}
