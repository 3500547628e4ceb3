// Package indexer owns the engine handle: it opens or creates the
// physical index from a declared schema, enforces single-writer updater
// checkout, schedules reloads of the queryable snapshot, and executes
// multi-field ranked queries.
package indexer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/gofrs/flock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/docdex/internal/errors"
	"github.com/Aman-CERP/docdex/internal/schema"
)

// Hit is one ranked search result: the engine score and the stored
// fields of the matching document.
type Hit struct {
	ID     string
	Score  float64
	Fields map[string]any
}

// Indexer wraps one physical index. The schema is fixed at construction;
// reads are safe from any goroutine and never block the writer.
type Indexer struct {
	cfg schema.IndexConfig
	sch *schema.Schema
	idx bleve.Index
	log *slog.Logger

	// lock serializes writers across processes. Nil for in-memory.
	lock *flock.Flock

	ops        chan workerOp
	workerDone chan struct{}
	stopAuto   chan struct{}
	autoDone   chan struct{}

	leaseMu sync.Mutex
	leased  bool

	sendMu sync.RWMutex
	closed bool

	// gen counts completed reloads; visDocs is the document count of the
	// last completed reload. Both are what readers observe.
	gen     atomic.Uint64
	visDocs atomic.Uint64

	cache *lru.Cache[string, []Hit]
}

// OpenOrCreate opens the index at cfg.Path if one exists, verifying that
// its persisted schema matches cfg, or initializes a new index from the
// schema. An empty path creates an in-memory index. The returned Indexer
// holds an exclusive cross-process writer lock until Close.
func OpenOrCreate(cfg schema.IndexConfig) (*Indexer, error) {
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sch, err := cfg.Schema()
	if err != nil {
		return nil, err
	}
	im, err := schema.BuildMapping(sch, cfg.Language)
	if err != nil {
		return nil, err
	}

	var (
		idx  bleve.Index
		lock *flock.Flock
	)
	if cfg.Path == "" {
		idx, err = bleve.NewMemOnly(im)
		if err != nil {
			return nil, errors.EngineError("cannot create in-memory index", err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, errors.EngineError("cannot create index directory", err)
		}
		lock = flock.New(cfg.Path + ".lock")
		acquired, err := lock.TryLock()
		if err != nil {
			return nil, errors.EngineError("cannot acquire writer lock", err)
		}
		if !acquired {
			return nil, errors.Newf(errors.ErrCodeWriterLocked,
				"index at %s is locked by another process", cfg.Path)
		}
		idx, err = openOrCreateOnDisk(cfg, im)
		if err != nil {
			_ = lock.Unlock()
			return nil, err
		}
	}

	cache, _ := lru.New[string, []Hit](cfg.CacheSize)
	ix := &Indexer{
		cfg:        cfg,
		sch:        sch,
		idx:        idx,
		log:        slog.Default().With(slog.String("index", cfg.Path)),
		lock:       lock,
		ops:        make(chan workerOp, cfg.WriterQueue),
		workerDone: make(chan struct{}),
		cache:      cache,
	}
	if n, err := idx.DocCount(); err == nil {
		ix.visDocs.Store(n)
	}

	go ix.runWorker()
	if cfg.Reload == schema.ReloadAuto {
		ix.stopAuto = make(chan struct{})
		ix.autoDone = make(chan struct{})
		go ix.runAutoReload()
	}
	return ix, nil
}

// openOrCreateOnDisk opens an existing index, rejecting one whose
// persisted schema disagrees with cfg, or creates a fresh one. In both
// cases the schema fingerprint sidecar ends up in the index directory.
func openOrCreateOnDisk(cfg schema.IndexConfig, im mapping.IndexMapping) (bleve.Index, error) {
	idx, err := bleve.Open(cfg.Path)
	switch {
	case err == bleve.ErrorIndexPathDoesNotExist:
		idx, err = bleve.New(cfg.Path, im)
		if err != nil {
			return nil, errors.EngineError("cannot create index", err)
		}
	case err != nil:
		return nil, errors.EngineError("cannot open index", err)
	default:
		if err := schema.VerifySidecar(cfg.Path, cfg); err != nil {
			_ = idx.Close()
			return nil, err
		}
	}
	if err := schema.WriteSidecar(cfg.Path, cfg); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}

// Schema returns the declared schema.
func (ix *Indexer) Schema() *schema.Schema { return ix.sch }

// Config returns the index configuration.
func (ix *Indexer) Config() schema.IndexConfig { return ix.cfg }

// NumDocs returns the document count as of the last completed reload.
// Writes committed but not yet reloaded are not counted.
func (ix *Indexer) NumDocs() uint64 { return ix.visDocs.Load() }

// Reload synchronously applies all committed batches to the engine and
// refreshes the queryable snapshot.
func (ix *Indexer) Reload() error {
	ack := make(chan error, 1)
	if err := ix.sendOp(workerOp{kind: opReload, ack: ack}); err != nil {
		return err
	}
	return <-ack
}

// Search runs a ranked query scored across the given fields against the
// current snapshot. Returns at most limit hits starting at offset, in
// descending score order. Fields not declared by the schema are ignored;
// with no usable field the query matches across all indexed fields.
// Safe to call concurrently with writes and reloads.
func (ix *Indexer) Search(queryText string, fields []string, limit, offset int) ([]Hit, error) {
	if ix.isClosed() {
		return nil, errors.Newf(errors.ErrCodeEngineClosed, "index is closed")
	}
	if limit <= 0 || strings.TrimSpace(queryText) == "" {
		return []Hit{}, nil
	}

	known := make([]string, 0, len(fields))
	for _, f := range fields {
		if ix.sch.Has(f) {
			known = append(known, f)
		}
	}

	key := fmt.Sprintf("%d\x00%s\x00%s\x00%d\x00%d",
		ix.gen.Load(), queryText, strings.Join(known, ","), limit, offset)
	if hits, ok := ix.cache.Get(key); ok {
		return hits, nil
	}

	var q query.Query
	if len(known) == 0 {
		q = bleve.NewMatchQuery(queryText)
	} else {
		parts := make([]query.Query, 0, len(known))
		for _, f := range known {
			mq := bleve.NewMatchQuery(queryText)
			mq.SetField(f)
			parts = append(parts, mq)
		}
		q = bleve.NewDisjunctionQuery(parts...)
	}

	req := bleve.NewSearchRequestOptions(q, limit, offset, false)
	req.Fields = []string{"*"}
	res, err := ix.idx.Search(req)
	if err != nil {
		return nil, errors.EngineError("search failed", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{ID: h.ID, Score: h.Score, Fields: h.Fields})
	}
	ix.cache.Add(key, hits)
	return hits, nil
}

// Close stops the reload scheduler, applies any committed batches,
// releases the writer lock, and closes the engine. Safe to call more
// than once; only the first call does anything.
func (ix *Indexer) Close() error {
	ix.sendMu.Lock()
	if ix.closed {
		ix.sendMu.Unlock()
		return nil
	}
	ix.closed = true
	close(ix.ops)
	ix.sendMu.Unlock()

	if ix.stopAuto != nil {
		close(ix.stopAuto)
		<-ix.autoDone
	}
	<-ix.workerDone

	var firstErr error
	if err := ix.idx.Close(); err != nil {
		firstErr = errors.EngineError("cannot close index", err)
	}
	if ix.lock != nil {
		if err := ix.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = errors.EngineError("cannot release writer lock", err)
		}
	}
	return firstErr
}

func (ix *Indexer) isClosed() bool {
	ix.sendMu.RLock()
	defer ix.sendMu.RUnlock()
	return ix.closed
}

// sendOp delivers an operation to the write worker, failing fast when
// the indexer is closed.
func (ix *Indexer) sendOp(op workerOp) error {
	ix.sendMu.RLock()
	defer ix.sendMu.RUnlock()
	if ix.closed {
		return errors.Newf(errors.ErrCodeEngineClosed, "index is closed")
	}
	ix.ops <- op
	return nil
}

func (ix *Indexer) runAutoReload() {
	defer close(ix.autoDone)
	ticker := time.NewTicker(ix.cfg.AutoReloadEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ix.stopAuto:
			return
		case <-ticker.C:
			// A tick can race Close; a closed index is not a failure.
			if err := ix.Reload(); err != nil && !errors.IsCode(err, errors.ErrCodeEngineClosed) {
				ix.log.Warn("auto reload failed", slog.String("error", err.Error()))
			}
		}
	}
}
