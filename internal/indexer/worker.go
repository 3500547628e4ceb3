package indexer

import (
	"log/slog"

	"github.com/blevesearch/bleve/v2"

	"github.com/Aman-CERP/docdex/internal/errors"
)

// engineOpKind tags one buffered write operation.
type engineOpKind int

const (
	engineInsert engineOpKind = iota
	engineDelete
	engineClear
)

// engineOp is one operation in a commit batch, in recorded order.
type engineOp struct {
	kind   engineOpKind
	id     string
	fields map[string]any
}

type workerOpKind int

const (
	opCommit workerOpKind = iota
	opReload
)

// workerOp is a message to the write worker. Commit stages a batch;
// reload applies everything staged and refreshes the snapshot.
type workerOp struct {
	kind  workerOpKind
	batch []engineOp
	ack   chan error
}

// runWorker is the single writer. It owns the staged (committed but not
// yet applied) batches; nothing else touches the engine write path.
// Closing the ops channel drains and applies whatever is staged so a
// clean Close never loses committed batches.
func (ix *Indexer) runWorker() {
	defer close(ix.workerDone)
	var staged [][]engineOp

	for op := range ix.ops {
		switch op.kind {
		case opCommit:
			staged = append(staged, op.batch)
			op.ack <- nil
		case opReload:
			applied, err := ix.applyStaged(staged)
			staged = staged[applied:]
			if applied > 0 {
				// Empty reloads keep the generation, so cached search
				// results stay valid until something actually changes.
				ix.refreshSnapshot()
			}
			op.ack <- err
		}
	}

	if len(staged) > 0 {
		if _, err := ix.applyStaged(staged); err != nil {
			ix.log.Warn("failed to apply committed batches on close",
				slog.String("error", err.Error()))
		}
		ix.refreshSnapshot()
	}
}

// applyStaged applies staged batches in commit order, one engine batch
// per commit so a whole commit becomes visible at once. Returns how many
// batches were fully applied; on error the remainder stays staged.
func (ix *Indexer) applyStaged(staged [][]engineOp) (int, error) {
	for i, ops := range staged {
		if err := ix.applyBatch(ops); err != nil {
			return i, err
		}
	}
	return len(staged), nil
}

func (ix *Indexer) applyBatch(ops []engineOp) error {
	batch := ix.idx.NewBatch()
	flush := func() error {
		if batch.Size() == 0 {
			return nil
		}
		if err := ix.idx.Batch(batch); err != nil {
			return errors.New(errors.ErrCodeCommitFailed, "engine batch failed", err)
		}
		batch = ix.idx.NewBatch()
		return nil
	}

	for _, op := range ops {
		switch op.kind {
		case engineDelete:
			batch.Delete(op.id)
		case engineInsert:
			if err := batch.Index(op.id, op.fields); err != nil {
				return errors.New(errors.ErrCodeCommitFailed, "engine rejected document", err)
			}
		case engineClear:
			// Clear is a barrier: apply everything before it, wipe, go on.
			if err := flush(); err != nil {
				return err
			}
			if err := ix.deleteAll(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// deleteAll removes every document. The engine has no wholesale delete,
// so collect all ids via a match-all query and batch-delete them.
func (ix *Indexer) deleteAll() error {
	count, err := ix.idx.DocCount()
	if err != nil {
		return errors.EngineError("cannot count documents", err)
	}
	if count == 0 {
		return nil
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
	res, err := ix.idx.Search(req)
	if err != nil {
		return errors.EngineError("cannot enumerate documents", err)
	}
	batch := ix.idx.NewBatch()
	for _, h := range res.Hits {
		batch.Delete(h.ID)
	}
	if err := ix.idx.Batch(batch); err != nil {
		return errors.New(errors.ErrCodeCommitFailed, "clear failed", err)
	}
	return nil
}

// refreshSnapshot advances what readers observe: the reload generation
// and the visible document count.
func (ix *Indexer) refreshSnapshot() {
	if n, err := ix.idx.DocCount(); err == nil {
		ix.visDocs.Store(n)
	}
	ix.gen.Add(1)
}
