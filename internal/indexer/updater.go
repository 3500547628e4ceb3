package indexer

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"

	"github.com/Aman-CERP/docdex/internal/errors"
	"github.com/Aman-CERP/docdex/internal/input"
)

// Updater buffers add/delete operations and flushes them as one commit.
// At most one Updater is outstanding per Indexer; acquire it with
// Indexer.Updater and release it with Close. It is not safe for
// concurrent use by multiple goroutines.
type Updater struct {
	ix     *Indexer
	buf    []engineOp
	closed bool
}

// Updater checks out the single writer. A second concurrent checkout
// fails fast rather than blocking.
func (ix *Indexer) Updater() (*Updater, error) {
	ix.leaseMu.Lock()
	defer ix.leaseMu.Unlock()
	if ix.isClosed() {
		return nil, errors.Newf(errors.ErrCodeEngineClosed, "index is closed")
	}
	if ix.leased {
		return nil, errors.Newf(errors.ErrCodeUpdaterBusy,
			"an updater is already checked out")
	}
	ix.leased = true
	return &Updater{ix: ix}, nil
}

// Add extracts documents from raw input and buffers an insert for each,
// unconditionally. Nothing reaches the engine until Commit.
func (u *Updater) Add(data []byte, cfg input.Config) error {
	docs, err := u.extract(data, cfg)
	if err != nil {
		return err
	}
	return u.AddDocuments(docs)
}

// Update extracts documents and buffers them with update-by-id
// semantics: a document carrying the designated id field first buffers
// a delete of the previous version, then the insert. The id must be
// unique per logical entity; that is the caller's contract, not
// something this layer can enforce. Documents without an id degrade to
// plain inserts.
func (u *Updater) Update(data []byte, cfg input.Config) error {
	docs, err := u.extract(data, cfg)
	if err != nil {
		return err
	}
	return u.UpdateDocuments(docs)
}

// AddDocuments buffers inserts for already-extracted documents.
func (u *Updater) AddDocuments(docs []input.Document) error {
	if err := u.usable(); err != nil {
		return err
	}
	for _, doc := range docs {
		op, err := u.insertOp(doc)
		if err != nil {
			return err
		}
		u.buf = append(u.buf, op)
	}
	return nil
}

// UpdateDocuments buffers delete-then-insert pairs for already-extracted
// documents.
func (u *Updater) UpdateDocuments(docs []input.Document) error {
	if err := u.usable(); err != nil {
		return err
	}
	idField := u.ix.cfg.IDField
	for _, doc := range docs {
		op, err := u.insertOp(doc)
		if err != nil {
			return err
		}
		if id, ok := doc.ID(idField); ok {
			u.buf = append(u.buf, engineOp{kind: engineDelete, id: id})
		}
		u.buf = append(u.buf, op)
	}
	return nil
}

// Clear buffers a delete of every document in the index. Like all
// buffered operations it takes effect at Commit, in recorded order.
func (u *Updater) Clear() error {
	if err := u.usable(); err != nil {
		return err
	}
	u.buf = append(u.buf, engineOp{kind: engineClear})
	return nil
}

// Pending returns the number of buffered operations.
func (u *Updater) Pending() int { return len(u.buf) }

// Commit flushes the buffered operations to the engine as one batch, in
// recorded order, and clears the buffer. It blocks until the engine has
// accepted the batch. The committed batch becomes visible to readers at
// the next reload, and is only durable once a reload (or a clean
// Indexer.Close) has applied it; a process crash inside that window
// loses the batch. Committing an empty buffer is a no-op.
func (u *Updater) Commit() error {
	if err := u.usable(); err != nil {
		return err
	}
	if len(u.buf) == 0 {
		return nil
	}
	batch := u.buf
	u.buf = nil

	ack := make(chan error, 1)
	if err := u.ix.sendOp(workerOp{kind: opCommit, batch: batch, ack: ack}); err != nil {
		return err
	}
	return <-ack
}

// Close releases the writer lease. Uncommitted buffered operations are
// discarded with a warning; commit first if you want them applied.
// Safe to call more than once.
func (u *Updater) Close() error {
	if u.closed {
		return nil
	}
	u.closed = true
	if n := len(u.buf); n > 0 {
		u.ix.log.Warn("discarding uncommitted operations",
			slog.Int("operations", n))
		u.buf = nil
	}
	u.ix.leaseMu.Lock()
	u.ix.leased = false
	u.ix.leaseMu.Unlock()
	return nil
}

func (u *Updater) usable() error {
	if u.closed {
		return errors.ConcurrencyError("updater has been closed")
	}
	return nil
}

func (u *Updater) extract(data []byte, cfg input.Config) ([]input.Document, error) {
	if err := u.usable(); err != nil {
		return nil, err
	}
	return input.Extract(data, cfg, u.ix.sch)
}

// insertOp builds the engine insert for one document. The engine doc id
// is the canonical id-field value when present (which is what makes
// update's delete-before-insert an exact-match term delete), otherwise
// a random identifier.
func (u *Updater) insertOp(doc input.Document) (engineOp, error) {
	fields, err := doc.Engine(u.ix.sch)
	if err != nil {
		return engineOp{}, err
	}
	id, ok := doc.ID(u.ix.cfg.IDField)
	if !ok {
		id = randomID()
	}
	return engineOp{kind: engineInsert, id: id, fields: fields}, nil
}

func randomID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
