// Package txn coordinates multi-file edit transactions.
//
// A transaction applies one edit.Request per file, in caller order, and
// guarantees that either every file's edits are durably written or the
// on-disk state of every touched file is restored to its pre-call bytes.
// All bookkeeping lives in a call-scoped slice of FileState values owned
// by the coordinator; nothing persists between calls.
package txn

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/google/uuid"

	"github.com/dshills/patchkit/internal/edit"
	"github.com/dshills/patchkit/internal/logging"
	"github.com/dshills/patchkit/internal/vfs"
)

// Status is a file's terminal state within a transaction.
type Status string

const (
	// StatusPending means the file has not reached a terminal state.
	// Never present in a returned Result.
	StatusPending Status = "pending"

	// StatusCommitted means the file's edits are durably on disk.
	// Only appears when the whole transaction succeeded.
	StatusCommitted Status = "committed"

	// StatusRolledBack means the file was written and then restored to
	// its pre-call content after a later failure.
	StatusRolledBack Status = "rolled_back"

	// StatusFailed marks the file whose failure aborted the transaction.
	StatusFailed Status = "failed"

	// StatusSkipped means the transaction aborted before reaching the
	// file; it was never touched.
	StatusSkipped Status = "skipped"

	// StatusRollbackFailed means the file was written and its restore
	// also failed. The atomicity guarantee could not be honored; the
	// state is surfaced, never swallowed.
	StatusRollbackFailed Status = "rollback_failed"
)

// FileState tracks one target file through a transaction.
type FileState struct {
	Path       string
	Original   []byte
	Pending    []byte
	Encoding   vfs.Encoding
	Perm       fs.FileMode
	Status     Status
	BackupPath string

	// keepBackup is true when the request asked for a backup; others
	// are created anyway for rollback coverage and removed at the end.
	keepBackup bool

	outcome *edit.Outcome
	err     error
}

// FileResult is the per-file portion of a transaction result.
type FileResult struct {
	Path    string
	Status  Status
	Outcome *edit.Outcome // set for committed files
	Err     error         // set for failed and rollback_failed files

	// BackupPath is set for rollback_failed files: the backup holding
	// the pre-call content, kept on disk for manual recovery.
	BackupPath string
}

// Result describes a completed transaction, successful or not.
type Result struct {
	TxnID string
	OK    bool
	Files []FileResult
}

// Coordinator runs multi-file transactions over an edit engine.
type Coordinator struct {
	fs     vfs.VFS
	engine *edit.Engine
	log    *logging.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Coordinator) {
		c.log = log
	}
}

// New creates a Coordinator backed by the given file system and engine.
func New(fsys vfs.VFS, engine *edit.Engine, opts ...Option) *Coordinator {
	c := &Coordinator{
		fs:     fsys,
		engine: engine,
		log:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ApplyAll runs one transaction over the given requests.
//
// Phase one reads and simulates every file; a simulation failure aborts
// with nothing written and no rollback needed. Phase two commits each
// file (backup, then atomic write) in caller order; a commit failure
// stops the transaction and restores every already-committed file from
// its backup. The returned Result always carries a terminal status per
// file; the error is the failure that aborted the transaction, nil on
// success.
func (c *Coordinator) ApplyAll(ctx context.Context, reqs []edit.Request) (*Result, error) {
	txnID := uuid.NewString()
	log := c.log.WithTxn(txnID)

	res := &Result{TxnID: txnID}
	states := make([]*FileState, len(reqs))
	for i, req := range reqs {
		states[i] = &FileState{
			Path:       req.Path,
			Status:     StatusSkipped,
			keepBackup: req.Backup,
		}
	}

	// Phase one: read and simulate every file. Nothing is written, so
	// any failure here aborts cleanly.
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			states[i].Status = StatusFailed
			return c.finish(res, states, err)
		}

		ft, err := c.engine.Read(req.Path)
		if err != nil {
			states[i].Status = StatusFailed
			log.Warn("read failed", "path", req.Path, "error", err)
			return c.finish(res, states, err)
		}

		final, results, err := c.engine.Simulate(ft.Text, req.Ops)
		if err != nil {
			states[i].Status = StatusFailed
			log.Warn("simulation failed", "path", req.Path, "error", err)
			return c.finish(res, states, err)
		}

		st := states[i]
		st.Original = ft.Raw
		st.Pending = final
		st.Encoding = ft.Encoding
		st.Perm = ft.Perm
		st.Status = StatusPending

		out := &edit.Outcome{
			Path:    req.Path,
			Applied: len(results),
			Results: results,
			DryRun:  req.DryRun,
		}
		if req.ReturnContent {
			out.FinalContent = final
		}
		st.outcome = out
	}

	// Phase two: commit in caller order. The first commit of each path
	// backs up its pre-call bytes; later commits of the same path reuse
	// that backup, so rollback always restores the pre-call state.
	// Unrequested backups are removed once the transaction settles.
	backups := make(map[string]string)
	for i, req := range reqs {
		st := states[i]

		if req.DryRun {
			st.Status = StatusCommitted
			continue
		}

		backupPath, backedUp := backups[req.Path]
		var err error
		if !backedUp {
			backupPath, err = c.engine.Backup(req.Path)
			if err == nil {
				backups[req.Path] = backupPath
			}
		}
		if err == nil {
			st.BackupPath = backupPath
			err = c.engine.Write(req.Path, st.Pending, st.Encoding, st.Perm, txnID)
		}
		if err != nil {
			st.Status = StatusFailed
			log.Warn("commit failed", "path", req.Path, "error", err)
			c.rollback(states[:i], log)
			c.cleanupBackups(states, log)
			return c.finish(res, states, err)
		}

		st.Status = StatusCommitted
		log.Debug("file committed", "path", req.Path)
	}

	res.OK = true
	c.cleanupBackups(states, log)
	log.Info("transaction committed", "files", len(reqs))
	return c.finish(res, states, nil)
}

// rollback restores already-committed files from their backups using the
// same atomic-write primitive as the commit path. It walks in reverse
// commit order and restores each path once: every backup holds pre-call
// bytes, so one restore covers all commits to that path.
func (c *Coordinator) rollback(committed []*FileState, log *logging.Logger) {
	restored := make(map[string]bool)
	for i := len(committed) - 1; i >= 0; i-- {
		st := committed[i]
		if st.Status != StatusCommitted {
			continue
		}

		if restored[st.Path] {
			st.Status = StatusRolledBack
			st.outcome = nil
			continue
		}

		if err := c.restore(st); err != nil {
			st.Status = StatusRollbackFailed
			st.outcome = nil
			st.err = fmt.Errorf("restoring %s: %w", st.Path, err)
			log.Error("rollback failed", "path", st.Path, "error", err)
			continue
		}

		restored[st.Path] = true
		st.Status = StatusRolledBack
		st.outcome = nil
		log.Info("file rolled back", "path", st.Path)
	}
}

// restore writes the backup's content over the target atomically.
func (c *Coordinator) restore(st *FileState) error {
	if st.BackupPath == "" {
		return fmt.Errorf("no backup recorded for %s", st.Path)
	}

	data, err := c.fs.ReadFile(st.BackupPath)
	if err != nil {
		return err
	}
	return vfs.WriteFileAtomic(c.fs, st.Path, data, st.Perm, "rollback")
}

// cleanupBackups removes backups the caller did not ask for. A backup
// shared by several commits of one path survives if any of them needs
// it. Removal failures are logged, not fatal: the transaction's outcome
// is already settled and a stray backup is harmless.
func (c *Coordinator) cleanupBackups(states []*FileState, log *logging.Logger) {
	keep := make(map[string]bool)
	for _, st := range states {
		if st.BackupPath != "" && (st.keepBackup || st.Status == StatusRollbackFailed) {
			keep[st.BackupPath] = true
		}
	}

	removed := make(map[string]bool)
	for _, st := range states {
		if st.BackupPath == "" || keep[st.BackupPath] {
			continue
		}
		if !removed[st.BackupPath] {
			if err := c.fs.Remove(st.BackupPath); err != nil {
				log.Warn("backup cleanup failed", "path", st.BackupPath, "error", err)
			}
			removed[st.BackupPath] = true
		}
		st.BackupPath = ""
	}
}

// finish converts internal states to the public result.
func (c *Coordinator) finish(res *Result, states []*FileState, err error) (*Result, error) {
	res.Files = make([]FileResult, len(states))
	for i, st := range states {
		fr := FileResult{
			Path:   st.Path,
			Status: st.Status,
			Err:    st.err,
		}
		// Files that simulated fine before an abort were never touched.
		if fr.Status == StatusPending {
			fr.Status = StatusSkipped
		}
		if st.Status == StatusCommitted {
			fr.Outcome = st.outcome
			if st.keepBackup {
				fr.Outcome.BackupPath = st.BackupPath
			}
		}
		if st.Status == StatusRollbackFailed {
			fr.BackupPath = st.BackupPath
		}
		if st.Status == StatusFailed && fr.Err == nil {
			fr.Err = err
		}
		res.Files[i] = fr
	}
	return res, err
}
