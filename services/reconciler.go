package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"aidid-house/models"
	"aidid-house/storage"
	"aidid-house/utils"
)

var (
	// ErrRunInFlight means another run for the same source has not closed.
	// Overlapping runs would race the delisted computation, so they are
	// refused outright.
	ErrRunInFlight = errors.New("reconciler: run already in flight for source")
	// ErrSweepGuard means the close step refused the delist sweep because
	// the run observed suspiciously few URLs relative to the known-active
	// set, which usually signals an upstream crawl failure rather than a
	// mass delisting.
	ErrSweepGuard = errors.New("reconciler: delist sweep refused by guard")
)

// sweepGuardMinActive is the smallest known-active set the guard bothers
// protecting; tiny sources legitimately swing to zero.
const sweepGuardMinActive = 20

// ReconcilerConfig tunes per-source reconciliation behavior.
type ReconcilerConfig struct {
	// VanishedStatus is the label applied to URLs missing from a completed
	// run. DELISTED for listing tables, INACTIVE for the Rakuya trade table.
	VanishedStatus models.DataStatus
	// SweepGuardRatio, when > 0, refuses the close-step sweep if the run
	// observed fewer than ratio × |S0| URLs. 0 disables the guard and keeps
	// the full-sweep-on-empty-run semantics.
	SweepGuardRatio float64
}

// Reconciler classifies every URL of a source into new, still-active, or
// vanished across one crawl run, and drives the corresponding store writes.
type Reconciler struct {
	store  storage.RecordStore
	audit  storage.FailureLog
	logger *utils.Logger
	cfg    ReconcilerConfig

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewReconciler creates a Reconciler over the given store. audit may be nil.
func NewReconciler(store storage.RecordStore, audit storage.FailureLog, logger *utils.Logger, cfg ReconcilerConfig) *Reconciler {
	if cfg.VanishedStatus == "" {
		cfg.VanishedStatus = models.StatusDelisted
	}
	return &Reconciler{
		store:    store,
		audit:    audit,
		logger:   logger,
		cfg:      cfg,
		inFlight: make(map[string]bool),
	}
}

// RunSummary is the outcome of one closed run.
type RunSummary struct {
	RunID     string
	Source    string
	Date      time.Time
	New       int
	Refreshed int
	Touched   int
	Delisted  int
	Errors    int
}

// Run is one in-flight reconciliation pass for a single source. Observe and
// Touch may be called concurrently; Close must only be called after all
// in-flight item processing has drained.
type Run struct {
	ID     string
	Source string
	Date   time.Time

	rec      *Reconciler
	s0       map[string]struct{}
	observed *utils.URLSet

	newCount  int64
	refreshed int64
	touched   int64
	errCount  int64

	done bool
}

// StartRun snapshots the source's known-active URL set and opens a run.
// Runs are single-flight per source: a second StartRun before Close or
// Abort returns ErrRunInFlight.
func (r *Reconciler) StartRun(ctx context.Context, source string) (*Run, error) {
	r.mu.Lock()
	if r.inFlight[source] {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrRunInFlight, source)
	}
	r.inFlight[source] = true
	r.mu.Unlock()

	s0, err := r.store.ActiveURLs(ctx, source)
	if err != nil {
		r.release(source)
		return nil, fmt.Errorf("reconciler: load active set for %s: %w", source, err)
	}

	run := &Run{
		ID:       uuid.NewString(),
		Source:   source,
		Date:     time.Now().UTC().Truncate(24 * time.Hour),
		rec:      r,
		s0:       s0,
		observed: utils.NewURLSet(),
	}
	r.logger.Info("[reconciler] run %s opened for %s — %d known-active urls",
		run.ID, source, len(s0))
	return run, nil
}

func (r *Reconciler) release(source string) {
	r.mu.Lock()
	delete(r.inFlight, source)
	r.mu.Unlock()
}

// KnownActive returns a copy of the run-open snapshot so the crawl layer can
// skip full detail scrapes for URLs it already knows. The copy is the
// caller's own — mutating it cannot affect the run.
func (run *Run) KnownActive() map[string]struct{} {
	out := make(map[string]struct{}, len(run.s0))
	for u := range run.s0 {
		out[u] = struct{}{}
	}
	return out
}

// Observe processes a full canonical record: stamp it with the run date and
// ACTIVE status, upsert it, and add the URL to the observed set. A
// previously vanished URL flows through this same path and is revived
// implicitly. Persistence errors are logged and audited but never abort the
// run; the URL then stays out of the observed set and may be swept at close
// — accepted best-effort semantics.
func (run *Run) Observe(ctx context.Context, rec storage.Record) {
	url := rec.Key()
	if url == "" {
		run.rec.logger.Warn("[reconciler] run %s: record with empty url dropped", run.ID)
		atomic.AddInt64(&run.errCount, 1)
		return
	}

	rec.Seen(run.Date)

	if err := run.rec.store.Upsert(ctx, rec); err != nil {
		run.fail("upsert", url, rec, err)
		return
	}

	run.observed.Add(url)
	if _, known := run.s0[url]; known {
		atomic.AddInt64(&run.refreshed, 1)
	} else {
		atomic.AddInt64(&run.newCount, 1)
	}
}

// Touch processes a lightweight still-active signal: only last_seen is
// refreshed, nothing else changes, and the item is not persisted as a
// separate entity. A touch for a URL outside the run-open snapshot is a
// precondition violation by the crawl layer — logged loudly, not fatal.
func (run *Run) Touch(ctx context.Context, url string) {
	if url == "" {
		atomic.AddInt64(&run.errCount, 1)
		return
	}

	if _, known := run.s0[url]; !known {
		run.rec.logger.Warn("[reconciler] run %s: touch for url not in active snapshot: %s — stale wiring upstream?",
			run.ID, url)
	}

	if err := run.rec.store.Touch(ctx, url, run.Date); err != nil {
		run.fail("touch", url, nil, err)
		return
	}

	run.observed.Add(url)
	atomic.AddInt64(&run.touched, 1)
}

func (run *Run) fail(op, url string, payload interface{}, err error) {
	atomic.AddInt64(&run.errCount, 1)
	run.rec.logger.Error("[reconciler] run %s: %s failed for %s: %v", run.ID, op, url, err)
	if run.rec.audit != nil {
		auditErr := run.rec.audit.Record(storage.Failure{
			RunID:   run.ID,
			Source:  run.Source,
			URL:     url,
			Op:      op,
			Err:     err.Error(),
			Payload: payload,
			At:      time.Now().UTC(),
		})
		if auditErr != nil {
			run.rec.logger.Error("[reconciler] run %s: audit write failed: %v", run.ID, auditErr)
		}
	}
}

// Close computes delisted = S0 − observed and bulk-applies the vanished
// status. An empty run with a non-empty snapshot sweeps the whole set —
// intended full-sweep semantics, guarded only by SweepGuardRatio.
func (run *Run) Close(ctx context.Context) (RunSummary, error) {
	summary := run.summary()
	if run.done {
		return summary, errors.New("reconciler: run already closed")
	}
	run.done = true
	defer run.rec.release(run.Source)

	var delisted []string
	for u := range run.s0 {
		if !run.observed.Contains(u) {
			delisted = append(delisted, u)
		}
	}

	if ratio := run.rec.cfg.SweepGuardRatio; ratio > 0 && len(run.s0) >= sweepGuardMinActive {
		if float64(run.observed.Size()) < ratio*float64(len(run.s0)) {
			run.rec.logger.Error("[reconciler] run %s: observed %d of %d known-active urls, refusing sweep of %d",
				run.ID, run.observed.Size(), len(run.s0), len(delisted))
			return summary, fmt.Errorf("%w: observed %d of %d", ErrSweepGuard, run.observed.Size(), len(run.s0))
		}
	}

	if len(delisted) > 0 {
		if err := run.rec.store.MarkStatus(ctx, delisted, run.rec.cfg.VanishedStatus); err != nil {
			run.rec.logger.Error("[reconciler] run %s: sweep failed: %v", run.ID, err)
			return summary, err
		}
	}
	summary.Delisted = len(delisted)

	run.rec.logger.Info("[reconciler] run %s closed — new: %d, refreshed: %d, touched: %d, %s: %d, errors: %d",
		run.ID, summary.New, summary.Refreshed, summary.Touched,
		run.rec.cfg.VanishedStatus, summary.Delisted, summary.Errors)
	return summary, nil
}

// Abort discards the run without the close-step sweep: a partial run must
// never delist anything.
func (run *Run) Abort() {
	if run.done {
		return
	}
	run.done = true
	run.rec.release(run.Source)
	run.rec.logger.Warn("[reconciler] run %s for %s aborted, no sweep", run.ID, run.Source)
}

func (run *Run) summary() RunSummary {
	return RunSummary{
		RunID:     run.ID,
		Source:    run.Source,
		Date:      run.Date,
		New:       int(atomic.LoadInt64(&run.newCount)),
		Refreshed: int(atomic.LoadInt64(&run.refreshed)),
		Touched:   int(atomic.LoadInt64(&run.touched)),
		Errors:    int(atomic.LoadInt64(&run.errCount)),
	}
}
