package wrapper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dotcommander/wrapcrash/internal/models"
	"github.com/dotcommander/wrapcrash/internal/native"
	"github.com/dotcommander/wrapcrash/internal/store"
)

// DefaultOrphanHorizon is how long an uncorrelated or unconsumed slot is kept.
const DefaultOrphanHorizon = 7 * 24 * time.Hour

// Outcome describes what a startup resolution did with the pending slot.
type Outcome string

// Resolution outcomes.
const (
	OutcomeNoPending        Outcome = "no_pending"
	OutcomeNoMatch          Outcome = "no_match"
	OutcomeMatched          Outcome = "matched"
	OutcomeAmbiguousMatched Outcome = "ambiguous_matched"
	OutcomeConflict         Outcome = "conflict"
	OutcomeCorruptPending   Outcome = "corrupt_pending"
)

// Resolution is the result of ResolveOnStartup.
type Resolution struct {
	Outcome Outcome `json:"outcome"`
	// ReportID is the report the pending record was renamed to, if any.
	ReportID   string   `json:"report_id,omitempty"`
	ProcessID  int64    `json:"process_id,omitempty"`
	Candidates int      `json:"candidates"`
	Pruned     []string `json:"pruned"`
}

// Resolver correlates the pending record with a native crash report. It must
// run once per process, before any error report is generated.
type Resolver struct {
	store   store.Store
	native  native.Subsystem
	horizon time.Duration
	deps    Deps

	// InUse reports slots that must not be pruned. Optional.
	InUse func(name string) bool

	mu   sync.Mutex
	done bool
}

// NewResolver returns a Resolver. A non-positive horizon uses DefaultOrphanHorizon.
func NewResolver(s store.Store, sub native.Subsystem, horizon time.Duration, deps Deps) *Resolver {
	if horizon <= 0 {
		horizon = DefaultOrphanHorizon
	}
	return &Resolver{store: s, native: sub, horizon: horizon, deps: deps.withDefaults()}
}

// ResolveOnStartup matches the pending record by process id and renames it to
// the matched report id, then prunes slots older than the orphan horizon.
//
// An enumeration failure returns *CollaboratorUnavailableError with the
// pending slot untouched and nothing pruned. A failed rename is returned after
// pruning. A second call in the same
// process returns ErrAlreadyResolved.
func (r *Resolver) ResolveOnStartup(ctx context.Context) (Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return Resolution{}, ErrAlreadyResolved
	}
	r.done = true

	res, prune, err := r.correlate(ctx)
	if err != nil {
		r.deps.Metrics.Resolved("aborted")
		if prune {
			res.Pruned = r.pruneOrphans("")
		}
		return res, err
	}
	r.deps.Metrics.Resolved(string(res.Outcome))

	res.Pruned = r.pruneOrphans(res.ReportID)
	return res, nil
}

// correlate reports whether orphans may still be pruned after a failure.
// Only a failed rename allows it: the store was readable and the collaborator
// answered, so a stuck pending slot must not also stop pruning.
func (r *Resolver) correlate(ctx context.Context) (Resolution, bool, error) {
	log := r.deps.Logger

	data, err := r.store.Read(models.PendingSlot)
	if errors.Is(err, store.ErrNotFound) {
		return Resolution{Outcome: OutcomeNoPending}, true, nil
	}
	if err != nil {
		return Resolution{}, false, fmt.Errorf("read pending slot: %w", err)
	}

	pending, err := models.DecodeWrapperException(data)
	if err != nil {
		// Pruned below: it can never be matched.
		log.Warn("pending wrapper exception is unreadable", "error", err.Error())
		return Resolution{Outcome: OutcomeCorruptPending}, true, nil
	}
	res := Resolution{ProcessID: pending.ProcessID}

	candidates, err := r.native.UnmatchedReports(ctx)
	if err != nil {
		log.Warn("native report enumeration failed; keeping pending record", "pid", pending.ProcessID, "error", err.Error())
		return res, false, &CollaboratorUnavailableError{Err: err}
	}

	match, n := selectCandidate(r.usableCandidates(candidates), pending.ProcessID)
	res.Candidates = n
	if n == 0 {
		res.Outcome = OutcomeNoMatch
		log.Info("no native report matches pending wrapper exception", "pid", pending.ProcessID)
		return res, true, nil
	}

	if err := r.store.Rename(models.PendingSlot, match.ReportID); err != nil {
		if errors.Is(err, store.ErrConflict) {
			res.Outcome = OutcomeConflict
			log.Warn("report already has a wrapper exception; keeping existing slot", "report_id", match.ReportID, "pid", pending.ProcessID)
			return res, true, nil
		}
		return res, true, fmt.Errorf("rename pending slot to %s: %w", match.ReportID, err)
	}

	res.ReportID = match.ReportID
	res.Outcome = OutcomeMatched
	if n > 1 {
		res.Outcome = OutcomeAmbiguousMatched
	}
	log.Info("correlated wrapper exception", "report_id", match.ReportID, "pid", pending.ProcessID, "candidates", n)

	if rec, ok := r.native.(native.MatchRecorder); ok {
		if err := rec.RecordMatch(ctx, match.ReportID); err != nil {
			log.Warn("failed to record native match", "report_id", match.ReportID, "error", err.Error())
		}
	}
	return res, true, nil
}

// usableCandidates drops reports whose id cannot name a slot. Matching one
// would fail the rename on every startup.
func (r *Resolver) usableCandidates(candidates []models.NativeCrashReport) []models.NativeCrashReport {
	usable := make([]models.NativeCrashReport, 0, len(candidates))
	for _, c := range candidates {
		if err := store.ValidateName(c.ReportID); err != nil {
			r.deps.Logger.Warn("skipping native report with unusable id", "report_id", c.ReportID, "pid", c.ProcessID)
			continue
		}
		usable = append(usable, c)
	}
	return usable
}

// selectCandidate returns the most recent report with the given process id
// and the number of reports that had it. Process ids are reused across
// restarts, so the latest crash wins; equal timestamps fall back to the
// greater report id to stay deterministic.
func selectCandidate(candidates []models.NativeCrashReport, pid int64) (models.NativeCrashReport, int) {
	var best models.NativeCrashReport
	n := 0
	for _, c := range candidates {
		if c.ProcessID != pid {
			continue
		}
		n++
		if n == 1 || c.Timestamp.After(best.Timestamp) ||
			(c.Timestamp.Equal(best.Timestamp) && c.ReportID > best.ReportID) {
			best = c
		}
	}
	return best, n
}

// pruneOrphans deletes slots whose record is older than the horizon. The slot
// correlated in this run is skipped. Failures are logged; they never fail
// the resolution.
func (r *Resolver) pruneOrphans(justCorrelated string) []string {
	log := r.deps.Logger
	pruned := []string{}

	names, err := r.store.ListNames()
	if err != nil {
		log.Warn("orphan scan failed", "error", err.Error())
		return pruned
	}

	cutoff := r.deps.Now().Add(-r.horizon)
	for _, name := range names {
		if name == justCorrelated {
			continue
		}
		if r.InUse != nil && r.InUse(name) {
			continue
		}

		data, err := r.store.Read(name)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			log.Warn("orphan scan read failed", "name", name, "error", err.Error())
			continue
		}

		rec, err := models.DecodeWrapperException(data)
		switch {
		case err != nil && name == models.PendingSlot:
		case err != nil:
			log.Warn("leaving unreadable correlated slot", "report_id", name, "error", err.Error())
			continue
		case !rec.CreatedAt.Before(cutoff):
			continue
		}

		if err := r.store.Delete(name); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Warn("failed to prune orphaned slot", "name", name, "error", err.Error())
			continue
		}
		r.deps.Metrics.SlotDeleted("orphaned")
		log.Info("pruned orphaned wrapper exception", "name", name, "state", string(models.SlotStateOrphaned))
		pruned = append(pruned, name)
	}
	return pruned
}
