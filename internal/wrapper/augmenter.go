package wrapper

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dotcommander/wrapcrash/internal/models"
	"github.com/dotcommander/wrapcrash/internal/store"
	"github.com/dotcommander/wrapcrash/pkg/lru"
)

// DefaultCacheSize bounds the number of decoded records kept in memory.
const DefaultCacheSize = 64

// tombstoneLimit bounds how many deleted report ids are remembered. Older ids
// fall out and behave like slots that never existed.
const tombstoneLimit = 1024

// Augmenter merges correlated wrapper exceptions into generated error logs
// and owns deletion of their slots.
//
// Several delivery paths may read the same report concurrently. The first
// load is shared through singleflight and cached, so every caller observes
// the same record. Deletion waits for a completion barrier: MarkConsumed from
// the pipeline plus release of every Acquire.
type Augmenter struct {
	store store.Store
	deps  Deps

	cache *lru.Cache[string, models.WrapperException]
	loads singleflight.Group

	mu       sync.Mutex
	barriers map[string]*barrier // only ids that are held or consumed
	deleted  *lru.Cache[string, struct{}]
}

type barrier struct {
	holders  int
	consumed bool
}

// NewAugmenter returns an Augmenter over s. A non-positive cacheSize uses DefaultCacheSize.
func NewAugmenter(s store.Store, cacheSize int, deps Deps) *Augmenter {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Augmenter{
		store:    s,
		deps:     deps.withDefaults(),
		cache:    lru.New[string, models.WrapperException](cacheSize),
		barriers: make(map[string]*barrier),
		deleted:  lru.New[string, struct{}](tombstoneLimit),
	}
}

// Augment returns log with the correlated wrapper exception merged in. Native
// fields are never removed: the wrapper model always lands in
// WrapperException and fills Exception only when the native log has none.
// Without a usable record the log is returned unmodified.
func (a *Augmenter) Augment(_ context.Context, log models.ErrorLog) models.AugmentedReport {
	rec, err := a.load(log.ReportID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.deps.Logger.Warn("wrapper exception unavailable; report not augmented", "report_id", log.ReportID, "error", err.Error())
		}
		a.deps.Metrics.Augmented(false)
		return models.AugmentedReport{ErrorLog: log}
	}

	wrapped := cloneException(rec.Exception)
	log.WrapperException = &wrapped
	if log.Exception == nil {
		primary := cloneException(rec.Exception)
		log.Exception = &primary
	}
	a.deps.Metrics.Augmented(true)
	return models.AugmentedReport{ErrorLog: log, Augmented: true, HasAttachment: len(rec.Data) > 0}
}

// LoadAttachment returns the wrapper-defined attachment for reportID, or
// store.ErrNotFound when no record is correlated with it.
func (a *Augmenter) LoadAttachment(reportID string) ([]byte, error) {
	rec, err := a.load(reportID)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), rec.Data...), nil
}

// Acquire registers a consumer of reportID. The slot is not deleted while any
// consumer holds it. The returned release func is safe to call more than once.
func (a *Augmenter) Acquire(reportID string) (release func()) {
	a.mu.Lock()
	if a.isDeletedLocked(reportID) {
		a.mu.Unlock()
		return func() {}
	}
	a.barrierFor(reportID).holders++
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { a.release(reportID) })
	}
}

func (a *Augmenter) release(reportID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.barriers[reportID]
	if !ok {
		return
	}
	if b.holders > 0 {
		b.holders--
	}
	if b.holders > 0 {
		return
	}
	if !b.consumed {
		delete(a.barriers, reportID)
		return
	}
	if err := a.deleteLocked(reportID); err != nil {
		a.deps.Logger.Warn("deferred slot delete failed", "report_id", reportID, "error", err.Error())
	}
}

// MarkConsumed signals that every report consumer has finished with reportID.
// The slot is deleted now if no consumer holds it, otherwise when the last
// one releases. Calling it again is a no-op.
func (a *Augmenter) MarkConsumed(reportID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isDeletedLocked(reportID) {
		return nil
	}
	b := a.barrierFor(reportID)
	if b.consumed {
		return nil
	}
	b.consumed = true
	if b.holders > 0 {
		a.deps.Logger.Debug("slot delete queued behind active consumers", "report_id", reportID, "holders", b.holders)
		return nil
	}
	return a.deleteLocked(reportID)
}

// Delete removes the slot for reportID. It is rejected with
// ErrConsumersPending until MarkConsumed has been called and every consumer
// has released the report.
func (a *Augmenter) Delete(reportID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isDeletedLocked(reportID) {
		return fmt.Errorf("%w: %q", store.ErrNotFound, reportID)
	}
	b, ok := a.barriers[reportID]
	if !ok {
		return &ConsumersPendingError{ReportID: reportID}
	}
	if !b.consumed || b.holders > 0 {
		return &ConsumersPendingError{ReportID: reportID, Holders: b.holders, Consumed: b.consumed}
	}
	return a.deleteLocked(reportID)
}

// InUse reports whether reportID is held by a consumer or waiting on deletion.
func (a *Augmenter) InUse(reportID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.barriers[reportID]
	return ok && (b.holders > 0 || b.consumed)
}

// State returns the lifecycle state of reportID as seen by this augmenter.
func (a *Augmenter) State(reportID string) models.SlotState {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isDeletedLocked(reportID) {
		return models.SlotStateDeleted
	}
	b, ok := a.barriers[reportID]
	switch {
	case ok && b.consumed:
		return models.SlotStateConsumed
	default:
		return models.StateForSlot(reportID)
	}
}

func (a *Augmenter) barrierFor(reportID string) *barrier {
	b, ok := a.barriers[reportID]
	if !ok {
		b = &barrier{}
		a.barriers[reportID] = b
	}
	return b
}

// deleteLocked removes the slot, trades its barrier for a tombstone and drops
// the cached record. A slot that is already gone counts as deleted. On failure
// the barrier stays so Delete can retry. Callers hold a.mu.
func (a *Augmenter) deleteLocked(reportID string) error {
	if err := a.store.Delete(reportID); err != nil && !errors.Is(err, store.ErrNotFound) {
		a.deps.Logger.Warn("failed to delete consumed slot; it will be pruned as an orphan", "report_id", reportID, "error", err.Error())
		return err
	}
	delete(a.barriers, reportID)
	a.deleted.Set(reportID, struct{}{})
	a.cache.Delete(reportID)
	a.deps.Metrics.SlotDeleted("consumed")
	a.deps.Logger.Info("deleted consumed wrapper exception", "report_id", reportID)
	return nil
}

func (a *Augmenter) load(reportID string) (models.WrapperException, error) {
	if reportID == "" || reportID == models.PendingSlot {
		// The pending slot is never a report.
		return models.WrapperException{}, fmt.Errorf("%w: %q", store.ErrNotFound, reportID)
	}
	if a.isDeleted(reportID) {
		return models.WrapperException{}, fmt.Errorf("%w: %q", store.ErrNotFound, reportID)
	}
	if rec, ok := a.cache.Get(reportID); ok {
		return rec, nil
	}

	v, err, _ := a.loads.Do(reportID, func() (any, error) {
		data, err := a.store.Read(reportID)
		if err != nil {
			return nil, err
		}
		rec, err := models.DecodeWrapperException(data)
		if err != nil {
			return nil, err
		}

		a.mu.Lock()
		defer a.mu.Unlock()
		// A delete that raced the read wins.
		if a.isDeletedLocked(reportID) {
			return nil, fmt.Errorf("%w: %q", store.ErrNotFound, reportID)
		}
		a.cache.Set(reportID, rec)
		return rec, nil
	})
	if err != nil {
		return models.WrapperException{}, err
	}
	return v.(models.WrapperException), nil
}

func (a *Augmenter) isDeleted(reportID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isDeletedLocked(reportID)
}

func (a *Augmenter) isDeletedLocked(reportID string) bool {
	_, ok := a.deleted.Get(reportID)
	return ok
}

func cloneException(e models.ExceptionModel) models.ExceptionModel {
	out := e
	if e.Frames != nil {
		out.Frames = append([]models.StackFrame(nil), e.Frames...)
	}
	if e.InnerExceptions != nil {
		out.InnerExceptions = make([]models.ExceptionModel, len(e.InnerExceptions))
		for i, inner := range e.InnerExceptions {
			out.InnerExceptions[i] = cloneException(inner)
		}
	}
	return out
}
