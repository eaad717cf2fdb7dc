package wrapper

import (
	"fmt"

	"github.com/dotcommander/wrapcrash/internal/models"
	"github.com/dotcommander/wrapcrash/internal/store"
)

// Writer persists wrapper exceptions to the pending slot at crash time.
type Writer struct {
	store store.Store
	deps  Deps
}

// NewWriter returns a Writer over s.
func NewWriter(s store.Store, deps Deps) *Writer {
	return &Writer{store: s, deps: deps.withDefaults()}
}

// Save overwrites the pending slot with rec. It never fails from the caller's
// point of view: the native crash path runs right after it regardless, so
// errors (and panics from a broken store) are logged and counted only.
// A zero CreatedAt is filled from the writer's clock.
func (w *Writer) Save(rec models.WrapperException) {
	defer func() {
		if r := recover(); r != nil {
			w.fail(rec.ProcessID, fmt.Errorf("panic: %v", r))
		}
	}()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = w.deps.Now().UTC()
	}

	data, err := models.EncodeWrapperException(rec)
	if err != nil {
		w.fail(rec.ProcessID, err)
		return
	}
	if err := w.store.Write(models.PendingSlot, data); err != nil {
		w.fail(rec.ProcessID, err)
		return
	}
	w.deps.Metrics.SaveOK()
}

func (w *Writer) fail(pid int64, err error) {
	w.deps.Metrics.SaveFailed()
	w.deps.Logger.Error("failed to save wrapper exception", "pid", pid, "error", err.Error())
}
