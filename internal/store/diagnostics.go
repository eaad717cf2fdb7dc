package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/dotcommander/wrapcrash/internal/models"
)

// Diagnostic represents a single consistency check finding.
type Diagnostic struct {
	Level           string `json:"level"` // "warning" or "error"
	Code            string `json:"code"`
	Slot            string `json:"slot"`
	Message         string `json:"message"`
	SuggestedAction string `json:"suggested_action,omitempty"`
}

// RunDiagnostics inspects every slot in s and reports unreadable records,
// records past the orphan horizon and a pending record awaiting resolution.
func RunDiagnostics(s Store, now time.Time, horizon time.Duration) ([]Diagnostic, error) {
	names, err := s.ListNames()
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	diags := make([]Diagnostic, 0)
	cutoff := now.Add(-horizon)
	for _, name := range names {
		data, err := s.Read(name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read slot %s: %w", name, err)
		}

		rec, err := models.DecodeWrapperException(data)
		if err != nil {
			diags = append(diags, Diagnostic{
				Level:           "error",
				Code:            "CORRUPT_SLOT",
				Slot:            name,
				Message:         err.Error(),
				SuggestedAction: corruptAction(name),
			})
			continue
		}

		if rec.CreatedAt.Before(cutoff) {
			diags = append(diags, Diagnostic{
				Level:           "warning",
				Code:            "STALE_SLOT",
				Slot:            name,
				Message:         fmt.Sprintf("record from %s is older than the orphan horizon", rec.CreatedAt.Format(time.RFC3339)),
				SuggestedAction: "wrapcrash resolve",
			})
			continue
		}

		if name == models.PendingSlot {
			diags = append(diags, Diagnostic{
				Level:           "warning",
				Code:            "PENDING_UNRESOLVED",
				Slot:            name,
				Message:         fmt.Sprintf("wrapper exception for pid %d has not been correlated", rec.ProcessID),
				SuggestedAction: "wrapcrash resolve",
			})
		}
	}
	return diags, nil
}

func corruptAction(name string) string {
	if name == models.PendingSlot {
		return "wrapcrash resolve"
	}
	return fmt.Sprintf("wrapcrash consume --report-id %s", name)
}
