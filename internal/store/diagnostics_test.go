package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/wrapcrash/internal/models"
)

func writeRecord(t *testing.T, s Store, name string, pid int64, created time.Time) {
	t.Helper()
	b, err := models.EncodeWrapperException(models.WrapperException{
		ProcessID: pid,
		Exception: models.ExceptionModel{Type: "E"},
		CreatedAt: created,
	})
	require.NoError(t, err)
	require.NoError(t, s.Write(name, b))
}

func TestRunDiagnostics(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	horizon := 7 * 24 * time.Hour

	s := NewMemoryStore()
	writeRecord(t, s, models.PendingSlot, 42, now.Add(-time.Hour))
	writeRecord(t, s, "FRESH", 7, now.Add(-time.Hour))
	writeRecord(t, s, "OLD", 8, now.Add(-8*24*time.Hour))
	require.NoError(t, s.Write("BROKEN", []byte("{")))

	diags, err := RunDiagnostics(s, now, horizon)
	require.NoError(t, err)

	byCode := map[string]Diagnostic{}
	for _, d := range diags {
		byCode[d.Code] = d
	}
	require.Len(t, diags, 3)

	assert.Equal(t, "BROKEN", byCode["CORRUPT_SLOT"].Slot)
	assert.Equal(t, "error", byCode["CORRUPT_SLOT"].Level)
	assert.Equal(t, "wrapcrash consume --report-id BROKEN", byCode["CORRUPT_SLOT"].SuggestedAction)

	assert.Equal(t, "OLD", byCode["STALE_SLOT"].Slot)
	assert.Equal(t, "warning", byCode["STALE_SLOT"].Level)

	assert.Equal(t, models.PendingSlot, byCode["PENDING_UNRESOLVED"].Slot)
	assert.Contains(t, byCode["PENDING_UNRESOLVED"].Message, "pid 42")
}

func TestRunDiagnostics_EmptyStore(t *testing.T) {
	diags, err := RunDiagnostics(NewMemoryStore(), time.Now(), time.Hour)
	require.NoError(t, err)
	assert.Empty(t, diags)
}
