package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConflictError_Is(t *testing.T) {
	err := fmt.Errorf("resolve: %w", &ConflictError{OldName: "pending", NewName: "B"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestStorageIOError_Unwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := ioErr("write", "pending", cause)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `storage write "pending": disk full`)

	var re RecoverableError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "STORAGE_IO", re.ErrorCode())
	assert.Equal(t, map[string]string{"op": "write", "name": "pending"}, re.Context())
	assert.NotEmpty(t, re.SuggestedAction())
}

func TestRecoverableError_ErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      RecoverableError
		wantCode string
	}{
		{name: "StorageIOError", err: &StorageIOError{Op: "read", Err: errors.New("x")}, wantCode: "STORAGE_IO"},
		{name: "ConflictError", err: &ConflictError{OldName: "a", NewName: "b"}, wantCode: "SLOT_CONFLICT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode())
		})
	}
}

func TestNotFoundCarriesName(t *testing.T) {
	err := notFound("report-9")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "report-9")
}
