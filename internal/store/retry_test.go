package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBusy(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{errors.New("exec: SQLITE_BUSY"), true},
		{notFound("x"), false},
		{fmt.Errorf("wrapped: %w", &ConflictError{OldName: "a", NewName: "b"}), false},
		{errors.New("disk I/O error"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isBusy(tt.err), tt.err.Error())
	}
}

func TestRetryBusy_StopsOnOtherErrors(t *testing.T) {
	calls := 0
	err := retryBusy(func() error {
		calls++
		return notFound("slot")
	})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestRetryBusy_WaitsOutContention(t *testing.T) {
	calls := 0
	err := retryBusy(func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}
