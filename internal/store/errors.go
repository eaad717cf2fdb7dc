package store

import (
	"fmt"

	"github.com/dotcommander/wrapcrash/internal/models"
)

// RecoverableError is an alias for models.RecoverableError so store callers
// need not import models for it.
type RecoverableError = models.RecoverableError

// StorageIOError wraps a failed storage operation on a slot.
type StorageIOError struct {
	Op   string
	Name string
	Err  error
}

func (e *StorageIOError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *StorageIOError) Unwrap() error {
	return e.Err
}

func (e *StorageIOError) ErrorCode() string {
	return "STORAGE_IO"
}

func (e *StorageIOError) Context() map[string]string {
	return map[string]string{
		"op":   e.Op,
		"name": e.Name,
	}
}

func (e *StorageIOError) SuggestedAction() string {
	return "check permissions and free space of the store directory, then retry"
}

// ConflictError replaces ErrConflict with the names involved in a rename.
type ConflictError struct {
	OldName string
	NewName string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %q already exists", e.NewName)
}

func (e *ConflictError) ErrorCode() string {
	return "SLOT_CONFLICT"
}

func (e *ConflictError) Context() map[string]string {
	return map[string]string{
		"old_name": e.OldName,
		"new_name": e.NewName,
	}
}

func (e *ConflictError) SuggestedAction() string {
	return fmt.Sprintf("wrapcrash slots show --name %s", e.NewName)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func ioErr(op, name string, err error) error {
	return &StorageIOError{Op: op, Name: name, Err: err}
}

func notFound(name string) error {
	return fmt.Errorf("%w: %q", ErrNotFound, name)
}
