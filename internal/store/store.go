package store

import (
	"errors"
	"strings"
)

// Store is a durable named-blob store for wrapper exception slots.
//
// Implementations do not interpret slot content. Missing slots are reported
// as ErrNotFound, which callers treat as a normal result rather than a failure.
type Store interface {
	// Write creates or overwrites the slot synchronously. It must not block on
	// locks held by other operations: it runs on crash-adjacent paths.
	Write(name string, data []byte) error
	// Read returns ErrNotFound for a missing slot.
	Read(name string) ([]byte, error)
	// Rename moves a slot atomically. Readers see either the old or the new
	// name resolve to the content, never neither. Returns ErrNotFound when
	// oldName is missing and ErrConflict when newName already exists.
	Rename(oldName, newName string) error
	// Delete returns ErrNotFound for a missing slot.
	Delete(name string) error
	// ListNames returns all slot names in lexical order.
	ListNames() ([]string, error)
	Close() error
}

var (
	// ErrNotFound is returned when a slot does not exist.
	ErrNotFound = errors.New("slot not found")
	// ErrConflict is returned when a rename target already exists.
	ErrConflict = errors.New("slot already exists")
	// ErrInvalidName is returned for slot names that cannot be stored safely.
	ErrInvalidName = errors.New("invalid slot name")
)

// maxNameLen bounds slot names to something every filesystem accepts.
const maxNameLen = 200

// ValidateName rejects names that are empty, too long, reserved for internal
// files, or that could escape a store directory.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return ErrInvalidName
	case len(name) > maxNameLen:
		return ErrInvalidName
	case strings.HasPrefix(name, "."):
		return ErrInvalidName
	case strings.ContainsAny(name, "/\\\x00"):
		return ErrInvalidName
	}
	return nil
}
