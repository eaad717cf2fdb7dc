package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	lockFileName = ".slots.lock"
	tempPrefix   = ".tmp-"
)

// FileStore keeps one file per slot in a directory.
//
// Write lands content through a temp file and rename, so a reader sees either
// the previous content or the new content. Rename and Delete serialize on an
// advisory lock file; Write never takes the lock.
type FileStore struct {
	dir string
}

// NewFileStore opens (creating if needed) a slot directory.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("store directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, ioErr("open", "", fmt.Errorf("create store directory: %w", err))
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the slot directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

// locked runs fn under the directory lock. A lock failure is a StorageIOError for op.
func (s *FileStore) locked(op, name string, fn func() error) error {
	l, err := acquireLock(filepath.Join(s.dir, lockFileName))
	if err != nil {
		return ioErr(op, name, err)
	}
	defer l.release()
	return fn()
}

func (s *FileStore) Write(name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, tempPrefix+name+"-*")
	if err != nil {
		return ioErr("write", name, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return ioErr("write", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return ioErr("write", name, err)
	}
	if err := tmp.Close(); err != nil {
		return ioErr("write", name, err)
	}
	if err := os.Rename(tmpName, s.path(name)); err != nil {
		return ioErr("write", name, err)
	}
	committed = true
	return nil
}

func (s *FileStore) Read(name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, ioErr("read", name, err)
	}
	return b, nil
}

func (s *FileStore) Rename(oldName, newName string) error {
	if err := ValidateName(oldName); err != nil {
		return err
	}
	if err := ValidateName(newName); err != nil {
		return err
	}

	return s.locked("rename", oldName, func() error {
		if _, err := os.Stat(s.path(oldName)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return notFound(oldName)
			}
			return ioErr("rename", oldName, err)
		}
		if _, err := os.Stat(s.path(newName)); err == nil {
			return &ConflictError{OldName: oldName, NewName: newName}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return ioErr("rename", newName, err)
		}

		if err := os.Rename(s.path(oldName), s.path(newName)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return notFound(oldName)
			}
			return ioErr("rename", oldName, err)
		}
		return nil
	})
}

func (s *FileStore) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	return s.locked("delete", name, func() error {
		if err := os.Remove(s.path(name)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return notFound(name)
			}
			return ioErr("delete", name, err)
		}
		return nil
	})
}

func (s *FileStore) ListNames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, ioErr("list", "", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		// Lock and in-flight temp files start with a dot.
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op; FileStore holds no open handles between calls.
func (s *FileStore) Close() error { return nil }
