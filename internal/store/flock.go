package store

import (
	"fmt"
	"os"
	"syscall"
)

// dirLock is an exclusive advisory lock held on a file in the store directory.
// It serializes Rename and Delete across processes sharing the directory.
type dirLock struct {
	f *os.File
}

// acquireLock blocks until the lock on path is held.
func acquireLock(path string) (*dirLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600) //nolint:gosec // G304: path is inside the store dir
	if err != nil {
		return nil, fmt.Errorf("open lock %s: %w", path, err)
	}
	for {
		err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX)
		if err != syscall.EINTR {
			break
		}
	}
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	return &dirLock{f: f}, nil
}

func (l *dirLock) release() {
	if l == nil || l.f == nil {
		return
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	_ = l.f.Close()
	l.f = nil
}

// withLock runs fn while holding the lock on path.
func withLock(path string, fn func() error) error {
	l, err := acquireLock(path)
	if err != nil {
		return err
	}
	defer l.release()
	return fn()
}
