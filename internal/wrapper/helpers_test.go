package wrapper

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/wrapcrash/internal/metrics"
	"github.com/dotcommander/wrapcrash/internal/models"
	"github.com/dotcommander/wrapcrash/internal/store"
)

var baseTime = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestDeps(t *testing.T) (Deps, *testClock, *bytes.Buffer) {
	t.Helper()
	clock := &testClock{now: baseTime}
	var buf bytes.Buffer
	return Deps{
		Logger:  slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Metrics: metrics.New(),
		Now:     clock.Now,
	}, clock, &buf
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRecord(pid int64) models.WrapperException {
	return models.WrapperException{
		ProcessID: pid,
		Exception: models.ExceptionModel{
			Type:     "System.InvalidOperationException",
			Message:  "boom",
			Language: "csharp",
			Frames: []models.StackFrame{
				{ClassName: "App.Main", MethodName: "Run", FileName: "Main.cs", LineNumber: 12},
				{ClassName: "App.Main", MethodName: "Start", FileName: "Main.cs", LineNumber: 3},
			},
		},
		Data:      []byte("wrapper-attachment"),
		CreatedAt: baseTime,
	}
}

func writeSlot(t *testing.T, s store.Store, name string, rec models.WrapperException) {
	t.Helper()
	data, err := models.EncodeWrapperException(rec)
	require.NoError(t, err)
	require.NoError(t, s.Write(name, data))
}

func readSlot(t *testing.T, s store.Store, name string) models.WrapperException {
	t.Helper()
	data, err := s.Read(name)
	require.NoError(t, err)
	rec, err := models.DecodeWrapperException(data)
	require.NoError(t, err)
	return rec
}

// faultyStore wraps a Store and fails or panics on selected operations.
type faultyStore struct {
	store.Store
	failWrite  bool
	panicWrite bool
	failDelete bool
	failList   bool
	failRename bool
	reads      atomic.Int64
}

var errDisk = errors.New("disk on fire")

func (f *faultyStore) Write(name string, data []byte) error {
	if f.panicWrite {
		panic("store exploded")
	}
	if f.failWrite {
		return &store.StorageIOError{Op: "write", Name: name, Err: errDisk}
	}
	return f.Store.Write(name, data)
}

func (f *faultyStore) Read(name string) ([]byte, error) {
	f.reads.Add(1)
	return f.Store.Read(name)
}

func (f *faultyStore) Delete(name string) error {
	if f.failDelete {
		return &store.StorageIOError{Op: "delete", Name: name, Err: errDisk}
	}
	return f.Store.Delete(name)
}

func (f *faultyStore) ListNames() ([]string, error) {
	if f.failList {
		return nil, &store.StorageIOError{Op: "list", Err: errDisk}
	}
	return f.Store.ListNames()
}

func (f *faultyStore) Rename(oldName, newName string) error {
	if f.failRename {
		return &store.StorageIOError{Op: "rename", Name: oldName, Err: errDisk}
	}
	return f.Store.Rename(oldName, newName)
}
