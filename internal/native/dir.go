package native

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/dotcommander/wrapcrash/internal/models"
	"github.com/dotcommander/wrapcrash/internal/store"
)

const (
	manifestExt = ".json"
	matchedExt  = ".matched"
)

// Manifest is the on-disk description of one native crash report.
type Manifest struct {
	ReportID           string          `json:"report_id"`
	ProcessID          int64           `json:"process_id"`
	ProcessName        string          `json:"process_name,omitempty"`
	Timestamp          time.Time       `json:"timestamp"`
	AppLaunchTimestamp *time.Time      `json:"app_launch_timestamp,omitempty"`
	Threads            []models.Thread `json:"threads,omitempty"`
	Matched            bool            `json:"matched"`
}

// DirSubsystem reads native crash report manifests from a directory.
// A report counts as matched once a <report_id>.matched sentinel exists.
type DirSubsystem struct {
	dir    string
	logger *slog.Logger
}

// NewDirSubsystem returns a DirSubsystem rooted at dir. The directory is
// created on first Add; a missing directory enumerates as empty.
func NewDirSubsystem(dir string, logger *slog.Logger) *DirSubsystem {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirSubsystem{dir: dir, logger: logger}
}

// UnmatchedReports returns reports without a match sentinel, oldest first.
func (d *DirSubsystem) UnmatchedReports(ctx context.Context) ([]models.NativeCrashReport, error) {
	manifests, err := d.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.NativeCrashReport, 0, len(manifests))
	for _, m := range manifests {
		if m.Matched {
			continue
		}
		out = append(out, models.NativeCrashReport{ReportID: m.ReportID, ProcessID: m.ProcessID, Timestamp: m.Timestamp})
	}
	return out, nil
}

// List returns every readable manifest, oldest first. Malformed manifests
// are skipped with a warning.
func (d *DirSubsystem) List(ctx context.Context) ([]Manifest, error) {
	var entries []os.DirEntry
	err := retryTransient(ctx, func() error {
		var readErr error
		entries, readErr = os.ReadDir(d.dir)
		return readErr
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reports dir %s: %w", d.dir, err)
	}

	matched := make(map[string]bool)
	for _, e := range entries {
		if name := e.Name(); strings.HasSuffix(name, matchedExt) {
			matched[strings.TrimSuffix(name, matchedExt)] = true
		}
	}

	out := make([]Manifest, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), manifestExt) {
			continue
		}
		m, err := d.readManifest(filepath.Join(d.dir, e.Name()))
		if err != nil {
			d.logger.Warn("skipping native report manifest", "file", e.Name(), "error", err.Error())
			continue
		}
		m.Matched = matched[m.ReportID]
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ReportID < out[j].ReportID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// Report loads one manifest as an error log.
func (d *DirSubsystem) Report(_ context.Context, reportID string) (models.ErrorLog, error) {
	if err := validateReportID(reportID); err != nil {
		return models.ErrorLog{}, err
	}
	m, err := d.readManifest(d.manifestPath(reportID))
	if errors.Is(err, fs.ErrNotExist) {
		return models.ErrorLog{}, fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
	}
	if err != nil {
		return models.ErrorLog{}, err
	}
	return models.ErrorLog{
		ReportID:           m.ReportID,
		ProcessID:          m.ProcessID,
		ProcessName:        m.ProcessName,
		AppLaunchTimestamp: m.AppLaunchTimestamp,
		Timestamp:          m.Timestamp,
		Fatal:              true,
		Threads:            m.Threads,
	}, nil
}

// RecordMatch writes the match sentinel for reportID.
func (d *DirSubsystem) RecordMatch(_ context.Context, reportID string) error {
	if err := validateReportID(reportID); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(d.dir, reportID+matchedExt), nil, 0o600); err != nil {
		return fmt.Errorf("record match for %s: %w", reportID, err)
	}
	return nil
}

// Add writes a manifest. An empty ReportID gets a fresh UUID and a zero
// Timestamp becomes the current time. Returns the stored manifest.
func (d *DirSubsystem) Add(m Manifest) (Manifest, error) {
	if m.ReportID == "" {
		m.ReportID = strings.ToUpper(uuid.NewString())
	}
	if err := validateReportID(m.ReportID); err != nil {
		return Manifest{}, err
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	m.Matched = false

	if err := os.MkdirAll(d.dir, 0o750); err != nil {
		return Manifest{}, fmt.Errorf("create reports dir: %w", err)
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Manifest{}, err
	}
	if err := os.WriteFile(d.manifestPath(m.ReportID), b, 0o600); err != nil {
		return Manifest{}, fmt.Errorf("write manifest: %w", err)
	}
	return m, nil
}

func (d *DirSubsystem) manifestPath(reportID string) string {
	return filepath.Join(d.dir, reportID+manifestExt)
}

func (d *DirSubsystem) readManifest(path string) (Manifest, error) {
	b, err := os.ReadFile(path) //nolint:gosec // G304: path built from the configured reports dir
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if m.ReportID == "" {
		return Manifest{}, errors.New("manifest has no report_id")
	}
	return m, nil
}

// validateReportID rejects ids that could not name a wrapper exception slot.
func validateReportID(id string) error {
	if err := store.ValidateName(id); err != nil {
		return fmt.Errorf("invalid report id %q: %w", id, err)
	}
	return nil
}

// retryTransient retries op while it fails with an interrupted or busy
// filesystem error.
func retryTransient(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EBUSY) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(b, ctx))
}
