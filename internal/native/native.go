// Package native defines the boundary to the native crash-capture subsystem
// and a directory-backed implementation of it.
package native

import (
	"context"
	"errors"
	"fmt"

	"github.com/dotcommander/wrapcrash/internal/models"
)

// ErrReportNotFound is returned when a native report id is unknown.
var ErrReportNotFound = errors.New("native crash report not found")

// Subsystem enumerates native crash reports that have not been correlated yet.
type Subsystem interface {
	UnmatchedReports(ctx context.Context) ([]models.NativeCrashReport, error)
}

// MatchRecorder is implemented by subsystems that want to be told when a
// report has been correlated, so it stops appearing as unmatched.
type MatchRecorder interface {
	RecordMatch(ctx context.Context, reportID string) error
}

// ReportSource loads the generated error log for a native report.
type ReportSource interface {
	Report(ctx context.Context, reportID string) (models.ErrorLog, error)
}

// StaticSubsystem serves a fixed candidate list. Err, when set, is returned
// from UnmatchedReports instead. Logs backs Report.
type StaticSubsystem struct {
	Reports []models.NativeCrashReport
	Logs    map[string]models.ErrorLog
	Err     error
	Matched []string
}

var (
	_ ReportSource = (*StaticSubsystem)(nil)
	_ ReportSource = (*DirSubsystem)(nil)
)

func (s *StaticSubsystem) UnmatchedReports(context.Context) ([]models.NativeCrashReport, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]models.NativeCrashReport, 0, len(s.Reports))
	for _, r := range s.Reports {
		if !s.isMatched(r.ReportID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *StaticSubsystem) RecordMatch(_ context.Context, reportID string) error {
	s.Matched = append(s.Matched, reportID)
	return nil
}

func (s *StaticSubsystem) Report(_ context.Context, reportID string) (models.ErrorLog, error) {
	log, ok := s.Logs[reportID]
	if !ok {
		return models.ErrorLog{}, fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
	}
	return log, nil
}

func (s *StaticSubsystem) isMatched(id string) bool {
	for _, m := range s.Matched {
		if m == id {
			return true
		}
	}
	return false
}
