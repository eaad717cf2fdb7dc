package commands

import (
	"errors"
	"log/slog"

	"github.com/dotcommander/wrapcrash/internal/app"
	"github.com/dotcommander/wrapcrash/internal/metrics"
	"github.com/dotcommander/wrapcrash/internal/models"
	"github.com/dotcommander/wrapcrash/internal/native"
	"github.com/dotcommander/wrapcrash/internal/output"
	"github.com/dotcommander/wrapcrash/internal/store"
	"github.com/dotcommander/wrapcrash/internal/wrapper"
)

// session bundles the manager and the native report directory for one command run.
type session struct {
	mgr     *wrapper.Manager
	reports *native.DirSubsystem
}

type printedError struct {
	err error
}

func (e printedError) Error() string {
	// Intentionally hide the original error: the JSON error response is the output.
	return "error already printed"
}

func (e printedError) Unwrap() error { return e.err }

// processMetrics is shared by every command in the process and exported by
// the root command's post-run hook.
//
//nolint:gochecknoglobals // one registry per CLI process
var processMetrics = metrics.New()

func openSession() (*session, func(), error) {
	backend, err := app.ResolveStoreBackend()
	if err != nil {
		return nil, nil, err
	}
	storeDir, err := app.GetStoreDir()
	if err != nil {
		return nil, nil, err
	}
	reportsDir, err := app.GetReportsDir()
	if err != nil {
		return nil, nil, err
	}

	s, err := store.Open(backend.Value, storeDir)
	if err != nil {
		return nil, nil, err
	}

	lifecycle := app.EffectiveLifecycleSettings()
	reports := native.NewDirSubsystem(reportsDir, slog.Default())
	mgr, err := wrapper.New(wrapper.Options{
		Store:         s,
		Native:        reports,
		OrphanHorizon: lifecycle.OrphanHorizon,
		CacheSize:     lifecycle.CacheSize,
		Deps:          wrapper.Deps{Logger: slog.Default(), Metrics: processMetrics},
	})
	if err != nil {
		_ = s.Close()
		return nil, nil, err
	}

	return &session{mgr: mgr, reports: reports}, func() { _ = mgr.Close() }, nil
}

func withSession(fn func(s *session) error) error {
	s, closeSession, err := openSession()
	if err != nil {
		return cmdErr(err)
	}
	defer closeSession()

	if err := fn(s); err != nil {
		return cmdErr(err)
	}
	return nil
}

// cmdErr logs err, prints the JSON error envelope and returns a printedError
// so Execute does not report it twice.
func cmdErr(err error) error {
	if err == nil {
		return nil
	}
	var pe printedError
	if errors.As(err, &pe) {
		return err
	}
	attrs := []any{"error", err.Error()}
	var recoverable models.RecoverableError
	if errors.As(err, &recoverable) {
		attrs = append(attrs, "error_code", recoverable.ErrorCode())
		for k, v := range recoverable.Context() {
			attrs = append(attrs, k, v)
		}
	}
	slog.Error("command error", attrs...)
	_ = output.PrintError(err)
	return printedError{err: err}
}
