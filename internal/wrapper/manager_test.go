package wrapper

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/wrapcrash/internal/native"
	"github.com/dotcommander/wrapcrash/internal/store"
)

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{Native: &native.StaticSubsystem{}})
	require.Error(t, err)
	_, err = New(Options{Store: store.NewMemoryStore()})
	require.Error(t, err)
}

// TestLifecycle_AcrossRestarts walks one record through crash, restart,
// report generation and consumption using on-disk stores.
func TestLifecycle_AcrossRestarts(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	reports := native.NewDirSubsystem(filepath.Join(root, "reports"), quietLogger())

	open := func() *Manager {
		s, err := store.NewFileStore(filepath.Join(root, "slots"))
		require.NoError(t, err)
		m, err := New(Options{
			Store:         s,
			Native:        reports,
			OrphanHorizon: 24 * time.Hour,
			Deps:          Deps{Logger: quietLogger()},
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = m.Close() })
		return m
	}

	// Run 1: the wrapper crashes; native capture writes its report.
	run1 := open()
	rec := sampleRecord(4242)
	rec.CreatedAt = time.Now().UTC().Truncate(time.Second)
	run1.Writer.Save(rec)
	_, err := reports.Add(native.Manifest{ReportID: "CRASH-1", ProcessID: 4242, Timestamp: time.Now().UTC()})
	require.NoError(t, err)

	// Run 2: correlate, generate, deliver, consume.
	run2 := open()
	res, err := run2.Resolver.ResolveOnStartup(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeMatched, res.Outcome)
	require.Equal(t, "CRASH-1", res.ReportID)

	log, err := reports.Report(ctx, "CRASH-1")
	require.NoError(t, err)

	release := run2.Augmenter.Acquire("CRASH-1")
	got := run2.Augmenter.Augment(ctx, log)
	require.True(t, got.Augmented)
	data, err := run2.Augmenter.LoadAttachment("CRASH-1")
	require.NoError(t, err)
	assert.Equal(t, rec.Data, data)

	require.NoError(t, run2.Augmenter.MarkConsumed("CRASH-1"))
	_, err = run2.Store().Read("CRASH-1")
	require.NoError(t, err, "held by a consumer")
	release()

	names, err := run2.Store().ListNames()
	require.NoError(t, err)
	assert.Empty(t, names)

	// Run 3: the report is no longer unmatched and nothing is pending.
	unmatched, err := reports.UnmatchedReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, unmatched)

	res, err = open().Resolver.ResolveOnStartup(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoPending, res.Outcome)
}
