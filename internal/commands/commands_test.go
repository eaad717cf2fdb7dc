package commands

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/wrapcrash/internal/models"
	"github.com/dotcommander/wrapcrash/internal/store"
)

type envelope struct {
	SchemaVersion string          `json:"schema_version"`
	Success       bool            `json:"success"`
	Data          json.RawMessage `json:"data"`
	Error         string          `json:"error"`
	ErrorCode     string          `json:"error_code"`
}

type cliEnv struct {
	storeDir   string
	reportsDir string
	backend    string
}

func newCLIEnv(t *testing.T, backend string) cliEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WRAPCRASH_PRETTY_JSON", "")
	root := t.TempDir()
	return cliEnv{
		storeDir:   filepath.Join(root, "slots"),
		reportsDir: filepath.Join(root, "reports"),
		backend:    backend,
	}
}

// run executes one CLI invocation and decodes the JSON envelope printed to stdout.
func (e cliEnv) run(t *testing.T, args ...string) (envelope, error) {
	t.Helper()

	full := append([]string{"--store-dir", e.storeDir, "--reports-dir", e.reportsDir, "--backend", e.backend}, args...)
	root := NewRootCmd("test")
	root.SetArgs(full)

	out := captureStdout(t, func() error { return root.Execute() })
	var env envelope
	if len(out.stdout) > 0 {
		require.NoError(t, json.Unmarshal(out.stdout, &env), string(out.stdout))
	}
	return env, out.err
}

func (e cliEnv) mustRun(t *testing.T, v any, args ...string) {
	t.Helper()
	env, err := e.run(t, args...)
	require.NoError(t, err)
	require.True(t, env.Success, env.Error)
	require.Equal(t, "v1", env.SchemaVersion)
	if v != nil {
		require.NoError(t, json.Unmarshal(env.Data, v))
	}
}

type captured struct {
	stdout []byte
	err    error
}

func captureStdout(t *testing.T, fn func() error) captured {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "stdout")
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = f
	runErr := fn()
	os.Stdout = orig

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	b, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return captured{stdout: b, err: runErr}
}

func TestNewRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := NewRootCmd("test")
	for _, name := range []string{"save", "resolve", "augment", "attachment", "consume", "process", "slots", "native", "status", "doctor", "schema"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, sub.Name())
	}
}

func TestCommands_RequireIdentifiersBeforeOpeningStore(t *testing.T) {
	for _, cmd := range []*cobra.Command{NewAugmentCmd(), NewAttachmentCmd(), NewConsumeCmd(), newSlotsShowCmd(), newNativeAddCmd(), NewSaveCmd()} {
		t.Run(cmd.Name(), func(t *testing.T) {
			out := captureStdout(t, func() error { return cmd.RunE(cmd, nil) })
			require.EqualError(t, out.err, "error already printed")
			require.IsType(t, printedError{}, out.err)
			assert.Contains(t, string(out.stdout), `"success":false`)
		})
	}
}

func TestCLI_SaveResolveAugmentConsume(t *testing.T) {
	for _, backend := range []string{"file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			e := newCLIEnv(t, backend)

			e.mustRun(t, nil, "native", "add", "--pid", "42", "--id", "A", "--timestamp", "2026-10-01T10:00:00Z")
			e.mustRun(t, nil, "native", "add", "--pid", "42", "--id", "B", "--timestamp", "2026-10-01T11:00:00Z")
			e.mustRun(t, nil, "native", "add", "--pid", "7", "--id", "C", "--timestamp", "2026-10-01T12:00:00Z")

			attachment := filepath.Join(t.TempDir(), "data.bin")
			require.NoError(t, os.WriteFile(attachment, []byte("managed state"), 0o600))
			e.mustRun(t, nil, "save", "--pid", "42", "--type", "System.NullReferenceException",
				"--message", "boom", "--language", "csharp", "--data-file", attachment)

			var slots struct {
				Count int           `json:"count"`
				Slots []slotSummary `json:"slots"`
			}
			e.mustRun(t, &slots, "slots", "list")
			require.Equal(t, 1, slots.Count)
			assert.Equal(t, models.PendingSlot, slots.Slots[0].Name)
			assert.Equal(t, models.SlotStatePending, slots.Slots[0].State)

			var res struct {
				Outcome    string `json:"outcome"`
				ReportID   string `json:"report_id"`
				Candidates int    `json:"candidates"`
			}
			e.mustRun(t, &res, "resolve")
			assert.Equal(t, "ambiguous_matched", res.Outcome)
			assert.Equal(t, "B", res.ReportID)
			assert.Equal(t, 2, res.Candidates)

			var report models.AugmentedReport
			e.mustRun(t, &report, "augment", "--report-id", "B")
			require.True(t, report.Augmented)
			assert.True(t, report.HasAttachment)
			require.NotNil(t, report.ErrorLog.WrapperException)
			assert.Equal(t, "System.NullReferenceException", report.ErrorLog.WrapperException.Type)

			var att struct {
				Data string `json:"data"`
				Size int    `json:"size"`
			}
			e.mustRun(t, &att, "attachment", "--report-id", "B")
			decoded, err := base64.StdEncoding.DecodeString(att.Data)
			require.NoError(t, err)
			assert.Equal(t, "managed state", string(decoded))

			var consumed struct {
				State models.SlotState `json:"state"`
			}
			e.mustRun(t, &consumed, "consume", "--report-id", "B")
			assert.Equal(t, models.SlotStateDeleted, consumed.State)

			e.mustRun(t, &slots, "slots", "list")
			assert.Equal(t, 0, slots.Count)

			var plain models.AugmentedReport
			e.mustRun(t, &plain, "augment", "--report-id", "B")
			assert.False(t, plain.Augmented)
		})
	}
}

func TestCLI_ResolveWithoutMatchKeepsPending(t *testing.T) {
	e := newCLIEnv(t, "file")
	e.mustRun(t, nil, "native", "add", "--pid", "42", "--id", "B")
	e.mustRun(t, nil, "save", "--pid", "99", "--type", "E")

	var res struct {
		Outcome string `json:"outcome"`
	}
	e.mustRun(t, &res, "resolve")
	assert.Equal(t, "no_match", res.Outcome)

	var shown struct {
		State  models.SlotState        `json:"state"`
		Record models.WrapperException `json:"record"`
	}
	e.mustRun(t, &shown, "slots", "show", "--name", models.PendingSlot)
	assert.Equal(t, models.SlotStatePending, shown.State)
	assert.Equal(t, int64(99), shown.Record.ProcessID)
}

func TestCLI_ProcessDeliversAndConsumes(t *testing.T) {
	e := newCLIEnv(t, "file")
	e.mustRun(t, nil, "native", "add", "--pid", "42", "--id", "B")

	attachment := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(attachment, []byte("xyz"), 0o600))
	e.mustRun(t, nil, "save", "--pid", "42", "--type", "E", "--data-file", attachment)

	var out struct {
		Resolution struct {
			Outcome string `json:"outcome"`
		} `json:"resolution"`
		Reports []processedReport `json:"reports"`
	}
	e.mustRun(t, &out, "process")
	assert.Equal(t, "matched", out.Resolution.Outcome)
	require.Len(t, out.Reports, 1)
	assert.True(t, out.Reports[0].Report.Augmented)
	assert.Equal(t, 3, out.Reports[0].AttachmentSize)
	assert.Equal(t, models.SlotStateDeleted, out.Reports[0].State)

	_, err := os.Stat(filepath.Join(e.storeDir, "B"))
	assert.True(t, os.IsNotExist(err))
}

func TestCLI_SaveFromJSON(t *testing.T) {
	e := newCLIEnv(t, "file")
	path := filepath.Join(t.TempDir(), "record.json")
	rec := `{"process_id": 5, "exception": {"type": "java.lang.IllegalStateException", "frames": [{"class_name": "Main", "method_name": "run", "line_number": 3}]}}`
	require.NoError(t, os.WriteFile(path, []byte(rec), 0o600))

	e.mustRun(t, nil, "save", "--from-json", path)

	var shown struct {
		Record models.WrapperException `json:"record"`
	}
	e.mustRun(t, &shown, "slots", "show", "--name", models.PendingSlot)
	assert.Equal(t, int64(5), shown.Record.ProcessID)
	require.Len(t, shown.Record.Exception.Frames, 1)
	assert.Equal(t, "run", shown.Record.Exception.Frames[0].MethodName)
	assert.False(t, shown.Record.CreatedAt.IsZero())
}

func TestCLI_ShowMissingSlotReportsNotFound(t *testing.T) {
	e := newCLIEnv(t, "file")
	env, err := e.run(t, "slots", "show", "--name", "nope")
	require.Error(t, err)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "not found")
}

func TestCLI_UnknownBackendFails(t *testing.T) {
	e := newCLIEnv(t, "redis")
	env, err := e.run(t, "slots", "list")
	require.Error(t, err)
	assert.Contains(t, env.Error, "unknown store backend")
}

func TestCLI_StatusReportsSources(t *testing.T) {
	e := newCLIEnv(t, "sqlite")
	e.mustRun(t, nil, "save", "--pid", "1", "--type", "E")

	var st struct {
		StoreDir struct {
			Value  string `json:"value"`
			Source string `json:"source"`
		} `json:"store_dir"`
		Pending bool `json:"pending"`
		Schema  *struct {
			Current int64 `json:"current"`
			Latest  int64 `json:"latest"`
		} `json:"schema"`
	}
	e.mustRun(t, &st, "status")
	assert.Equal(t, e.storeDir, st.StoreDir.Value)
	assert.Equal(t, "cli", st.StoreDir.Source)
	assert.True(t, st.Pending)
	require.NotNil(t, st.Schema)
	assert.Equal(t, st.Schema.Latest, st.Schema.Current)
}

func TestCLI_MetricsTextfile(t *testing.T) {
	e := newCLIEnv(t, "file")
	path := filepath.Join(t.TempDir(), "wrapcrash.prom")

	e.mustRun(t, nil, "save", "--pid", "1", "--type", "E", "--metrics-textfile", path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "wrapcrash_saves_total")
}

func TestCLI_DoctorFlagsUnresolvedPending(t *testing.T) {
	e := newCLIEnv(t, "file")

	var report struct {
		Healthy     bool               `json:"healthy"`
		Diagnostics []store.Diagnostic `json:"diagnostics"`
	}
	e.mustRun(t, &report, "doctor")
	assert.True(t, report.Healthy)

	e.mustRun(t, nil, "save", "--pid", "3", "--type", "E")
	e.mustRun(t, &report, "doctor")
	assert.False(t, report.Healthy)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, "PENDING_UNRESOLVED", report.Diagnostics[0].Code)
}
