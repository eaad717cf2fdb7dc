package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotcommander/wrapcrash/internal/native"
	"github.com/dotcommander/wrapcrash/internal/output"
)

// NewNativeCmd creates the native report manifest command group.
func NewNativeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "native",
		Short: "Manage native crash report manifests",
	}

	cmd.AddCommand(newNativeAddCmd())
	cmd.AddCommand(newNativeListCmd())
	return cmd
}

func newNativeAddCmd() *cobra.Command {
	var (
		pid         int64
		reportID    string
		processName string
		timestamp   string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a native crash report manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pid <= 0 {
				return cmdErr(errors.New("--pid is required"))
			}
			m := native.Manifest{ReportID: reportID, ProcessID: pid, ProcessName: processName}
			if timestamp != "" {
				ts, err := time.Parse(time.RFC3339, timestamp)
				if err != nil {
					return cmdErr(fmt.Errorf("invalid --timestamp: %w", err))
				}
				m.Timestamp = ts.UTC()
			}

			var stored native.Manifest
			if err := withSession(func(s *session) error {
				var err error
				stored, err = s.reports.Add(m)
				return err
			}); err != nil {
				return err
			}

			type resp struct {
				Manifest native.Manifest `json:"manifest"`
			}
			return output.PrintSuccess(resp{Manifest: stored})
		},
	}

	cmd.Flags().Int64Var(&pid, "pid", 0, "Process id of the crashed process (required)")
	cmd.Flags().StringVar(&reportID, "id", "", "Report id (default: generated UUID)")
	cmd.Flags().StringVar(&processName, "process-name", "", "Process name")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "Crash time as RFC3339 (default: now)")
	return cmd
}

func newNativeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List native crash report manifests, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var manifests []native.Manifest
			if err := withSession(func(s *session) error {
				var err error
				manifests, err = s.reports.List(cmd.Context())
				return err
			}); err != nil {
				return err
			}

			type resp struct {
				Count   int               `json:"count"`
				Reports []native.Manifest `json:"reports"`
			}
			return output.PrintSuccess(resp{Count: len(manifests), Reports: manifests})
		},
	}
}
