package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dotcommander/wrapcrash/internal/app"
	"github.com/dotcommander/wrapcrash/internal/output"
	"github.com/dotcommander/wrapcrash/internal/store"
)

// NewDoctorCmd reports slot consistency findings.
func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check slots for corrupt, stale or unresolved records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lifecycle := app.EffectiveLifecycleSettings()

			var diags []store.Diagnostic
			if err := withSession(func(s *session) error {
				var err error
				diags, err = store.RunDiagnostics(s.mgr.Store(), time.Now().UTC(), lifecycle.OrphanHorizon)
				return err
			}); err != nil {
				return err
			}

			type resp struct {
				Healthy     bool               `json:"healthy"`
				Diagnostics []store.Diagnostic `json:"diagnostics"`
			}
			return output.PrintSuccess(resp{Healthy: len(diags) == 0, Diagnostics: diags})
		},
	}
}
