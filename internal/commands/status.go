package commands

import (
	"github.com/spf13/cobra"

	"github.com/dotcommander/wrapcrash/internal/app"
	"github.com/dotcommander/wrapcrash/internal/models"
	"github.com/dotcommander/wrapcrash/internal/output"
	"github.com/dotcommander/wrapcrash/internal/store"
)

// NewStatusCmd reports resolved configuration and slot counts.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show resolved paths, lifecycle settings and slot counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			type schemaInfo struct {
				Current int64 `json:"current"`
				Latest  int64 `json:"latest"`
			}
			type resp struct {
				StoreDir     app.ResolvedValue     `json:"store_dir"`
				StoreBackend app.ResolvedValue     `json:"store_backend"`
				ReportsDir   app.ResolvedValue     `json:"reports_dir"`
				Lifecycle    app.LifecycleSettings `json:"lifecycle"`
				Pending      bool                  `json:"pending"`
				Correlated   int                   `json:"correlated"`
				Unmatched    int                   `json:"unmatched_reports"`
				Schema       *schemaInfo           `json:"schema,omitempty"`
			}

			var out resp
			var err error
			if out.StoreDir, err = app.ResolveStoreDir(); err != nil {
				return cmdErr(err)
			}
			if out.StoreBackend, err = app.ResolveStoreBackend(); err != nil {
				return cmdErr(err)
			}
			if out.ReportsDir, err = app.ResolveReportsDir(); err != nil {
				return cmdErr(err)
			}
			out.Lifecycle = app.EffectiveLifecycleSettings()

			if err := withSession(func(s *session) error {
				names, err := s.mgr.Store().ListNames()
				if err != nil {
					return err
				}
				for _, name := range names {
					if name == models.PendingSlot {
						out.Pending = true
						continue
					}
					out.Correlated++
				}

				unmatched, err := s.reports.UnmatchedReports(cmd.Context())
				if err != nil {
					return err
				}
				out.Unmatched = len(unmatched)

				if sq, ok := s.mgr.Store().(*store.SQLiteStore); ok {
					current, latest, err := store.SchemaVersion(sq.DB())
					if err != nil {
						return err
					}
					out.Schema = &schemaInfo{Current: current, Latest: latest}
				}
				return nil
			}); err != nil {
				return err
			}
			return output.PrintSuccess(out)
		},
	}
}
