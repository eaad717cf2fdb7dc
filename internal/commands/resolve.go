package commands

import (
	"github.com/spf13/cobra"

	"github.com/dotcommander/wrapcrash/internal/output"
	"github.com/dotcommander/wrapcrash/internal/wrapper"
)

// NewResolveCmd creates the startup correlation command.
func NewResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Correlate the pending wrapper exception with a native report and prune orphans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var res wrapper.Resolution
			if err := withSession(func(s *session) error {
				var err error
				res, err = s.mgr.Resolver.ResolveOnStartup(cmd.Context())
				return err
			}); err != nil {
				return err
			}
			return output.PrintSuccess(res)
		},
	}
}
