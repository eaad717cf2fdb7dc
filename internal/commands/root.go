package commands

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotcommander/wrapcrash/internal/app"
	"github.com/dotcommander/wrapcrash/internal/output"
)

// Execute runs the CLI application.
func Execute(version string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	root := NewRootCmd(version)
	err := root.Execute()
	if err != nil {
		var pe printedError
		if !errors.As(err, &pe) {
			slog.Error("command failed", "error", err.Error())
		}
	}
	return err
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "wrapcrash",
		Short:         "Correlate wrapper-layer exceptions with native crash reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if showVersion {
				type resp struct {
					Version string `json:"version"`
				}
				return output.PrintSuccess(resp{Version: version})
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.EnsureConfigDir(); err != nil {
				return err
			}

			var o app.Overrides
			o.StoreDir, _ = cmd.Flags().GetString("store-dir")
			o.ReportsDir, _ = cmd.Flags().GetString("reports-dir")
			o.StoreBackend, _ = cmd.Flags().GetString("backend")
			app.SetOverrides(o)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return exportMetrics(cmd)
		},
	}

	root.PersistentFlags().String("store-dir", "", "Override slot directory")
	root.PersistentFlags().String("reports-dir", "", "Override native report manifest directory")
	root.PersistentFlags().String("backend", "", "Slot store backend: file|sqlite")
	root.PersistentFlags().String("metrics-textfile", "", "Write Prometheus metrics to this file after the command")
	root.Flags().BoolP("version", "v", false, "version for wrapcrash")

	root.AddCommand(NewSaveCmd())
	root.AddCommand(NewResolveCmd())
	root.AddCommand(NewAugmentCmd())
	root.AddCommand(NewAttachmentCmd())
	root.AddCommand(NewConsumeCmd())
	root.AddCommand(NewProcessCmd())
	root.AddCommand(NewSlotsCmd())
	root.AddCommand(NewNativeCmd())
	root.AddCommand(NewStatusCmd())
	root.AddCommand(NewDoctorCmd())
	root.AddCommand(NewSchemaCmd(root))
	return root
}

// exportMetrics writes the process metrics when a textfile path is set by
// flag or config. Export failures are logged, not returned.
func exportMetrics(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("metrics-textfile")
	if path == "" {
		if s, err := app.LoadSettings(); err == nil {
			path = s.MetricsTextfile
		}
	}
	if path == "" {
		return nil
	}
	if err := processMetrics.WriteTextfile(path); err != nil {
		slog.Warn("failed to write metrics textfile", "path", path, "error", err.Error())
	}
	return nil
}
