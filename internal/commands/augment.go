package commands

import (
	"encoding/base64"
	"errors"

	"github.com/spf13/cobra"

	"github.com/dotcommander/wrapcrash/internal/models"
	"github.com/dotcommander/wrapcrash/internal/output"
)

// NewAugmentCmd prints a native report with its wrapper exception merged in.
func NewAugmentCmd() *cobra.Command {
	var reportID string

	cmd := &cobra.Command{
		Use:   "augment",
		Short: "Print a native report augmented with its wrapper exception",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reportID == "" {
				return cmdErr(errors.New("--report-id is required"))
			}

			var report models.AugmentedReport
			if err := withSession(func(s *session) error {
				log, err := s.reports.Report(cmd.Context(), reportID)
				if err != nil {
					return err
				}
				release := s.mgr.Augmenter.Acquire(reportID)
				defer release()
				report = s.mgr.Augmenter.Augment(cmd.Context(), log)
				return nil
			}); err != nil {
				return err
			}
			return output.PrintSuccess(report)
		},
	}

	cmd.Flags().StringVar(&reportID, "report-id", "", "Native report id (required)")
	return cmd
}

// NewAttachmentCmd prints the wrapper-defined attachment of a correlated report.
func NewAttachmentCmd() *cobra.Command {
	var reportID string

	cmd := &cobra.Command{
		Use:   "attachment",
		Short: "Print the base64 attachment saved with a correlated wrapper exception",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reportID == "" {
				return cmdErr(errors.New("--report-id is required"))
			}

			var data []byte
			if err := withSession(func(s *session) error {
				var err error
				data, err = s.mgr.Augmenter.LoadAttachment(reportID)
				return err
			}); err != nil {
				return err
			}

			type resp struct {
				ReportID string `json:"report_id"`
				Size     int    `json:"size"`
				Data     string `json:"data"`
			}
			return output.PrintSuccess(resp{
				ReportID: reportID,
				Size:     len(data),
				Data:     base64.StdEncoding.EncodeToString(data),
			})
		},
	}

	cmd.Flags().StringVar(&reportID, "report-id", "", "Native report id (required)")
	return cmd
}

// NewConsumeCmd signals that every consumer has finished with a report.
func NewConsumeCmd() *cobra.Command {
	var reportID string

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Mark a report consumed and delete its wrapper exception",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reportID == "" {
				return cmdErr(errors.New("--report-id is required"))
			}

			var state models.SlotState
			if err := withSession(func(s *session) error {
				if err := s.mgr.Augmenter.MarkConsumed(reportID); err != nil {
					return err
				}
				state = s.mgr.Augmenter.State(reportID)
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				ReportID string           `json:"report_id"`
				State    models.SlotState `json:"state"`
			}
			return output.PrintSuccess(resp{ReportID: reportID, State: state})
		},
	}

	cmd.Flags().StringVar(&reportID, "report-id", "", "Native report id (required)")
	return cmd
}
