package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dotcommander/wrapcrash/internal/models"
	"github.com/dotcommander/wrapcrash/internal/native"
	"github.com/dotcommander/wrapcrash/internal/output"
	"github.com/dotcommander/wrapcrash/internal/wrapper"
)

type processedReport struct {
	Report         models.AugmentedReport `json:"report"`
	AttachmentSize int                    `json:"attachment_size"`
	State          models.SlotState       `json:"state"`
}

// NewProcessCmd runs the startup pipeline: resolve, then deliver every
// correlated report through the report and attachment consumers.
func NewProcessCmd() *cobra.Command {
	var keep bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Resolve, augment every correlated report and consume it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			type resp struct {
				Resolution wrapper.Resolution `json:"resolution"`
				Reports    []processedReport  `json:"reports"`
			}
			var out resp

			if err := withSession(func(s *session) error {
				res, err := s.mgr.Resolver.ResolveOnStartup(cmd.Context())
				if err != nil {
					return err
				}
				out.Resolution = res

				out.Reports, err = deliverCorrelated(cmd.Context(), s.reports, s.mgr, !keep)
				return err
			}); err != nil {
				return err
			}
			return output.PrintSuccess(out)
		},
	}

	cmd.Flags().BoolVar(&keep, "keep", false, "Do not consume delivered reports")
	return cmd
}

// deliverCorrelated augments each correlated slot that has a native report.
// The report and attachment consumers run concurrently; the slot is deleted
// once both have released it.
func deliverCorrelated(ctx context.Context, src native.ReportSource, mgr *wrapper.Manager, consume bool) ([]processedReport, error) {
	names, err := mgr.Store().ListNames()
	if err != nil {
		return nil, err
	}

	aug := mgr.Augmenter
	out := make([]processedReport, 0, len(names))
	for _, name := range names {
		if name == models.PendingSlot {
			continue
		}
		log, err := src.Report(ctx, name)
		if errors.Is(err, native.ErrReportNotFound) {
			slog.Debug("correlated slot has no native report", "report_id", name)
			continue
		}
		if err != nil {
			return out, err
		}

		var p processedReport
		releaseReport := aug.Acquire(name)
		releaseAttachment := aug.Acquire(name)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer releaseReport()
			p.Report = aug.Augment(gctx, log)
			return nil
		})
		g.Go(func() error {
			defer releaseAttachment()
			data, err := aug.LoadAttachment(name)
			if err != nil {
				slog.Warn("attachment unavailable", "report_id", name, "error", err.Error())
				return nil
			}
			p.AttachmentSize = len(data)
			return nil
		})

		if consume {
			if err := aug.MarkConsumed(name); err != nil {
				_ = g.Wait()
				return out, err
			}
		}
		if err := g.Wait(); err != nil {
			return out, err
		}
		p.State = aug.State(name)
		out = append(out, p)
	}
	return out, nil
}
