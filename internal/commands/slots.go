package commands

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotcommander/wrapcrash/internal/models"
	"github.com/dotcommander/wrapcrash/internal/output"
	"github.com/dotcommander/wrapcrash/internal/store"
)

// slotSummary is one row of `slots list`.
type slotSummary struct {
	Name      string           `json:"name"`
	State     models.SlotState `json:"state"`
	ProcessID int64            `json:"process_id,omitempty"`
	Type      string           `json:"type,omitempty"`
	CreatedAt *time.Time       `json:"created_at,omitempty"`
	Corrupt   bool             `json:"corrupt,omitempty"`
}

// NewSlotsCmd creates the slot inspection command group.
func NewSlotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Inspect stored wrapper exception slots",
	}

	cmd.AddCommand(newSlotsListCmd())
	cmd.AddCommand(newSlotsShowCmd())
	return cmd
}

func newSlotsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List slots with their lifecycle state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var slots []slotSummary
			if err := withSession(func(s *session) error {
				var err error
				slots, err = listSlots(s.mgr.Store())
				return err
			}); err != nil {
				return err
			}

			type resp struct {
				Count int           `json:"count"`
				Slots []slotSummary `json:"slots"`
			}
			return output.PrintSuccess(resp{Count: len(slots), Slots: slots})
		},
	}
}

func newSlotsShowCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the decoded record held in a slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return cmdErr(errors.New("--name is required"))
			}

			var rec models.WrapperException
			if err := withSession(func(s *session) error {
				data, err := s.mgr.Store().Read(name)
				if err != nil {
					return err
				}
				rec, err = models.DecodeWrapperException(data)
				return err
			}); err != nil {
				return err
			}

			type resp struct {
				Name   string                  `json:"name"`
				State  models.SlotState        `json:"state"`
				Record models.WrapperException `json:"record"`
			}
			return output.PrintSuccess(resp{Name: name, State: models.StateForSlot(name), Record: rec})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Slot name: a report id or "+models.PendingSlot+" (required)")
	return cmd
}

func listSlots(s store.Store) ([]slotSummary, error) {
	names, err := s.ListNames()
	if err != nil {
		return nil, err
	}

	out := make([]slotSummary, 0, len(names))
	for _, name := range names {
		row := slotSummary{Name: name, State: models.StateForSlot(name)}
		data, err := s.Read(name)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rec, err := models.DecodeWrapperException(data)
		if err != nil {
			row.Corrupt = true
			out = append(out, row)
			continue
		}
		created := rec.CreatedAt
		row.ProcessID = rec.ProcessID
		row.Type = rec.Exception.Type
		row.CreatedAt = &created
		out = append(out, row)
	}
	return out, nil
}
