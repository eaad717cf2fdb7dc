package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotcommander/wrapcrash/internal/models"
	"github.com/dotcommander/wrapcrash/internal/output"
)

// NewSaveCmd creates the save command, the crash-time handoff from a wrapper layer.
func NewSaveCmd() *cobra.Command {
	var (
		pid        int64
		excType    string
		message    string
		language   string
		stackTrace string
		framesFile string
		dataFile   string
		fromJSON   string
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Persist a wrapper exception into the pending slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				rec models.WrapperException
				err error
			)
			if fromJSON != "" {
				rec, err = readRecordJSON(cmd.InOrStdin(), fromJSON)
			} else {
				rec, err = recordFromFlags(pid, excType, message, language, stackTrace, framesFile, dataFile)
			}
			if err != nil {
				return cmdErr(err)
			}
			if rec.CreatedAt.IsZero() {
				rec.CreatedAt = time.Now().UTC()
			}

			if err := withSession(func(s *session) error {
				s.mgr.Writer.Save(rec)
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Slot      string    `json:"slot"`
				ProcessID int64     `json:"process_id"`
				Type      string    `json:"type"`
				CreatedAt time.Time `json:"created_at"`
			}
			return output.PrintSuccess(resp{
				Slot:      models.PendingSlot,
				ProcessID: rec.ProcessID,
				Type:      rec.Exception.Type,
				CreatedAt: rec.CreatedAt,
			})
		},
	}

	cmd.Flags().Int64Var(&pid, "pid", 0, "Process id of the crashing process (required unless --from-json)")
	cmd.Flags().StringVar(&excType, "type", "", "Exception type (required unless --from-json)")
	cmd.Flags().StringVar(&message, "message", "", "Exception message")
	cmd.Flags().StringVar(&language, "language", "", "Wrapper SDK language")
	cmd.Flags().StringVar(&stackTrace, "stack-trace", "", "Raw stack trace text")
	cmd.Flags().StringVar(&framesFile, "frames", "", "JSON file with an array of stack frames")
	cmd.Flags().StringVar(&dataFile, "data-file", "", "File stored as the opaque attachment")
	cmd.Flags().StringVar(&fromJSON, "from-json", "", "Read the whole record as JSON from this file, or - for stdin")
	return cmd
}

func recordFromFlags(pid int64, excType, message, language, stackTrace, framesFile, dataFile string) (models.WrapperException, error) {
	if pid <= 0 {
		return models.WrapperException{}, errors.New("--pid is required")
	}
	if excType == "" {
		return models.WrapperException{}, errors.New("--type is required")
	}

	rec := models.WrapperException{
		ProcessID: pid,
		Exception: models.ExceptionModel{
			Type:       excType,
			Message:    message,
			Language:   language,
			StackTrace: stackTrace,
		},
	}

	if framesFile != "" {
		b, err := os.ReadFile(framesFile) //nolint:gosec // G304: operator-supplied path
		if err != nil {
			return rec, fmt.Errorf("read frames: %w", err)
		}
		if err := json.Unmarshal(b, &rec.Exception.Frames); err != nil {
			return rec, fmt.Errorf("parse frames: %w", err)
		}
	}
	if dataFile != "" {
		b, err := os.ReadFile(dataFile) //nolint:gosec // G304: operator-supplied path
		if err != nil {
			return rec, fmt.Errorf("read attachment: %w", err)
		}
		rec.Data = b
	}
	return rec, nil
}

func readRecordJSON(stdin io.Reader, path string) (models.WrapperException, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path) //nolint:gosec // G304: operator-supplied path
	}
	if err != nil {
		return models.WrapperException{}, fmt.Errorf("read record: %w", err)
	}

	var rec models.WrapperException
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, fmt.Errorf("parse record: %w", err)
	}
	if rec.ProcessID <= 0 {
		return rec, errors.New("record has no process_id")
	}
	if rec.Exception.Type == "" {
		return rec, errors.New("record has no exception type")
	}
	return rec, nil
}
