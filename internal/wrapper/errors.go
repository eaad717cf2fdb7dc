package wrapper

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrAlreadyResolved is returned when ResolveOnStartup runs twice in one process.
	ErrAlreadyResolved = errors.New("startup resolution already ran")
	// ErrCollaboratorUnavailable is returned when native report enumeration fails.
	ErrCollaboratorUnavailable = errors.New("native crash capture unavailable")
	// ErrConsumersPending is returned when a slot delete is attempted before
	// every report consumer has finished.
	ErrConsumersPending = errors.New("report consumers still pending")
)

// CollaboratorUnavailableError carries the enumeration failure that aborted resolution.
type CollaboratorUnavailableError struct {
	Err error
}

func (e *CollaboratorUnavailableError) Error() string {
	return fmt.Sprintf("native crash capture unavailable: %v", e.Err)
}

func (e *CollaboratorUnavailableError) Unwrap() error {
	return e.Err
}

func (e *CollaboratorUnavailableError) ErrorCode() string {
	return "COLLABORATOR_UNAVAILABLE"
}

func (e *CollaboratorUnavailableError) Context() map[string]string {
	return map[string]string{"cause": e.Err.Error()}
}

func (e *CollaboratorUnavailableError) SuggestedAction() string {
	return "the pending record was kept; resolution runs again on next startup"
}

func (e *CollaboratorUnavailableError) Is(target error) bool {
	return target == ErrCollaboratorUnavailable
}

// ConsumersPendingError replaces ErrConsumersPending with the barrier state.
type ConsumersPendingError struct {
	ReportID string
	Holders  int
	Consumed bool
}

func (e *ConsumersPendingError) Error() string {
	if !e.Consumed {
		return fmt.Sprintf("report %s has not been marked consumed", e.ReportID)
	}
	return fmt.Sprintf("report %s still has %d active consumers", e.ReportID, e.Holders)
}

func (e *ConsumersPendingError) ErrorCode() string {
	return "CONSUMERS_PENDING"
}

func (e *ConsumersPendingError) Context() map[string]string {
	return map[string]string{
		"report_id": e.ReportID,
		"holders":   strconv.Itoa(e.Holders),
		"consumed":  strconv.FormatBool(e.Consumed),
	}
}

func (e *ConsumersPendingError) SuggestedAction() string {
	return fmt.Sprintf("wrapcrash consume --report-id %s", e.ReportID)
}

func (e *ConsumersPendingError) Is(target error) bool {
	return target == ErrConsumersPending
}
