package models

import "time"

// PendingSlot is the reserved slot name holding the most recent uncorrelated
// wrapper exception. A process crashes at most once per run, so a single slot
// is enough and every save overwrites it.
const PendingSlot = "last_saved_wrapper_exception"

// StackFrame is one frame of a wrapper-layer stack trace.
type StackFrame struct {
	Address    string `json:"address,omitempty"`
	Symbol     string `json:"symbol,omitempty"`
	ClassName  string `json:"class_name,omitempty"`
	MethodName string `json:"method_name,omitempty"`
	FileName   string `json:"file_name,omitempty"`
	LineNumber int    `json:"line_number,omitempty"`
}

// ExceptionModel describes an exception raised by the wrapper layer.
// Frames are ordered innermost first.
type ExceptionModel struct {
	Type            string           `json:"type"`
	Message         string           `json:"message,omitempty"`
	Language        string           `json:"language,omitempty"`
	StackTrace      string           `json:"stack_trace,omitempty"`
	Frames          []StackFrame     `json:"frames,omitempty"`
	InnerExceptions []ExceptionModel `json:"inner_exceptions,omitempty"`
}

// WrapperException is a persisted wrapper exception occurrence.
//
// ProcessID identifies the crashing process instance and is the only key used
// for correlation with native crash reports. Data is opaque to this module and
// is handed back to wrapper-level consumers untouched.
type WrapperException struct {
	ProcessID int64          `json:"process_id"`
	Exception ExceptionModel `json:"exception"`
	Data      []byte         `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// SlotState is the lifecycle state of a stored wrapper exception slot.
type SlotState string

// Slot lifecycle states.
const (
	SlotStatePending    SlotState = "pending"
	SlotStateCorrelated SlotState = "correlated"
	SlotStateConsumed   SlotState = "consumed"
	SlotStateOrphaned   SlotState = "orphaned"
	SlotStateDeleted    SlotState = "deleted"
)

// StateForSlot returns the resting state implied by a slot name.
func StateForSlot(name string) SlotState {
	if name == PendingSlot {
		return SlotStatePending
	}
	return SlotStateCorrelated
}
