package models

import "time"

// NativeCrashReport is the identity of a crash report produced by the native
// crash-capture subsystem. This module never creates or mutates these.
type NativeCrashReport struct {
	ReportID  string    `json:"report_id"`
	ProcessID int64     `json:"process_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Thread is a native thread snapshot carried in an error log.
type Thread struct {
	ID     int64        `json:"id"`
	Name   string       `json:"name,omitempty"`
	Frames []StackFrame `json:"frames,omitempty"`
}

// ErrorLog is the report's error model as generated from a native crash report.
type ErrorLog struct {
	ReportID           string          `json:"report_id"`
	ProcessID          int64           `json:"process_id"`
	ProcessName        string          `json:"process_name,omitempty"`
	AppLaunchTimestamp *time.Time      `json:"app_launch_timestamp,omitempty"`
	Timestamp          time.Time       `json:"timestamp"`
	Fatal              bool            `json:"fatal"`
	Threads            []Thread        `json:"threads,omitempty"`
	Exception          *ExceptionModel `json:"exception,omitempty"`
	// WrapperException is set only by augmentation.
	WrapperException *ExceptionModel `json:"wrapper_exception,omitempty"`
}

// AugmentedReport is an error log after the wrapper augmentation step.
type AugmentedReport struct {
	ErrorLog      ErrorLog `json:"error_log"`
	Augmented     bool     `json:"augmented"`
	HasAttachment bool     `json:"has_attachment"`
}
