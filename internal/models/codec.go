package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// recordFormatVersion is bumped whenever the slot envelope changes shape.
const recordFormatVersion = 1

// ErrCorruptRecord is returned when slot content cannot be decoded.
var ErrCorruptRecord = errors.New("corrupt wrapper exception record")

type recordEnvelope struct {
	Version int               `json:"version"`
	Record  *WrapperException `json:"record"`
}

// EncodeWrapperException serializes a record into slot content.
func EncodeWrapperException(rec WrapperException) ([]byte, error) {
	b, err := json.Marshal(recordEnvelope{Version: recordFormatVersion, Record: &rec})
	if err != nil {
		return nil, fmt.Errorf("encode wrapper exception: %w", err)
	}
	return b, nil
}

// DecodeWrapperException parses slot content written by EncodeWrapperException.
func DecodeWrapperException(data []byte) (WrapperException, error) {
	var env recordEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return WrapperException{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if env.Version != recordFormatVersion {
		return WrapperException{}, fmt.Errorf("%w: unsupported version %d", ErrCorruptRecord, env.Version)
	}
	if env.Record == nil {
		return WrapperException{}, fmt.Errorf("%w: missing record", ErrCorruptRecord)
	}
	return *env.Record, nil
}
