package model

import (
	"errors"
	"fmt"
)

// Status markers prefixed to every human readable outcome.
const (
	SuccessMark = "✅"
	FailureMark = "❌"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrNotADirectory    = errors.New("not a directory")
	ErrParse            = errors.New("malformed document")
	ErrEncoding         = errors.New("encoding failure")
	ErrIO               = errors.New("io failure")
	ErrNoSamples        = errors.New("no samples")
	ErrNoLabeledSamples = errors.New("no labeled samples")
	ErrBackendNotReady  = errors.New("model not initialized")
	ErrInvalidIndex     = errors.New("invalid sample index")
)

// Status is the outcome of an operation as shown to a reviewer.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Success builds a successful status.
func Success(format string, args ...any) Status {
	return Status{OK: true, Message: fmt.Sprintf(format, args...)}
}

// Failure builds a failed status.
func Failure(format string, args ...any) Status {
	return Status{OK: false, Message: fmt.Sprintf(format, args...)}
}

// FailureStatus wraps err into a failed status.
func FailureStatus(err error) Status {
	return Status{OK: false, Message: err.Error()}
}

func (s Status) String() string {
	if s.OK {
		return SuccessMark + " " + s.Message
	}
	return FailureMark + " " + s.Message
}
