package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInterval is returned for a timeInterval outside hour/day/week/month.
	ErrInvalidInterval = errors.New("invalid time interval")
	// ErrInvalidReportType is returned for a report outside EGS/FCP/LCP.
	ErrInvalidReportType = errors.New("invalid report type")
	// ErrInvalidParams covers missing or malformed query parameters.
	ErrInvalidParams = errors.New("invalid parameters")
	// ErrRunInProgress means another process holds the generation lock for the report.
	ErrRunInProgress = errors.New("generation already in progress")
)

// StoreError wraps a failed read or write against the document store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// WrapStore returns nil for a nil err, otherwise a *StoreError.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
