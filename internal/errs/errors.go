// Package errs holds the error types shared by the loading, feature and
// clustering stages. Callers match them with errors.As.
package errs

import (
	"errors"
	"fmt"
)

// DataError indicates malformed, missing or inconsistent input data.
// It is fatal: a run that hits one writes no output.
type DataError struct {
	Table  string // customers|products|transactions|profiles|matrix
	Row    int    // 1-based data row (header excluded); 0 when not row specific
	Column string
	Msg    string
	Err    error
}

func (e *DataError) Error() string {
	if e == nil {
		return "data error"
	}
	loc := e.Table
	if e.Row > 0 {
		loc = fmt.Sprintf("%s row %d", loc, e.Row)
	}
	if e.Column != "" {
		loc = fmt.Sprintf("%s column %q", loc, e.Column)
	}
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	if loc == "" {
		return "data error: " + msg
	}
	return fmt.Sprintf("data error (%s): %s", loc, msg)
}

func (e *DataError) Unwrap() error { return e.Err }

// Dataf builds a DataError that is not tied to a row.
func Dataf(table, format string, args ...any) *DataError {
	return &DataError{Table: table, Msg: fmt.Sprintf(format, args...)}
}

// ConfigError indicates an invalid tunable, detected before any clustering.
type ConfigError struct {
	Key string
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "config error"
	}
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = fmt.Sprintf("%s: %v", msg, e.Err)
		}
	}
	if e.Key != "" {
		return fmt.Sprintf("config error (%s): %s", e.Key, msg)
	}
	return "config error: " + msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Configf builds a ConfigError for key.
func Configf(key, format string, args ...any) *ConfigError {
	return &ConfigError{Key: key, Msg: fmt.Sprintf(format, args...)}
}

// DegenerateMetricError marks a candidate cluster count whose validity
// indices are undefined. It is recoverable: the candidate is skipped.
type DegenerateMetricError struct {
	K      int
	Metric string // davies_bouldin|silhouette
	Reason string
}

func (e *DegenerateMetricError) Error() string {
	if e.Metric != "" {
		return fmt.Sprintf("k=%d: %s undefined: %s", e.K, e.Metric, e.Reason)
	}
	return fmt.Sprintf("k=%d: degenerate clustering: %s", e.K, e.Reason)
}

// IsData reports whether err wraps a DataError.
func IsData(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}

// IsConfig reports whether err wraps a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsDegenerate reports whether err wraps a DegenerateMetricError.
func IsDegenerate(err error) bool {
	var dm *DegenerateMetricError
	return errors.As(err, &dm)
}
