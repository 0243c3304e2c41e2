package errors

import "errors"

var (
	ErrHierarchyViolation = errors.New("mutex hierarchy violated")
	ErrMonitorClosed      = errors.New("monitor closed")
)
