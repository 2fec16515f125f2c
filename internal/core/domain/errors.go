package domain

import "errors"

var (
	// ErrUnknownDevice marks a lookup outside the fixed catalog.
	ErrUnknownDevice = errors.New("unknown device")

	ErrInvalidDeviceKind = errors.New("invalid device kind")
	ErrInvalidDirection  = errors.New("invalid direction")
	ErrDuplicateDevice   = errors.New("duplicate device id")
)
