package vdp

import "errors"

// Status is the fixed result enumeration reported to API callers.
type Status int

const (
	StatusOK Status = iota
	StatusInvalidHandle
	StatusInvalidPointer
	StatusInvalidValue
	StatusResources
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusInvalidHandle:
		return "INVALID_HANDLE"
	case StatusInvalidPointer:
		return "INVALID_POINTER"
	case StatusInvalidValue:
		return "INVALID_VALUE"
	case StatusResources:
		return "RESOURCES"
	default:
		return "ERROR"
	}
}

// StatusOf maps an error returned by this module onto the status enumeration.
// State and device failures have no dedicated code and report StatusError.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrInvalidHandle):
		return StatusInvalidHandle
	case errors.Is(err, ErrInvalidPointer):
		return StatusInvalidPointer
	case errors.Is(err, ErrInvalidValue):
		return StatusInvalidValue
	case errors.Is(err, ErrResources):
		return StatusResources
	default:
		return StatusError
	}
}
