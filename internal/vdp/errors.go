// Package vdp holds the status codes, error taxonomy and device object shared
// by the surface, layer and presentation packages.
package vdp

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHandle is returned when a handle does not resolve or has the wrong type
	ErrInvalidHandle = errors.New("invalid handle")
	// ErrInvalidPointer is returned when a required output location is missing
	ErrInvalidPointer = errors.New("invalid pointer")
	// ErrInvalidValue is returned for malformed arguments such as mixed batches
	ErrInvalidValue = errors.New("invalid value")
	// ErrInvalidState is returned when an operation does not fit the presentation state
	ErrInvalidState = errors.New("invalid state")
	// ErrResources is returned when the handle table cannot hold another object
	ErrResources = errors.New("resources exhausted")
	// ErrDevice matches every *DeviceError with errors.Is
	ErrDevice = errors.New("device error")
)

// DeviceError reports a failed call into the display driver.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrDevice) match any DeviceError.
func (e *DeviceError) Is(target error) bool {
	return target == ErrDevice
}

// StateError is an ErrInvalidState carrying the offending transition.
type StateError struct {
	Op   string
	Have fmt.Stringer
	Want fmt.Stringer
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: invalid state: surface is %s, expected %s", e.Op, e.Have, e.Want)
}

func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}
