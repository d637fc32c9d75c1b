package vdp

import (
	"golang.org/x/sys/unix"
)

// Color is an RGBA colour with normalized components.
type Color struct {
	Red, Green, Blue, Alpha float32
}

// Time is a monotonic timestamp in nanoseconds.
type Time uint64

// Now reads CLOCK_MONOTONIC. It returns 0 if the clock cannot be read.
func Now() Time {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return Time(uint64(ts.Sec)*1000000000 + uint64(ts.Nsec))
}

// Device is the per-client context every presentation object hangs off.
type Device struct {
	// DisplayName is the X display the client was created for, empty when
	// running directly on the framebuffer.
	DisplayName string
	Screen      int
	// OSDEnabled turns on the RGBA overlay path in queue displays.
	OSDEnabled bool
}
