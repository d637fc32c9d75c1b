// Package presentation implements presentation targets and queues: a target
// binds a drawable to an opened display backend, a queue shows output
// surfaces on a target.
package presentation

import (
	"fmt"

	"github.com/bnema/cedardisp/internal/display"
	"github.com/bnema/cedardisp/internal/handle"
	"github.com/bnema/cedardisp/internal/logger"
	"github.com/bnema/cedardisp/internal/surface"
	"github.com/bnema/cedardisp/internal/vdp"
)

// Status is the display state of a surface on a queue.
type Status int

const (
	StatusIdle Status = iota
	StatusQueued
	StatusVisible
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusQueued:
		return "queued"
	case StatusVisible:
		return "visible"
	default:
		return "unknown"
	}
}

// Opener opens the backend for a new target.
type Opener func(dev *vdp.Device, drawable uint32) (display.Backend, error)

type target struct {
	drawable uint32
	backend  display.Backend
}

type queue struct {
	device     handle.Handle
	target     handle.Handle
	dev        *vdp.Device
	tgt        *target
	background vdp.Color
	// timeWarned is set once the unsupported presentation time was logged
	timeWarned bool
}

// Service owns the targets and queues of one registry.
type Service struct {
	reg  *handle.Registry
	open Opener
	loc  display.Locator
}

// NewService returns a Service opening backends with open and locating
// drawables with loc.
func NewService(reg *handle.Registry, open Opener, loc display.Locator) *Service {
	if loc == nil {
		loc = display.NullLocator()
	}
	return &Service{reg: reg, open: open, loc: loc}
}

func invalidHandle(op string, h handle.Handle, err error) error {
	return fmt.Errorf("%s %s: %w: %v", op, h, vdp.ErrInvalidHandle, err)
}

func resources(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, vdp.ErrResources, err)
}

// DeviceCreate registers a device.
func (s *Service) DeviceCreate(dev *vdp.Device) (handle.Handle, error) {
	if dev == nil {
		return 0, fmt.Errorf("device create: %w", vdp.ErrInvalidPointer)
	}
	h, err := s.reg.Create(dev, handle.TypeDevice)
	if err != nil {
		return 0, resources("device create", err)
	}
	return h, nil
}

// DeviceDestroy removes a device no queue refers to anymore.
func (s *Service) DeviceDestroy(device handle.Handle) error {
	if _, err := s.reg.Type(device); err != nil {
		return invalidHandle("device destroy", device, err)
	}
	if err := s.reg.Destroy(device); err != nil {
		return fmt.Errorf("device destroy %s: %w: %v", device, vdp.ErrInvalidState, err)
	}
	return nil
}

// TargetCreate opens a display backend for drawable.
func (s *Service) TargetCreate(device handle.Handle, drawable uint32) (handle.Handle, error) {
	dev, err := handle.Get[vdp.Device](s.reg, device, handle.TypeDevice)
	if err != nil {
		return 0, invalidHandle("target create", device, err)
	}
	defer s.reg.Release(device)

	backend, err := s.open(dev, drawable)
	if err != nil {
		return 0, &vdp.DeviceError{Op: "open display backend", Err: err}
	}

	th, err := s.reg.Create(&target{drawable: drawable, backend: backend}, handle.TypePresentationTarget)
	if err != nil {
		backend.Close()
		return 0, resources("target create", err)
	}
	logger.Debugf("presentation target %s created for drawable %#x", th, drawable)
	return th, nil
}

// TargetDestroy closes the target's backend. Targets still used by a queue
// cannot be destroyed.
func (s *Service) TargetDestroy(th handle.Handle) error {
	tgt, err := handle.Get[target](s.reg, th, handle.TypePresentationTarget)
	if err != nil {
		return invalidHandle("target destroy", th, err)
	}
	if refs := s.reg.Refs(th); refs > 1 {
		s.reg.Release(th)
		return fmt.Errorf("target destroy %s: %d queues attached: %w", th, refs-1, vdp.ErrInvalidState)
	}

	closeErr := tgt.backend.Close()
	s.reg.Release(th)
	if err := s.reg.Destroy(th); err != nil {
		return fmt.Errorf("target destroy %s: %w", th, err)
	}
	if closeErr != nil {
		return &vdp.DeviceError{Op: "close display backend", Err: closeErr}
	}
	logger.Debugf("presentation target %s destroyed", th)
	return nil
}

// Create makes a queue on target. The queue holds a reference to device and
// target until Destroy.
func (s *Service) Create(device, th handle.Handle) (handle.Handle, error) {
	dev, err := handle.Get[vdp.Device](s.reg, device, handle.TypeDevice)
	if err != nil {
		return 0, invalidHandle("queue create", device, err)
	}
	tgt, err := handle.Get[target](s.reg, th, handle.TypePresentationTarget)
	if err != nil {
		s.reg.Release(device)
		return 0, invalidHandle("queue create", th, err)
	}

	qh, err := s.reg.Create(&queue{device: device, target: th, dev: dev, tgt: tgt}, handle.TypePresentationQueue)
	if err != nil {
		s.reg.Release(th)
		s.reg.Release(device)
		return 0, resources("queue create", err)
	}
	logger.Debugf("presentation queue %s created", qh)
	return qh, nil
}

// Destroy removes a queue and drops its device and target references.
func (s *Service) Destroy(qh handle.Handle) error {
	q, err := handle.Get[queue](s.reg, qh, handle.TypePresentationQueue)
	if err != nil {
		return invalidHandle("queue destroy", qh, err)
	}
	s.reg.Release(q.target)
	s.reg.Release(q.device)
	s.reg.Release(qh)
	if err := s.reg.Destroy(qh); err != nil {
		return fmt.Errorf("queue destroy %s: %w", qh, err)
	}
	logger.Debugf("presentation queue %s destroyed", qh)
	return nil
}

// withQueue runs fn with a reference on the queue.
func (s *Service) withQueue(op string, qh handle.Handle, fn func(*queue) error) error {
	q, err := handle.Get[queue](s.reg, qh, handle.TypePresentationQueue)
	if err != nil {
		return invalidHandle(op, qh, err)
	}
	defer s.reg.Release(qh)
	return fn(q)
}

// withSurface runs fn with references on the queue and the output surface.
func (s *Service) withSurface(op string, qh, sh handle.Handle, fn func(*queue, *surface.Output) error) error {
	return s.withQueue(op, qh, func(q *queue) error {
		out, err := handle.Get[surface.Output](s.reg, sh, handle.TypeOutputSurface)
		if err != nil {
			return invalidHandle(op, sh, err)
		}
		defer s.reg.Release(sh)
		return fn(q, out)
	})
}

// SetBackgroundColor stores the colour shown where no surface is displayed.
func (s *Service) SetBackgroundColor(qh handle.Handle, c *vdp.Color) error {
	if c == nil {
		return fmt.Errorf("set background color: %w", vdp.ErrInvalidPointer)
	}
	return s.withQueue("set background color", qh, func(q *queue) error {
		q.background = *c
		return nil
	})
}

// GetBackgroundColor returns the queue's background colour.
func (s *Service) GetBackgroundColor(qh handle.Handle) (vdp.Color, error) {
	var c vdp.Color
	err := s.withQueue("get background color", qh, func(q *queue) error {
		c = q.background
		return nil
	})
	return c, err
}

// GetTime returns the queue's clock, CLOCK_MONOTONIC.
func (s *Service) GetTime(qh handle.Handle) (vdp.Time, error) {
	var now vdp.Time
	err := s.withQueue("get time", qh, func(*queue) error {
		now = vdp.Now()
		return nil
	})
	return now, err
}

// Display shows surface sh on the queue right away. Presentation times are
// not supported: a non-zero earliest time is logged once per queue and
// otherwise ignored.
func (s *Service) Display(qh, sh handle.Handle, clipWidth, clipHeight uint32, earliest vdp.Time) error {
	return s.withSurface("display", qh, sh, func(q *queue, out *surface.Output) error {
		if out.Video == nil {
			logger.Debugf("display: %s carries no video", sh)
			return nil
		}

		if earliest != 0 && !q.timeWarned {
			logger.Warn("presentation time not supported, displaying immediately", "queue", qh)
			q.timeWarned = true
		}

		x, y, err := s.loc.Origin(q.tgt.drawable)
		if err != nil {
			logger.Warnf("display: locating drawable %#x: %v", q.tgt.drawable, err)
			x, y = 0, 0
		}

		backend := q.tgt.backend
		w, h := int(clipWidth), int(clipHeight)
		if err := backend.SetVideoLayer(x, y, w, h, out); err != nil {
			return fmt.Errorf("display %s: %w", sh, err)
		}

		if q.dev.OSDEnabled {
			if out.RGBADirty {
				err = backend.SetOSDLayer(x, y, w, h, out)
			} else {
				err = backend.CloseOSDLayer()
			}
			if err != nil {
				return fmt.Errorf("display %s: osd: %w", sh, err)
			}
		}
		return nil
	})
}

// BlockUntilSurfaceIdle returns at once. Overlay layers take a new picture
// synchronously, so a displayed surface is never pending.
func (s *Service) BlockUntilSurfaceIdle(qh, sh handle.Handle) (vdp.Time, error) {
	var first vdp.Time
	err := s.withSurface("block until surface idle", qh, sh, func(*queue, *surface.Output) error {
		first = vdp.Now()
		return nil
	})
	return first, err
}

// QuerySurfaceStatus reports every surface as visible since now, for the
// same reason BlockUntilSurfaceIdle never waits.
func (s *Service) QuerySurfaceStatus(qh, sh handle.Handle) (Status, vdp.Time, error) {
	var first vdp.Time
	err := s.withSurface("query surface status", qh, sh, func(*queue, *surface.Output) error {
		first = vdp.Now()
		return nil
	})
	if err != nil {
		return StatusIdle, 0, err
	}
	return StatusVisible, first, nil
}

// Close releases the locator.
func (s *Service) Close() error {
	return s.loc.Close()
}
