// Package interop exposes decoder surfaces to the display path. A surface is
// registered to obtain a display-surface handle, mapped before it can be
// configured or presented, and unmapped and unregistered afterwards.
package interop

import (
	"errors"
	"fmt"

	"github.com/bnema/cedardisp/internal/handle"
	"github.com/bnema/cedardisp/internal/layer"
	"github.com/bnema/cedardisp/internal/logger"
	"github.com/bnema/cedardisp/internal/surface"
	"github.com/bnema/cedardisp/internal/vdp"
)

// displaySurface wraps one registered video or output surface. Its state is
// always written together with the wrapped surface's state.
type displaySurface struct {
	kind    handle.Type
	surface handle.Handle
	state   surface.State
}

// Interop owns the display-surface handles of one registry.
type Interop struct {
	reg *handle.Registry
	tr  *layer.Translator
}

// New returns an Interop resolving handles in reg and building layers with tr.
func New(reg *handle.Registry, tr *layer.Translator) *Interop {
	return &Interop{reg: reg, tr: tr}
}

func invalidHandle(op string, h handle.Handle, err error) error {
	return fmt.Errorf("%s %s: %w: %v", op, h, vdp.ErrInvalidHandle, err)
}

// stateOf returns the presentation state field of a video or output surface.
func stateOf(obj any) *surface.State {
	switch s := obj.(type) {
	case *surface.Video:
		return &s.State
	case *surface.Output:
		return &s.State
	default:
		return nil
	}
}

// setState moves the wrapper and the wrapped surface together.
func (ds *displaySurface) setState(obj any, st surface.State) {
	ds.state = st
	if p := stateOf(obj); p != nil {
		*p = st
	}
}

// RegisterVideoSurface wraps a 4:2:0 video surface for display.
func (x *Interop) RegisterVideoSurface(h handle.Handle) (handle.Handle, error) {
	vs, err := handle.Get[surface.Video](x.reg, h, handle.TypeVideoSurface)
	if err != nil {
		return 0, invalidHandle("register video surface", h, err)
	}
	if vs.Chroma != surface.Chroma420 {
		x.reg.Release(h)
		return 0, fmt.Errorf("register video surface %s: chroma type %d: %w", h, vs.Chroma, vdp.ErrInvalidValue)
	}
	return x.register(h, handle.TypeVideoSurface, vs)
}

// RegisterOutputSurface wraps an output surface for display.
func (x *Interop) RegisterOutputSurface(h handle.Handle) (handle.Handle, error) {
	out, err := handle.Get[surface.Output](x.reg, h, handle.TypeOutputSurface)
	if err != nil {
		return 0, invalidHandle("register output surface", h, err)
	}
	return x.register(h, handle.TypeOutputSurface, out)
}

// register is entered holding one reference on h. On success that reference
// is kept for the lifetime of the wrapper.
func (x *Interop) register(h handle.Handle, kind handle.Type, obj any) (handle.Handle, error) {
	if st := *stateOf(obj); st != surface.StateUnregistered {
		x.reg.Release(h)
		return 0, &vdp.StateError{Op: "register " + kind.String(), Have: st, Want: surface.StateUnregistered}
	}

	ds := &displaySurface{kind: kind, surface: h}
	dh, err := x.reg.Create(ds, handle.TypeDisplaySurface)
	if err != nil {
		x.reg.Release(h)
		return 0, fmt.Errorf("register %s %s: %w: %v", kind, h, vdp.ErrResources, err)
	}
	ds.setState(obj, surface.StateRegistered)
	logger.Debugf("registered %s as %s", h, dh)
	return dh, nil
}

// UnregisterSurface unmaps the surface if needed, returns it to the
// unregistered state and destroys both the wrapped handle and the wrapper.
// A second call on the same handle fails with ErrInvalidHandle.
func (x *Interop) UnregisterSurface(dh handle.Handle) error {
	ds, err := handle.Get[displaySurface](x.reg, dh, handle.TypeDisplaySurface)
	if err != nil {
		return invalidHandle("unregister surface", dh, err)
	}
	if refs := x.reg.Refs(dh); refs > 1 {
		x.reg.Release(dh)
		return fmt.Errorf("unregister surface %s: %d references outstanding: %w", dh, refs-1, vdp.ErrInvalidState)
	}

	if ds.state == surface.StateMapped {
		if err := x.transition("unmap", dh, ds, surface.StateMapped, surface.StateRegistered); err != nil {
			logger.Warnf("unregister %s: implicit unmap: %v", dh, err)
		}
	}

	if ds.surface != 0 {
		obj, err := x.reg.Get(ds.surface, ds.kind)
		if err != nil {
			logger.Warnf("unregister %s: wrapped %s already gone: %v", dh, ds.surface, err)
		} else {
			ds.setState(obj, surface.StateUnregistered)
			// our reference and the one held since registration
			x.reg.Release(ds.surface)
			x.reg.Release(ds.surface)
			if err := x.reg.Destroy(ds.surface); err != nil {
				logger.Warnf("unregister %s: destroy %s: %v", dh, ds.surface, err)
			}
		}
		ds.surface = 0
	}

	x.reg.Release(dh)
	if err := x.reg.Destroy(dh); err != nil {
		return fmt.Errorf("unregister surface %s: %w", dh, err)
	}
	return nil
}

// IsSurface reports whether dh is a live display-surface handle.
func (x *Interop) IsSurface(dh handle.Handle) bool {
	t, err := x.reg.Type(dh)
	return err == nil && t == handle.TypeDisplaySurface
}

// GetSurfaceAttributes validates dh. No attributes are exposed.
func (x *Interop) GetSurfaceAttributes(dh handle.Handle) error {
	if !x.IsSurface(dh) {
		return invalidHandle("get surface attributes", dh, handle.ErrNotFound)
	}
	return nil
}

// SetSurfaceAccess validates dh. Access modes have no effect on overlay
// layers.
func (x *Interop) SetSurfaceAccess(dh handle.Handle, access uint32) error {
	if !x.IsSurface(dh) {
		return invalidHandle("set surface access", dh, handle.ErrNotFound)
	}
	return nil
}

// acquireAll resolves every wrapper in list. On failure nothing stays
// referenced.
func (x *Interop) acquireAll(op string, list []handle.Handle) ([]*displaySurface, error) {
	out := make([]*displaySurface, 0, len(list))
	for i, dh := range list {
		ds, err := handle.Get[displaySurface](x.reg, dh, handle.TypeDisplaySurface)
		if err != nil {
			x.releaseAll(list[:i])
			return nil, invalidHandle(op, dh, err)
		}
		out = append(out, ds)
	}
	return out, nil
}

func (x *Interop) releaseAll(list []handle.Handle) {
	for _, dh := range list {
		x.reg.Release(dh)
	}
}

// transition moves one wrapper and its surface from one state to another.
func (x *Interop) transition(op string, dh handle.Handle, ds *displaySurface, from, to surface.State) error {
	if ds.state != from {
		return fmt.Errorf("%s: %w", dh, &vdp.StateError{Op: op, Have: ds.state, Want: from})
	}
	obj, err := x.reg.Get(ds.surface, ds.kind)
	if err != nil {
		return invalidHandle(op, ds.surface, err)
	}
	defer x.reg.Release(ds.surface)

	ds.setState(obj, to)
	return nil
}

// MapSurfaces moves every surface in list from Registered to Mapped. All
// elements must be of the kind of the first one; a mixed batch is rejected
// before anything changes. Elements in the wrong state fail individually
// and the rest are still mapped.
func (x *Interop) MapSurfaces(list []handle.Handle) error {
	if len(list) == 0 {
		return fmt.Errorf("map surfaces: empty batch: %w", vdp.ErrInvalidValue)
	}

	dss, err := x.acquireAll("map surfaces", list)
	if err != nil {
		return err
	}
	defer x.releaseAll(list)

	kind := dss[0].kind
	for i, ds := range dss {
		if ds.kind != kind {
			return fmt.Errorf("map surfaces: %s is a %s in a %s batch: %w", list[i], ds.kind, kind, vdp.ErrInvalidValue)
		}
	}

	var errs []error
	for i, ds := range dss {
		if err := x.transition("map", list[i], ds, surface.StateRegistered, surface.StateMapped); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// UnmapSurfaces moves every surface in list from Mapped back to Registered.
// Each element is handled by its own kind, so mixed batches are accepted.
func (x *Interop) UnmapSurfaces(list []handle.Handle) error {
	var errs []error
	for _, dh := range list {
		ds, err := handle.Get[displaySurface](x.reg, dh, handle.TypeDisplaySurface)
		if err != nil {
			errs = append(errs, invalidHandle("unmap", dh, err))
			continue
		}
		if err := x.transition("unmap", dh, ds, surface.StateMapped, surface.StateRegistered); err != nil {
			errs = append(errs, err)
		}
		x.reg.Release(dh)
	}
	return errors.Join(errs...)
}
