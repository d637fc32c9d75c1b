package interop

import (
	"fmt"
	"image"

	"github.com/bnema/cedardisp/internal/disp"
	"github.com/bnema/cedardisp/internal/handle"
	"github.com/bnema/cedardisp/internal/layer"
	"github.com/bnema/cedardisp/internal/surface"
	"github.com/bnema/cedardisp/internal/vdp"
)

// FrameConfig describes the buffers behind a video surface. Addresses are
// allocator addresses without the display bus offset.
type FrameConfig struct {
	Format surface.SourceFormat
	AddrY  uint32
	AddrU  uint32
	// AddrV is zero when the chroma planes share one buffer.
	AddrV  uint32
	Width  int
	Height int
}

// videoOf returns the picture behind a wrapped video or output surface.
func videoOf(obj any) *surface.Video {
	switch s := obj.(type) {
	case *surface.Video:
		return s
	case *surface.Output:
		return s.Video
	default:
		return nil
	}
}

// withVideo resolves dh to its picture and runs fn with every reference
// held, releasing them on all paths. When mapped is set the surface must be
// in the Mapped state.
func (x *Interop) withVideo(op string, dh handle.Handle, mapped bool, fn func(*displaySurface, *surface.Video) error) error {
	ds, err := handle.Get[displaySurface](x.reg, dh, handle.TypeDisplaySurface)
	if err != nil {
		return invalidHandle(op, dh, err)
	}
	defer x.reg.Release(dh)

	obj, err := x.reg.Get(ds.surface, ds.kind)
	if err != nil {
		return invalidHandle(op, ds.surface, err)
	}
	defer x.reg.Release(ds.surface)

	if mapped && ds.state != surface.StateMapped {
		return fmt.Errorf("%s: %w", dh, &vdp.StateError{Op: op, Have: ds.state, Want: surface.StateMapped})
	}
	vs := videoOf(obj)
	if vs == nil {
		return fmt.Errorf("%s %s: no video attached: %w", op, dh, vdp.ErrInvalidValue)
	}
	return fn(ds, vs)
}

// Configure places the mapped surface dh on lyr: src selects the visible
// part of the picture (empty for all of it), dst is the screen rectangle.
func (x *Interop) Configure(dh handle.Handle, lyr *layer.Layer, src, dst image.Rectangle, cs disp.CSMode) error {
	return x.withVideo("configure", dh, true, func(ds *displaySurface, vs *surface.Video) error {
		info, err := x.tr.Build(layer.Source{
			Video:  vs,
			Crop:   src,
			Dst:    dst,
			CSMode: cs,
		})
		if err != nil {
			return fmt.Errorf("configure %s: %w", dh, err)
		}
		return lyr.Configure(info, &vs.Enhance)
	})
}

// Present queues the mapped surface dh as frame frameID on lyr.
func (x *Interop) Present(dh handle.Handle, lyr *layer.Layer, frameID int32, interlace, topFieldFirst bool) error {
	return x.withVideo("present", dh, true, func(ds *displaySurface, vs *surface.Video) error {
		fb := disp.NewVideoFB(frameID, x.tr.PlaneAddrs(vs), interlace, topFieldFirst)
		return lyr.PresentFrame(fb)
	})
}

// GetVideoFrameConfig reports the buffers of dh without changing anything.
func (x *Interop) GetVideoFrameConfig(dh handle.Handle) (FrameConfig, error) {
	var fc FrameConfig
	err := x.withVideo("get video frame config", dh, false, func(ds *displaySurface, vs *surface.Video) error {
		alloc := x.tr.Allocator
		fc = FrameConfig{
			Format: vs.Format,
			AddrY:  alloc.PhysicalAddress(vs.DataY),
			AddrU:  alloc.PhysicalAddress(vs.DataU),
			Width:  vs.Width,
			Height: vs.Height,
		}
		if alloc.IsValid(vs.DataV) {
			fc.AddrV = alloc.PhysicalAddress(vs.DataV)
		}
		return nil
	})
	return fc, err
}

// CloseVideoLayer stops and closes lyr.
func (x *Interop) CloseVideoLayer(lyr *layer.Layer) error {
	return lyr.Close()
}

// GetFrameID returns the frame lyr is currently scanning out.
func (x *Interop) GetFrameID(lyr *layer.Layer) (int, error) {
	return lyr.FrameID()
}
