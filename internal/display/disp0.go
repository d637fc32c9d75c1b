package display

import (
	"errors"
	"fmt"
	"image"

	"github.com/charmbracelet/log"

	"github.com/bnema/cedardisp/internal/disp"
	"github.com/bnema/cedardisp/internal/layer"
	"github.com/bnema/cedardisp/internal/logger"
	"github.com/bnema/cedardisp/internal/surface"
	"github.com/bnema/cedardisp/internal/vdp"
)

// screen the legacy driver drives on /dev/fb0
const disp0Screen = 0

// disp0Backend drives a scaler layer of the sunxi disp 1.x engine directly.
type disp0Backend struct {
	t   disp.Transport
	fb  disp.Transport
	g2d disp.Transport

	tr      *layer.Translator
	video   *layer.Layer
	osd     *layer.Layer
	fbLayer disp.LayerID

	width, height int
	bestEffort    bool
	log           *log.Logger
}

func colorKeyOf(rgb uint32) *disp.ColorKey {
	c := disp.Color{
		Alpha: 0xff,
		Red:   uint8(rgb >> 16),
		Green: uint8(rgb >> 8),
		Blue:  uint8(rgb),
	}
	// match rule 2: pixel equals the key
	return &disp.ColorKey{Max: c, Min: c, RedMatchRule: 2, GreenMatchRule: 2, BlueMatchRule: 2}
}

func openDisp0(cfg *Config, _ uint32) (Backend, error) {
	if cfg.Allocator == nil {
		return nil, errors.New("disp0: no buffer allocator")
	}

	b := &disp0Backend{
		tr:         &layer.Translator{Allocator: cfg.Allocator, PhysOffset: cfg.PhysOffset},
		bestEffort: cfg.BestEffort,
		log:        logger.Device(cfg.DispDevice),
	}

	if cfg.OSD {
		g2d, err := cfg.dial(cfg.G2DDevice)
		if err != nil {
			logger.Device(cfg.G2DDevice).Debug("open failed, OSD disabled", "err", err)
		} else {
			b.g2d = g2d
		}
	}

	t, err := cfg.dial(cfg.DispDevice)
	if err != nil {
		b.closeDevices()
		return nil, err
	}
	b.t = t

	fb, err := cfg.dial(cfg.FBDevice)
	if err != nil {
		b.closeDevices()
		return nil, err
	}
	b.fb = fb

	if err := b.setup(cfg.ColorKey); err != nil {
		b.closeDevices()
		return nil, err
	}
	return b, nil
}

// setup follows the legacy driver's bring-up: version handshake, console
// layer lookup, scaler layer allocation, then keying and blending so the
// overlay shows through the console where it is painted with the key.
func (b *disp0Backend) setup(colorKey uint32) error {
	ver := int32(disp.Version)
	if _, err := b.t.Do(disp.Request{Cmd: disp.CmdVersion, Payload: &ver, Direct: true}); err != nil {
		return fmt.Errorf("disp0: version %#x: %w", disp.Version, err)
	}

	var fbLayer int32
	if _, err := b.fb.Do(disp.Request{Cmd: disp.FBIOGetLayerHdl0, Payload: &fbLayer, Direct: true}); err != nil {
		return fmt.Errorf("disp0: framebuffer layer: %w", err)
	}
	b.fbLayer = disp.LayerID(fbLayer)

	layer.ReleaseStale(b.t, disp0Screen)

	video, err := layer.Request(b.t, disp0Screen, disp.WorkModeScaler)
	if err != nil {
		return fmt.Errorf("disp0: %w", err)
	}
	video.BestEffort = b.bestEffort
	b.video = video

	ck := colorKeyOf(colorKey)
	b.try(disp.ScreenPayload(disp.CmdSetColorKey, disp0Screen, ck))

	if w, err := b.t.Do(disp.ScreenRequest(disp.CmdScnGetWidth, disp0Screen)); err == nil {
		b.width = w
	}
	if h, err := b.t.Do(disp.ScreenRequest(disp.CmdScnGetHeight, disp0Screen)); err == nil {
		b.height = h
	}

	var info disp.LayerInfo
	if b.try(disp.LayerPayload(disp.CmdLayerGetPara, disp0Screen, b.fbLayer, &info)) {
		info.AlphaEn = 1
		info.AlphaVal = 0xff
		b.try(disp.LayerPayload(disp.CmdLayerSetPara, disp0Screen, b.fbLayer, &info))
	}

	bk := ck.Max
	b.try(disp.ScreenPayload(disp.CmdSetBkColor, disp0Screen, &bk))
	b.try(disp.LayerRequest(disp.CmdLayerTop, disp0Screen, b.video.ID()))

	// console layer: no keying, opaque global alpha
	b.try(disp.LayerRequest(disp.CmdLayerCkOff, disp0Screen, b.fbLayer))
	b.try(disp.LayerValue(disp.CmdLayerSetAlphaValue, disp0Screen, b.fbLayer, 0xff))
	b.try(disp.LayerRequest(disp.CmdLayerAlphaOn, disp0Screen, b.fbLayer))

	b.log.Debug("disp0 ready", "screen", fmt.Sprintf("%dx%d", b.width, b.height),
		"fb_layer", fmt.Sprintf("%#x", b.fbLayer), "video_layer", fmt.Sprintf("%#x", b.video.ID()))
	return nil
}

// try issues a bring-up request whose failure only degrades the result.
func (b *disp0Backend) try(req disp.Request) bool {
	if _, err := b.t.Do(req); err != nil {
		b.log.Warn("request failed", "cmd", req.Cmd, "err", err)
		return false
	}
	return true
}

// ScreenSize returns the size reported by the driver at open.
func (b *disp0Backend) ScreenSize() (int, int) {
	return b.width, b.height
}

func videoDst(out *surface.Output, width, height int) image.Rectangle {
	if !out.VideoDst.Empty() {
		return out.VideoDst
	}
	return image.Rect(0, 0, width, height)
}

func (b *disp0Backend) SetVideoLayer(x, y, width, height int, out *surface.Output) error {
	if out == nil || out.Video == nil {
		return errors.New("disp0: output surface has no video")
	}
	info, err := b.tr.Build(layer.Source{
		Video:  out.Video,
		Crop:   out.VideoSrc,
		Dst:    videoDst(out, width, height),
		Origin: image.Pt(x, y),
		CSMode: disp.CSModeBT709,
	})
	if err != nil {
		return err
	}
	return b.video.Configure(info, &out.Enhance)
}

func (b *disp0Backend) CloseVideoLayer() error {
	return b.video.Close()
}

func (b *disp0Backend) SetOSDLayer(x, y, width, height int, out *surface.Output) error {
	if b.g2d == nil {
		return nil
	}
	if out == nil {
		return errors.New("disp0: no output surface")
	}
	if b.osd == nil {
		osd, err := layer.Request(b.t, disp0Screen, disp.WorkModeNormal)
		if err != nil {
			return fmt.Errorf("disp0: osd: %w", err)
		}
		osd.BestEffort = b.bestEffort
		b.osd = osd
	}

	info, err := b.tr.BuildOSD(layer.OSDSource{
		Buffer: out.RGBA,
		Format: out.RGBAFormat,
		Width:  out.Width,
		Height: out.Height,
		Dst:    image.Rect(0, 0, width, height),
		Origin: image.Pt(x, y),
	})
	if err != nil {
		return fmt.Errorf("disp0: osd: %w", err)
	}
	if err := b.osd.Configure(info, nil); err != nil {
		return err
	}
	if _, err := b.t.Do(disp.LayerRequest(disp.CmdLayerTop, disp0Screen, b.osd.ID())); err != nil {
		if b.bestEffort {
			b.log.Warn("osd raise failed", "cmd", disp.CmdLayerTop, "err", err)
			return nil
		}
		return &vdp.DeviceError{Op: disp.CmdLayerTop.String(), Err: err}
	}
	return nil
}

func (b *disp0Backend) CloseOSDLayer() error {
	if b.osd == nil {
		return nil
	}
	return b.osd.Close()
}

func (b *disp0Backend) Close() error {
	var errs []error
	if b.osd != nil {
		errs = append(errs, b.osd.Release())
		b.osd = nil
	}
	if b.video != nil {
		errs = append(errs, b.video.Release())
		b.video = nil
	}
	errs = append(errs, b.closeDevices())
	return errors.Join(errs...)
}

func (b *disp0Backend) closeDevices() error {
	var errs []error
	for _, t := range []*disp.Transport{&b.t, &b.fb, &b.g2d} {
		if *t != nil {
			errs = append(errs, (*t).Close())
			*t = nil
		}
	}
	return errors.Join(errs...)
}
