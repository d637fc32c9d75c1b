package layer

import (
	"fmt"
	"sync"

	"github.com/bnema/cedardisp/internal/disp"
	"github.com/bnema/cedardisp/internal/logger"
	"github.com/bnema/cedardisp/internal/surface"
	"github.com/bnema/cedardisp/internal/vdp"
)

// StaleLayers are the handles earlier clients typically leave allocated
// when they die without releasing their layers.
var StaleLayers = []disp.LayerID{0x65, 0x66, 0x67}

// Layer drives one hardware layer. It tracks whether the layer has been
// opened and video started so repeated presents skip that step. Calls are
// serialized.
type Layer struct {
	mu     sync.Mutex
	t      disp.Transport
	screen uint32
	id     disp.LayerID
	opened bool
	// video layers run the frame queue between open and close
	video bool

	// BestEffort logs transport failures instead of returning them.
	BestEffort bool
}

// New wraps an already requested scaler layer.
func New(t disp.Transport, screen uint32, id disp.LayerID) *Layer {
	return &Layer{t: t, screen: screen, id: id, video: true}
}

// Attach wraps a scaler layer another process left open, so Close stops
// its video and closes it.
func Attach(t disp.Transport, screen uint32, id disp.LayerID) *Layer {
	l := New(t, screen, id)
	l.opened = true
	return l
}

// ReleaseStale releases StaleLayers on screen, ignoring failures.
func ReleaseStale(t disp.Transport, screen uint32) {
	for _, id := range StaleLayers {
		if _, err := t.Do(disp.LayerRequest(disp.CmdLayerRelease, screen, id)); err != nil {
			logger.Debugf("release stale layer %#x: %v", id, err)
		}
	}
}

// Request asks the driver for a new layer in the given work mode.
func Request(t disp.Transport, screen uint32, mode disp.WorkMode) (*Layer, error) {
	id, err := t.Do(disp.Request{Cmd: disp.CmdLayerRequest, Args: [4]uintptr{uintptr(screen), uintptr(mode)}})
	if err != nil {
		return nil, &vdp.DeviceError{Op: disp.CmdLayerRequest.String(), Err: err}
	}
	if id == 0 {
		return nil, &vdp.DeviceError{Op: disp.CmdLayerRequest.String(), Err: fmt.Errorf("no free layer on screen %d", screen)}
	}
	l := New(t, screen, disp.LayerID(id))
	l.video = mode == disp.WorkModeScaler
	return l, nil
}

// ID returns the driver's layer handle.
func (l *Layer) ID() disp.LayerID {
	return l.id
}

// Screen returns the screen the layer belongs to.
func (l *Layer) Screen() uint32 {
	return l.screen
}

// Opened reports whether the layer is open and its video started.
func (l *Layer) Opened() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opened
}

// do issues req. In best effort mode the failure is logged and dropped.
func (l *Layer) do(req disp.Request) (int, error) {
	r, err := l.t.Do(req)
	if err == nil {
		return r, nil
	}
	derr := &vdp.DeviceError{Op: req.Cmd.String(), Err: err}
	if l.BestEffort {
		logger.Warnf("layer %#x: %v", l.id, derr)
		return r, nil
	}
	return r, derr
}

func (l *Layer) cmd(cmd disp.Cmd) error {
	_, err := l.do(disp.LayerRequest(cmd, l.screen, l.id))
	return err
}

func (l *Layer) open() error {
	if l.opened {
		return nil
	}
	if err := l.cmd(disp.CmdLayerOpen); err != nil {
		return err
	}
	if l.video {
		if err := l.cmd(disp.CmdVideoStart); err != nil {
			return err
		}
	}
	l.opened = true
	return nil
}

// Configure applies info, opens the layer on first use and uploads
// changed enhancement values. enhance may be nil.
func (l *Layer) Configure(info *disp.LayerInfo, enhance *surface.Enhancement) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.do(disp.LayerPayload(disp.CmdLayerSetPara, l.screen, l.id, info)); err != nil {
		return err
	}
	if err := l.open(); err != nil {
		return err
	}
	if enhance != nil && enhance.Changed {
		if err := l.enhance(enhance); err != nil {
			return err
		}
		enhance.Changed = false
	}
	return nil
}

// Enhancement holds the driver values derived from a surface.Enhancement.
type Enhancement struct {
	Bright     int32
	Contrast   int32
	Saturation int32
	Hue        int32
}

// ScaleEnhancement maps normalized picture controls to driver values.
// 0x20 is the driver's neutral point for every control.
func ScaleEnhancement(e *surface.Enhancement) Enhancement {
	return Enhancement{
		Bright:     int32(0xff*e.Brightness + 0x20),
		Contrast:   int32(0x20 * e.Contrast),
		Saturation: int32(0x20 * e.Saturation),
		// hue has no documented scale, this maps +-pi to roughly +-32
		Hue: int32((32/3.14)*e.Hue + 0x20),
	}
}

func (l *Layer) enhance(e *surface.Enhancement) error {
	v := ScaleEnhancement(e)
	if err := l.cmd(disp.CmdLayerEnhanceOff); err != nil {
		return err
	}
	steps := []struct {
		cmd disp.Cmd
		val int32
	}{
		{disp.CmdLayerSetBright, v.Bright},
		{disp.CmdLayerSetContrast, v.Contrast},
		{disp.CmdLayerSetSaturation, v.Saturation},
		{disp.CmdLayerSetHue, v.Hue},
	}
	for _, s := range steps {
		if _, err := l.do(disp.LayerValue(s.cmd, l.screen, l.id, uint32(s.val))); err != nil {
			return err
		}
	}
	return l.cmd(disp.CmdLayerEnhanceOn)
}

// PresentFrame hands the next frame to the running video layer.
func (l *Layer) PresentFrame(fb *disp.VideoFB) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.open(); err != nil {
		return err
	}
	_, err := l.do(disp.LayerPayload(disp.CmdVideoSetFB, l.screen, l.id, fb))
	return err
}

// FrameID returns the id of the frame currently scanned out.
func (l *Layer) FrameID() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id, err := l.t.Do(disp.LayerRequest(disp.CmdVideoGetFrameID, l.screen, l.id))
	if err != nil {
		return -1, &vdp.DeviceError{Op: disp.CmdVideoGetFrameID.String(), Err: err}
	}
	if id < 0 {
		return -1, &vdp.DeviceError{Op: disp.CmdVideoGetFrameID.String(), Err: fmt.Errorf("driver returned %d", id)}
	}
	return id, nil
}

// Close stops video and closes the layer. Closing a layer that is not open
// does nothing.
func (l *Layer) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.close()
}

func (l *Layer) close() error {
	if !l.opened {
		return nil
	}
	// The flag drops even if the driver complains so the next present
	// starts from a clean open.
	l.opened = false
	var stopErr error
	if l.video {
		stopErr = l.cmd(disp.CmdVideoStop)
	}
	closeErr := l.cmd(disp.CmdLayerClose)
	if stopErr != nil {
		return stopErr
	}
	return closeErr
}

// Release closes the layer and hands it back to the driver.
func (l *Layer) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.close(); err != nil {
		logger.Warnf("layer %#x: close before release: %v", l.id, err)
	}
	return l.cmd(disp.CmdLayerRelease)
}
