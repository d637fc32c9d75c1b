// Package display puts output surfaces on screen. A Backend owns the
// hardware or window system resources of one presentation target.
package display

import (
	"fmt"
	"strings"

	"github.com/bnema/cedardisp/internal/cedarv"
	"github.com/bnema/cedardisp/internal/disp"
	"github.com/bnema/cedardisp/internal/logger"
	"github.com/bnema/cedardisp/internal/surface"
)

// Backend shows the video and OSD content of output surfaces.
type Backend interface {
	Close() error
	// SetVideoLayer shows out's video at window offset (x, y) clipped to
	// width x height.
	SetVideoLayer(x, y, width, height int, out *surface.Output) error
	CloseVideoLayer() error
	SetOSDLayer(x, y, width, height int, out *surface.Output) error
	CloseOSDLayer() error
}

// Locator finds where a drawable sits on the screen.
type Locator interface {
	Origin(drawable uint32) (x, y int, err error)
	Close() error
}

// Backend names accepted in Config.Backend
const (
	BackendAuto  = "auto"
	BackendDisp0 = "disp0"
	BackendX11   = "x11"
)

// DialFunc opens a device node as a transport.
type DialFunc func(path string) (disp.Transport, error)

// DialDevice opens the real device node.
func DialDevice(path string) (disp.Transport, error) {
	return disp.Open(path)
}

// Config selects and parameterizes a backend.
type Config struct {
	Backend    string
	DispDevice string
	FBDevice   string
	G2DDevice  string
	// OSD enables the RGBA overlay layer when the G2D device is present.
	OSD        bool
	PhysOffset uint32
	BestEffort bool
	// ColorKey is the 0xRRGGBB value the overlay is keyed against.
	ColorKey   uint32
	X11Display string

	Allocator cedarv.Allocator
	// Dial opens device nodes, DialDevice when nil.
	Dial DialFunc
}

func (c *Config) dial(path string) (disp.Transport, error) {
	if c.Dial != nil {
		return c.Dial(path)
	}
	return DialDevice(path)
}

type opener struct {
	name string
	open func(cfg *Config, drawable uint32) (Backend, error)
}

var openers = map[string]opener{
	BackendDisp0: {BackendDisp0, openDisp0},
	BackendX11:   {BackendX11, openX11},
}

func order(name string) ([]opener, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendAuto:
		return []opener{openers[BackendDisp0], openers[BackendX11]}, nil
	case BackendDisp0:
		return []opener{openers[BackendDisp0]}, nil
	case BackendX11:
		return []opener{openers[BackendX11]}, nil
	default:
		return nil, fmt.Errorf("unknown display backend %q", name)
	}
}

// Open returns the first backend that can be opened for drawable.
func Open(cfg Config, drawable uint32) (Backend, error) {
	candidates, err := order(cfg.Backend)
	if err != nil {
		return nil, err
	}

	var errs []string
	for _, o := range candidates {
		logger.Debugf("display.Open: trying backend %s", o.name)
		b, err := o.open(&cfg, drawable)
		if err == nil {
			logger.Debugf("display.Open: using backend %s", o.name)
			return b, nil
		}
		logger.Debugf("display.Open: backend %s failed: %v", o.name, err)
		errs = append(errs, fmt.Sprintf("%s: %v", o.name, err))
	}
	return nil, fmt.Errorf("no display backend available (%s)", strings.Join(errs, "; "))
}
