package cmd

import (
	"fmt"
	"image"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/bnema/cedardisp/internal/cedarv"
	"github.com/bnema/cedardisp/internal/config"
	"github.com/bnema/cedardisp/internal/disp"
	"github.com/bnema/cedardisp/internal/display"
	"github.com/bnema/cedardisp/internal/surface"
	"github.com/bnema/cedardisp/internal/ui"
)

// session holds what a command needs to reach the display engine. In a dry
// run every device node is answered by a recorder and the calls are printed
// afterwards.
type session struct {
	cfg       *config.Config
	dryRun    bool
	recorders map[string]*disp.Recorder
	pool      *cedarv.Pool
}

func newSession(cfg *config.Config, dryRun bool) *session {
	return &session{
		cfg:       cfg,
		dryRun:    dryRun,
		recorders: make(map[string]*disp.Recorder),
	}
}

func (s *session) dial(path string) (disp.Transport, error) {
	if !s.dryRun {
		return display.DialDevice(path)
	}
	r, ok := s.recorders[path]
	if !ok {
		r = disp.NewRecorder()
		s.recorders[path] = r
	}
	return r, nil
}

// allocator returns the pool test surfaces are carved from. Its memory is
// ordinary process memory placed at pool.base so the addresses handed to
// the engine are the configured ones.
func (s *session) allocator() (*cedarv.Pool, error) {
	if s.pool != nil {
		return s.pool, nil
	}
	if s.cfg.Pool.Size <= 0 {
		return nil, fmt.Errorf("pool.size must be positive, got %d", s.cfg.Pool.Size)
	}
	s.pool = cedarv.NewPool(s.cfg.Pool.Base, make([]byte, s.cfg.Pool.Size), 4096)
	return s.pool, nil
}

func (s *session) displayConfig() (display.Config, error) {
	pool, err := s.allocator()
	if err != nil {
		return display.Config{}, err
	}
	d := s.cfg.Display
	return display.Config{
		Backend:    d.Backend,
		DispDevice: d.DispDevice,
		FBDevice:   d.FBDevice,
		G2DDevice:  d.G2DDevice,
		OSD:        d.OSD,
		PhysOffset: d.PhysOffset,
		BestEffort: d.BestEffort,
		ColorKey:   d.ColorKey,
		X11Display: s.cfg.X11.Display,
		Allocator:  pool,
		Dial:       s.dial,
	}, nil
}

// trace prints the recorded calls of every device node in path order.
func (s *session) trace(w io.Writer) {
	if !s.dryRun {
		return
	}
	paths := make([]string, 0, len(s.recorders))
	for p := range s.recorders {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		fmt.Fprintln(w, ui.FormatSection(p))
		for i, c := range s.recorders[p].Calls() {
			fmt.Fprintln(w, ui.FormatTrace(i, c.String()))
		}
	}
}

// testPattern allocates an NV12 picture with a luma ramp and colour bars in
// the chroma plane.
func testPattern(pool *cedarv.Pool, width, height int) (*surface.Video, error) {
	if width <= 0 || height <= 0 || width%2 != 0 || height%2 != 0 {
		return nil, fmt.Errorf("test pattern size %dx%d must be positive and even", width, height)
	}

	y, err := pool.Alloc(width * height)
	if err != nil {
		return nil, fmt.Errorf("allocating luma plane: %w", err)
	}
	uv, err := pool.Alloc(width * height / 2)
	if err != nil {
		_ = pool.Free(y)
		return nil, fmt.Errorf("allocating chroma plane: %w", err)
	}

	luma := pool.Bytes(y)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			luma[row*width+col] = byte(16 + col*219/width)
		}
	}

	bars := [][2]byte{{128, 128}, {44, 142}, {156, 44}, {72, 58}, {184, 198}, {100, 212}, {212, 114}, {128, 128}}
	chroma := pool.Bytes(uv)
	for row := 0; row < height/2; row++ {
		for col := 0; col < width/2; col++ {
			bar := bars[col*len(bars)/(width/2)]
			chroma[row*width+col*2] = bar[0]
			chroma[row*width+col*2+1] = bar[1]
		}
	}

	return &surface.Video{
		Format:  surface.FormatNV12,
		Chroma:  surface.Chroma420,
		Width:   width,
		Height:  height,
		DataY:   y,
		DataU:   uv,
		Enhance: surface.DefaultEnhancement(),
	}, nil
}

func freePattern(pool *cedarv.Pool, vs *surface.Video) {
	for _, b := range []*cedarv.Buffer{vs.DataY, vs.DataU, vs.DataV} {
		if b != nil {
			_ = pool.Free(b)
		}
	}
}

// parseRect reads "x,y,w,h". An empty string is the empty rectangle.
func parseRect(s string) (image.Rectangle, error) {
	if s == "" {
		return image.Rectangle{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("rectangle %q: want x,y,w,h", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("rectangle %q: %w", s, err)
		}
		v[i] = n
	}
	if v[2] < 0 || v[3] < 0 {
		return image.Rectangle{}, fmt.Errorf("rectangle %q: negative size", s)
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

var colorSpaces = map[string]disp.CSMode{
	"bt601": disp.CSModeBT601,
	"bt709": disp.CSModeBT709,
	"ycc":   disp.CSModeYCC,
	"xvycc": disp.CSModeXVYCC,
}

func parseColorSpace(name string) (disp.CSMode, error) {
	cs, ok := colorSpaces[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown colour space %q (bt601, bt709, ycc, xvycc)", name)
	}
	return cs, nil
}
