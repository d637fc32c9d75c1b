package cmd

import (
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/bnema/cedardisp/internal/config"
	"github.com/bnema/cedardisp/internal/disp"
	"github.com/bnema/cedardisp/internal/display"
	"github.com/bnema/cedardisp/internal/handle"
	"github.com/bnema/cedardisp/internal/interop"
	"github.com/bnema/cedardisp/internal/layer"
	"github.com/bnema/cedardisp/internal/logger"
	"github.com/bnema/cedardisp/internal/presentation"
	"github.com/bnema/cedardisp/internal/surface"
	"github.com/bnema/cedardisp/internal/ui"
	"github.com/bnema/cedardisp/internal/vdp"
	"github.com/spf13/cobra"
)

var presentCmd = &cobra.Command{
	Use:   "present",
	Short: "Show a test pattern on the video overlay",
	Long: `Run the full presentation pipeline on a synthetic NV12 test pattern.

By default the surface goes through the interop path: register, map,
configure a scaler layer, present, then unmap and unregister. With --queue
it is shown through a presentation queue and the configured display
backend instead. --dry-run answers every request from a simulated driver
and prints the ioctl trace.`,
	RunE: runPresent,
}

type presentOptions struct {
	width, height int
	crop, dst     image.Rectangle
	layer         uint32
	cs            disp.CSMode
	frameID       int32
	drawable      uint32
	queue         bool
	hold          time.Duration
}

func init() {
	rootCmd.AddCommand(presentCmd)

	f := presentCmd.Flags()
	f.Bool("dry-run", false, "Answer requests from a simulated driver and print them")
	f.Int("width", 320, "Test pattern width")
	f.Int("height", 240, "Test pattern height")
	f.String("crop", "", "Source rectangle x,y,w,h (default whole picture)")
	f.String("dst", "", "Screen rectangle x,y,w,h (default picture size at 0,0)")
	f.Uint32("layer", 0, "Use this existing scaler layer instead of requesting one")
	f.String("cs", "bt709", "Colour space (bt601, bt709, ycc, xvycc)")
	f.Int32("frame-id", 0, "Frame id tagged on the presented picture")
	f.Uint32("drawable", 0, "X11 drawable the queue target is bound to")
	f.Bool("queue", false, "Present through a presentation queue")
	f.Duration("hold", 0, "Keep the picture on screen this long before tearing down")
}

func presentFlags(cmd *cobra.Command) (presentOptions, error) {
	f := cmd.Flags()
	var o presentOptions
	var err error

	o.width, _ = f.GetInt("width")
	o.height, _ = f.GetInt("height")
	o.layer, _ = f.GetUint32("layer")
	o.frameID, _ = f.GetInt32("frame-id")
	o.drawable, _ = f.GetUint32("drawable")
	o.queue, _ = f.GetBool("queue")
	o.hold, _ = f.GetDuration("hold")

	crop, _ := f.GetString("crop")
	if o.crop, err = parseRect(crop); err != nil {
		return o, err
	}
	dst, _ := f.GetString("dst")
	if o.dst, err = parseRect(dst); err != nil {
		return o, err
	}
	if o.dst.Empty() {
		o.dst = image.Rect(0, 0, o.width, o.height)
	}
	cs, _ := f.GetString("cs")
	if o.cs, err = parseColorSpace(cs); err != nil {
		return o, err
	}
	return o, nil
}

func runPresent(cmd *cobra.Command, args []string) error {
	opts, err := presentFlags(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	cfg := config.Get()
	s := newSession(cfg, dryRun)
	out := cmd.OutOrStdout()

	pool, err := s.allocator()
	if err != nil {
		return err
	}
	vs, err := testPattern(pool, opts.width, opts.height)
	if err != nil {
		return err
	}
	defer freePattern(pool, vs)

	reg := handle.NewRegistry(cfg.Registry.Capacity)
	if opts.queue {
		fmt.Fprintln(out, ui.FormatHeader("Presentation queue"))
		err = presentQueue(out, s, reg, vs, opts)
	} else {
		fmt.Fprintln(out, ui.FormatHeader("Interop"))
		err = presentInterop(out, s, reg, vs, opts)
	}

	s.trace(out)
	if st := reg.Stats(); st.Live != 0 {
		logger.Warnf("present: %d handles still live", st.Live)
	}
	return err
}

// step prints the outcome of one pipeline stage and passes err through.
func step(out io.Writer, name string, err error) error {
	if err != nil {
		fmt.Fprintln(out, ui.FormatStep(false, name, fmt.Sprintf("%v (%s)", err, vdp.StatusOf(err))))
		return fmt.Errorf("%s: %w", name, err)
	}
	fmt.Fprintln(out, ui.FormatStep(true, name, ""))
	return nil
}

func presentInterop(out io.Writer, s *session, reg *handle.Registry, vs *surface.Video, opts presentOptions) (err error) {
	cfg := s.cfg
	tr := &layer.Translator{Allocator: s.pool, PhysOffset: cfg.Display.PhysOffset}
	x := interop.New(reg, tr)

	vh, err := reg.Create(vs, handle.TypeVideoSurface)
	if err := step(out, "create surface", err); err != nil {
		return err
	}

	// Unregistering destroys vh along with its display surface
	dh, err := x.RegisterVideoSurface(vh)
	if err := step(out, "register", err); err != nil {
		return errors.Join(err, reg.Destroy(vh))
	}
	defer func() {
		err = errors.Join(err, step(out, "unregister", x.UnregisterSurface(dh)))
	}()

	batch := []handle.Handle{dh}
	if err := step(out, "map", x.MapSurfaces(batch)); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, step(out, "unmap", x.UnmapSurfaces(batch)))
	}()

	t, err := s.dial(cfg.Display.DispDevice)
	if err := step(out, "open "+cfg.Display.DispDevice, err); err != nil {
		return err
	}
	defer t.Close()

	var lyr *layer.Layer
	if opts.layer != 0 {
		lyr = layer.New(t, 0, disp.LayerID(opts.layer))
	} else {
		lyr, err = layer.Request(t, 0, disp.WorkModeScaler)
		if err := step(out, "request layer", err); err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, step(out, "release layer", lyr.Release()))
		}()
	}
	lyr.BestEffort = cfg.Display.BestEffort

	if err := step(out, "configure", x.Configure(dh, lyr, opts.crop, opts.dst, opts.cs)); err != nil {
		return err
	}
	if err := step(out, "present", x.Present(dh, lyr, opts.frameID, false, false)); err != nil {
		return err
	}

	if fc, err := x.GetVideoFrameConfig(dh); err == nil {
		fmt.Fprintln(out, ui.FormatKV("Surface", fmt.Sprintf("%s %dx%d", fc.Format, fc.Width, fc.Height)))
		fmt.Fprintln(out, ui.FormatHex("Luma", fc.AddrY))
		fmt.Fprintln(out, ui.FormatHex("Chroma", fc.AddrU))
	}
	if id, err := x.GetFrameID(lyr); err == nil {
		fmt.Fprintln(out, ui.FormatKV("Scanned frame", id))
	}

	if opts.hold > 0 {
		time.Sleep(opts.hold)
	}
	return step(out, "close layer", x.CloseVideoLayer(lyr))
}

func presentQueue(out io.Writer, s *session, reg *handle.Registry, vs *surface.Video, opts presentOptions) (err error) {
	cfg := s.cfg
	dcfg, err := s.displayConfig()
	if err != nil {
		return err
	}
	open := func(dev *vdp.Device, drawable uint32) (display.Backend, error) {
		c := dcfg
		c.OSD = dev.OSDEnabled
		return display.Open(c, drawable)
	}

	var loc display.Locator
	if s.dryRun {
		loc = display.NullLocator()
	} else {
		loc = display.NewLocator(cfg.X11.Display)
	}
	svc := presentation.NewService(reg, open, loc)
	defer svc.Close()

	dev, err := svc.DeviceCreate(&vdp.Device{DisplayName: cfg.X11.Display, OSDEnabled: cfg.Display.OSD})
	if err := step(out, "create device", err); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, step(out, "destroy device", svc.DeviceDestroy(dev)))
	}()

	th, err := svc.TargetCreate(dev, opts.drawable)
	if err := step(out, "create target", err); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, step(out, "destroy target", svc.TargetDestroy(th)))
	}()

	qh, err := svc.Create(dev, th)
	if err := step(out, "create queue", err); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, step(out, "destroy queue", svc.Destroy(qh)))
	}()

	src := opts.crop
	if src.Empty() {
		src = vs.Bounds()
	}
	surf := &surface.Output{
		Video:    vs,
		VideoSrc: src,
		VideoDst: opts.dst,
		Width:    opts.dst.Dx(),
		Height:   opts.dst.Dy(),
		Enhance:  surface.DefaultEnhancement(),
	}
	sh, err := reg.Create(surf, handle.TypeOutputSurface)
	if err := step(out, "create surface", err); err != nil {
		return err
	}
	defer func() {
		if derr := reg.Destroy(sh); derr != nil {
			err = errors.Join(err, derr)
		}
	}()

	if err := step(out, "display", svc.Display(qh, sh, 0, 0, 0)); err != nil {
		return err
	}
	if st, at, err := svc.QuerySurfaceStatus(qh, sh); err == nil {
		fmt.Fprintln(out, ui.FormatKV("Status", fmt.Sprintf("%s at %d", st, at)))
	}

	if opts.hold > 0 {
		time.Sleep(opts.hold)
	}
	return nil
}
