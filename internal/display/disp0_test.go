package display

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/cedardisp/internal/cedarv"
	"github.com/bnema/cedardisp/internal/disp"
	"github.com/bnema/cedardisp/internal/layer"
	"github.com/bnema/cedardisp/internal/surface"
)

type devices struct {
	disp *disp.Recorder
	fb   *disp.Recorder
	g2d  *disp.Recorder
}

func testConfig(pool *cedarv.Pool, osd bool) (Config, *devices) {
	devs := &devices{disp: disp.NewRecorder(), fb: disp.NewRecorder(), g2d: disp.NewRecorder()}
	cfg := Config{
		Backend:    BackendDisp0,
		DispDevice: "/dev/disp",
		FBDevice:   "/dev/fb0",
		G2DDevice:  "/dev/g2d",
		OSD:        osd,
		PhysOffset: layer.DefaultPhysOffset,
		ColorKey:   0x000102,
		Allocator:  pool,
		Dial: func(path string) (disp.Transport, error) {
			switch path {
			case "/dev/disp":
				return devs.disp, nil
			case "/dev/fb0":
				return devs.fb, nil
			case "/dev/g2d":
				return devs.g2d, nil
			}
			return nil, errors.New("no such device")
		},
	}
	return cfg, devs
}

func testOutput(t *testing.T, pool *cedarv.Pool) *surface.Output {
	t.Helper()
	y, err := pool.Alloc(64 * 32)
	require.NoError(t, err)
	u, err := pool.Alloc(64 * 16)
	require.NoError(t, err)
	rgba, err := pool.Alloc(64 * 32 * 4)
	require.NoError(t, err)
	return &surface.Output{
		Video:    &surface.Video{Format: surface.FormatNV12, Chroma: surface.Chroma420, Width: 64, Height: 32, DataY: y, DataU: u},
		VideoDst: image.Rect(0, 0, 64, 32),
		RGBA:     rgba,
		Width:    64,
		Height:   32,
		Enhance:  surface.DefaultEnhancement(),
	}
}

func TestDisp0Open(t *testing.T) {
	pool := cedarv.NewPool(0x10000000, make([]byte, 1<<20), 1024)
	cfg, devs := testConfig(pool, false)

	b, err := Open(cfg, 0)
	require.NoError(t, err)
	d0 := b.(*disp0Backend)

	assert.Equal(t, disp.LayerID(0x64), d0.fbLayer)
	assert.Equal(t, disp.LayerID(0x65), d0.video.ID())
	w, h := d0.ScreenSize()
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)

	assert.Equal(t, []disp.Cmd{
		disp.CmdVersion,
		disp.CmdLayerRelease, disp.CmdLayerRelease, disp.CmdLayerRelease,
		disp.CmdLayerRequest,
		disp.CmdSetColorKey,
		disp.CmdScnGetWidth,
		disp.CmdScnGetHeight,
		disp.CmdLayerGetPara,
		disp.CmdLayerSetPara,
		disp.CmdSetBkColor,
		disp.CmdLayerTop,
		disp.CmdLayerCkOff,
		disp.CmdLayerSetAlphaValue,
		disp.CmdLayerAlphaOn,
	}, devs.disp.Cmds())
	assert.Equal(t, []disp.Cmd{disp.FBIOGetLayerHdl0}, devs.fb.Cmds())

	call, _ := devs.disp.Last(disp.CmdSetColorKey)
	ck := call.Payload.(disp.ColorKey)
	assert.Equal(t, disp.Color{Alpha: 0xff, Red: 0, Green: 1, Blue: 2}, ck.Min)
	assert.Equal(t, uint32(2), ck.RedMatchRule)

	call, _ = devs.disp.Last(disp.CmdLayerSetPara)
	assert.Equal(t, uintptr(0x64), call.Args[1])
	assert.Equal(t, uint16(0xff), call.Payload.(disp.LayerInfo).AlphaVal)

	require.NoError(t, b.Close())
	assert.Equal(t, 1, devs.disp.Count(disp.CmdLayerRelease)-3)
}

func TestDisp0OpenFailures(t *testing.T) {
	pool := cedarv.NewPool(0, make([]byte, 4096), 1)

	t.Run("version", func(t *testing.T) {
		cfg, devs := testConfig(pool, false)
		devs.disp.Fail[disp.CmdVersion] = errors.New("ENOTTY")
		_, err := openDisp0(&cfg, 0)
		assert.Error(t, err)
	})

	t.Run("no layer", func(t *testing.T) {
		cfg, devs := testConfig(pool, false)
		devs.disp.NextLayer = 0
		_, err := openDisp0(&cfg, 0)
		assert.Error(t, err)
	})

	t.Run("missing device", func(t *testing.T) {
		cfg, _ := testConfig(pool, false)
		cfg.FBDevice = "/dev/fb9"
		_, err := openDisp0(&cfg, 0)
		assert.Error(t, err)
	})

	t.Run("no allocator", func(t *testing.T) {
		cfg, _ := testConfig(pool, false)
		cfg.Allocator = nil
		_, err := openDisp0(&cfg, 0)
		assert.Error(t, err)
	})
}

func TestDisp0SetVideoLayer(t *testing.T) {
	pool := cedarv.NewPool(0x10000000, make([]byte, 1<<20), 1024)
	cfg, devs := testConfig(pool, false)
	b, err := openDisp0(&cfg, 0)
	require.NoError(t, err)
	out := testOutput(t, pool)
	devs.disp.Reset()

	require.NoError(t, b.SetVideoLayer(100, 50, 64, 32, out))
	require.NoError(t, b.SetVideoLayer(100, 50, 64, 32, out))
	assert.Equal(t, 1, devs.disp.Count(disp.CmdLayerOpen))
	assert.Equal(t, 1, devs.disp.Count(disp.CmdVideoStart))

	call, _ := devs.disp.Last(disp.CmdLayerSetPara)
	info := call.Payload.(disp.LayerInfo)
	assert.Equal(t, disp.CSModeBT709, info.FB.CSMode)
	assert.Equal(t, disp.Rect{X: 100, Y: 50, Width: 64, Height: 32}, info.ScnWin)
	assert.Equal(t, uint32(0x10000000)+layer.DefaultPhysOffset, info.FB.Addr[0])

	require.NoError(t, b.CloseVideoLayer())
	assert.Equal(t, 1, devs.disp.Count(disp.CmdVideoStop))

	assert.Error(t, b.SetVideoLayer(0, 0, 64, 32, &surface.Output{}))
}

func TestDisp0OSD(t *testing.T) {
	pool := cedarv.NewPool(0x10000000, make([]byte, 1<<20), 1024)

	t.Run("disabled", func(t *testing.T) {
		cfg, devs := testConfig(pool, false)
		b, err := openDisp0(&cfg, 0)
		require.NoError(t, err)
		devs.disp.Reset()

		require.NoError(t, b.SetOSDLayer(0, 0, 64, 32, testOutput(t, pool)))
		require.NoError(t, b.CloseOSDLayer())
		assert.Empty(t, devs.disp.Cmds())
	})

	t.Run("enabled", func(t *testing.T) {
		cfg, devs := testConfig(pool, true)
		b, err := openDisp0(&cfg, 0)
		require.NoError(t, err)
		devs.disp.Reset()

		out := testOutput(t, pool)
		out.RGBAFormat = surface.RGBAFormatR8G8B8A8
		require.NoError(t, b.SetOSDLayer(10, 20, 64, 32, out))

		req, ok := devs.disp.Last(disp.CmdLayerRequest)
		require.True(t, ok)
		assert.Equal(t, uintptr(disp.WorkModeNormal), req.Args[1])

		call, _ := devs.disp.Last(disp.CmdLayerSetPara)
		info := call.Payload.(disp.LayerInfo)
		assert.Equal(t, disp.FormatARGB8888, info.FB.Format)
		assert.Equal(t, disp.Bool(1), info.FB.BRSwap)
		assert.Equal(t, disp.Rect{X: 10, Y: 20, Width: 64, Height: 32}, info.ScnWin)
		assert.Equal(t, 0, devs.disp.Count(disp.CmdVideoStart))

		require.NoError(t, b.CloseOSDLayer())
		assert.Equal(t, 1, devs.disp.Count(disp.CmdLayerClose))

		require.NoError(t, b.Close())
		assert.Equal(t, 2, devs.disp.Count(disp.CmdLayerRelease))
	})

	t.Run("g2d missing", func(t *testing.T) {
		cfg, devs := testConfig(pool, true)
		cfg.G2DDevice = "/dev/none"
		b, err := openDisp0(&cfg, 0)
		require.NoError(t, err)
		devs.disp.Reset()

		require.NoError(t, b.SetOSDLayer(0, 0, 64, 32, testOutput(t, pool)))
		assert.Empty(t, devs.disp.Cmds())
	})
}

func TestOpenSelection(t *testing.T) {
	_, err := Open(Config{Backend: "wayland"}, 0)
	assert.ErrorContains(t, err, "unknown display backend")

	pool := cedarv.NewPool(0, make([]byte, 4096), 1)
	cfg, _ := testConfig(pool, false)
	cfg.Backend = BackendAuto
	cfg.DispDevice = "/dev/missing"

	// disp0 cannot open and x11 has no drawable
	_, err = Open(cfg, 0)
	assert.ErrorContains(t, err, "no display backend available")
}
