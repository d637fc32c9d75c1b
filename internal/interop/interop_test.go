package interop

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/cedardisp/internal/cedarv"
	"github.com/bnema/cedardisp/internal/disp"
	"github.com/bnema/cedardisp/internal/handle"
	"github.com/bnema/cedardisp/internal/layer"
	"github.com/bnema/cedardisp/internal/surface"
	"github.com/bnema/cedardisp/internal/vdp"
)

type fixture struct {
	reg  *handle.Registry
	pool *cedarv.Pool
	x    *Interop
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := handle.NewRegistry(64)
	pool := cedarv.NewPool(0x20000000, make([]byte, 1<<20), 1024)
	return &fixture{reg: reg, pool: pool, x: New(reg, layer.NewTranslator(pool))}
}

func (f *fixture) video(t *testing.T, format surface.SourceFormat, chroma surface.ChromaType) handle.Handle {
	t.Helper()
	y, err := f.pool.Alloc(64 * 32)
	require.NoError(t, err)
	u, err := f.pool.Alloc(64 * 16)
	require.NoError(t, err)
	vs := &surface.Video{Format: format, Chroma: chroma, Width: 64, Height: 32, DataY: y, DataU: u}
	h, err := f.reg.Create(vs, handle.TypeVideoSurface)
	require.NoError(t, err)
	return h
}

func (f *fixture) output(t *testing.T, withVideo bool) handle.Handle {
	t.Helper()
	out := &surface.Output{Width: 64, Height: 32}
	if withVideo {
		y, err := f.pool.Alloc(64 * 32)
		require.NoError(t, err)
		u, err := f.pool.Alloc(64 * 16)
		require.NoError(t, err)
		out.Video = &surface.Video{Format: surface.FormatNV12, Width: 64, Height: 32, DataY: y, DataU: u}
	}
	h, err := f.reg.Create(out, handle.TypeOutputSurface)
	require.NoError(t, err)
	return h
}

func (f *fixture) state(t *testing.T, h handle.Handle) surface.State {
	t.Helper()
	typ, err := f.reg.Type(h)
	require.NoError(t, err)
	obj, err := f.reg.Get(h, typ)
	require.NoError(t, err)
	defer f.reg.Release(h)
	return *stateOf(obj)
}

func (f *fixture) wrapperState(t *testing.T, dh handle.Handle) surface.State {
	t.Helper()
	ds, err := handle.Get[displaySurface](f.reg, dh, handle.TypeDisplaySurface)
	require.NoError(t, err)
	defer f.reg.Release(dh)
	return ds.state
}

func TestRegister(t *testing.T) {
	t.Run("video", func(t *testing.T) {
		f := newFixture(t)
		vh := f.video(t, surface.FormatNV12, surface.Chroma420)

		dh, err := f.x.RegisterVideoSurface(vh)
		require.NoError(t, err)
		assert.True(t, f.x.IsSurface(dh))
		assert.Equal(t, surface.StateRegistered, f.state(t, vh))
		assert.Equal(t, surface.StateRegistered, f.wrapperState(t, dh))
		assert.Equal(t, 1, f.reg.Refs(vh), "wrapper keeps one reference")
	})

	t.Run("twice", func(t *testing.T) {
		f := newFixture(t)
		vh := f.video(t, surface.FormatNV12, surface.Chroma420)
		_, err := f.x.RegisterVideoSurface(vh)
		require.NoError(t, err)

		_, err = f.x.RegisterVideoSurface(vh)
		assert.ErrorIs(t, err, vdp.ErrInvalidState)
		assert.Equal(t, vdp.StatusError, vdp.StatusOf(err))
		assert.Equal(t, 1, f.reg.Refs(vh))
	})

	t.Run("wrong chroma", func(t *testing.T) {
		f := newFixture(t)
		vh := f.video(t, surface.FormatYUYV, surface.Chroma422)
		_, err := f.x.RegisterVideoSurface(vh)
		assert.ErrorIs(t, err, vdp.ErrInvalidValue)
		assert.Zero(t, f.reg.Refs(vh))
	})

	t.Run("wrong type", func(t *testing.T) {
		f := newFixture(t)
		oh := f.output(t, false)
		_, err := f.x.RegisterVideoSurface(oh)
		assert.ErrorIs(t, err, vdp.ErrInvalidHandle)

		_, err = f.x.RegisterOutputSurface(0)
		assert.ErrorIs(t, err, vdp.ErrInvalidHandle)
	})

	t.Run("exhausted", func(t *testing.T) {
		reg := handle.NewRegistry(1)
		pool := cedarv.NewPool(0, make([]byte, 4096), 1)
		x := New(reg, layer.NewTranslator(pool))
		vh, err := reg.Create(&surface.Video{Chroma: surface.Chroma420}, handle.TypeVideoSurface)
		require.NoError(t, err)

		_, err = x.RegisterVideoSurface(vh)
		assert.ErrorIs(t, err, vdp.ErrResources)
		assert.Equal(t, vdp.StatusResources, vdp.StatusOf(err))
		assert.Zero(t, reg.Refs(vh))
	})
}

func TestUnregisterRoundTrip(t *testing.T) {
	f := newFixture(t)
	vh := f.video(t, surface.FormatNV12, surface.Chroma420)
	dh, err := f.x.RegisterVideoSurface(vh)
	require.NoError(t, err)
	require.NoError(t, f.x.MapSurfaces([]handle.Handle{dh}))

	require.NoError(t, f.x.UnregisterSurface(dh))
	assert.False(t, f.x.IsSurface(dh))
	_, err = f.reg.Type(vh)
	assert.ErrorIs(t, err, handle.ErrNotFound, "wrapped surface handle is destroyed")

	err = f.x.UnregisterSurface(dh)
	assert.ErrorIs(t, err, vdp.ErrInvalidHandle)

	st := f.reg.Stats()
	assert.Equal(t, st.Acquired, st.Released)
	assert.Zero(t, st.Live)
}

func TestUnregisterWhileReferenced(t *testing.T) {
	f := newFixture(t)
	vh := f.video(t, surface.FormatNV12, surface.Chroma420)
	dh, err := f.x.RegisterVideoSurface(vh)
	require.NoError(t, err)
	require.NoError(t, f.x.MapSurfaces([]handle.Handle{dh}))

	_, err = f.reg.Get(dh, handle.TypeDisplaySurface)
	require.NoError(t, err)

	err = f.x.UnregisterSurface(dh)
	assert.ErrorIs(t, err, vdp.ErrInvalidState)
	assert.True(t, f.x.IsSurface(dh))
	assert.Equal(t, surface.StateMapped, f.wrapperState(t, dh))
	assert.Equal(t, surface.StateMapped, f.state(t, vh))
	assert.Equal(t, 1, f.reg.Refs(dh))

	f.reg.Release(dh)
	require.NoError(t, f.x.UnregisterSurface(dh))
	assert.False(t, f.x.IsSurface(dh))
}

func TestUnregisterStaleHandleAfterSlotReuse(t *testing.T) {
	f := newFixture(t)
	stale, err := f.x.RegisterVideoSurface(f.video(t, surface.FormatNV12, surface.Chroma420))
	require.NoError(t, err)
	require.NoError(t, f.x.UnregisterSurface(stale))

	vs := &surface.Video{Format: surface.FormatNV12, Chroma: surface.Chroma420, Width: 64, Height: 32}
	var live handle.Handle
	for i := 0; i < 4097; i++ {
		vh, err := f.reg.Create(vs, handle.TypeVideoSurface)
		require.NoError(t, err)
		live, err = f.x.RegisterVideoSurface(vh)
		require.NoError(t, err)
		require.NotEqual(t, stale, live, "cycle %d", i)
		if i < 4096 {
			require.NoError(t, f.x.UnregisterSurface(live))
		}
	}

	assert.ErrorIs(t, f.x.UnregisterSurface(stale), vdp.ErrInvalidHandle)
	assert.True(t, f.x.IsSurface(live))
}

func TestMapUnmap(t *testing.T) {
	f := newFixture(t)
	var batch []handle.Handle
	var surfaces []handle.Handle
	for i := 0; i < 3; i++ {
		vh := f.video(t, surface.FormatNV12, surface.Chroma420)
		dh, err := f.x.RegisterVideoSurface(vh)
		require.NoError(t, err)
		batch = append(batch, dh)
		surfaces = append(surfaces, vh)
	}

	require.NoError(t, f.x.MapSurfaces(batch))
	for i := range batch {
		assert.Equal(t, surface.StateMapped, f.wrapperState(t, batch[i]))
		assert.Equal(t, surface.StateMapped, f.state(t, surfaces[i]))
	}

	// mapping again fails per element
	err := f.x.MapSurfaces(batch[:1])
	assert.ErrorIs(t, err, vdp.ErrInvalidState)

	require.NoError(t, f.x.UnmapSurfaces(batch))
	for i := range batch {
		assert.Equal(t, surface.StateRegistered, f.wrapperState(t, batch[i]))
		assert.Equal(t, surface.StateRegistered, f.state(t, surfaces[i]))
	}

	err = f.x.UnmapSurfaces(batch)
	assert.ErrorIs(t, err, vdp.ErrInvalidState)
}

func TestMapPartialFailure(t *testing.T) {
	f := newFixture(t)
	a, err := f.x.RegisterVideoSurface(f.video(t, surface.FormatNV12, surface.Chroma420))
	require.NoError(t, err)
	b, err := f.x.RegisterVideoSurface(f.video(t, surface.FormatNV12, surface.Chroma420))
	require.NoError(t, err)
	require.NoError(t, f.x.MapSurfaces([]handle.Handle{a}))

	err = f.x.MapSurfaces([]handle.Handle{a, b})
	assert.ErrorIs(t, err, vdp.ErrInvalidState)
	assert.Equal(t, surface.StateMapped, f.wrapperState(t, b))
}

func TestMapRejectsBadBatches(t *testing.T) {
	f := newFixture(t)
	v, err := f.x.RegisterVideoSurface(f.video(t, surface.FormatNV12, surface.Chroma420))
	require.NoError(t, err)
	o, err := f.x.RegisterOutputSurface(f.output(t, true))
	require.NoError(t, err)

	err = f.x.MapSurfaces(nil)
	assert.ErrorIs(t, err, vdp.ErrInvalidValue)

	err = f.x.MapSurfaces([]handle.Handle{v, o})
	assert.ErrorIs(t, err, vdp.ErrInvalidValue)
	assert.Equal(t, surface.StateRegistered, f.wrapperState(t, v), "mixed batch changes nothing")

	err = f.x.MapSurfaces([]handle.Handle{v, 0})
	assert.ErrorIs(t, err, vdp.ErrInvalidHandle)
	assert.Equal(t, surface.StateRegistered, f.wrapperState(t, v))

	st := f.reg.Stats()
	assert.Equal(t, st.Acquired-st.Released, f.reg.Refs(v)+2, "only registration references remain")
}

func TestUnmapOutputSurfaces(t *testing.T) {
	f := newFixture(t)
	oh := f.output(t, false)
	dh, err := f.x.RegisterOutputSurface(oh)
	require.NoError(t, err)
	require.NoError(t, f.x.MapSurfaces([]handle.Handle{dh}))

	require.NoError(t, f.x.UnmapSurfaces([]handle.Handle{dh}))
	assert.Equal(t, surface.StateRegistered, f.state(t, oh))
}

func TestStubs(t *testing.T) {
	f := newFixture(t)
	dh, err := f.x.RegisterVideoSurface(f.video(t, surface.FormatNV12, surface.Chroma420))
	require.NoError(t, err)

	assert.NoError(t, f.x.GetSurfaceAttributes(dh))
	assert.NoError(t, f.x.SetSurfaceAccess(dh, 1))
	assert.ErrorIs(t, f.x.GetSurfaceAttributes(0), vdp.ErrInvalidHandle)
	assert.ErrorIs(t, f.x.SetSurfaceAccess(0, 1), vdp.ErrInvalidHandle)
	assert.False(t, f.x.IsSurface(0))
}

func TestConfigurePresent(t *testing.T) {
	f := newFixture(t)
	dh, err := f.x.RegisterVideoSurface(f.video(t, surface.FormatYV12, surface.Chroma420))
	require.NoError(t, err)

	rec := disp.NewRecorder()
	lyr := layer.New(rec, 0, 0x65)

	t.Run("requires mapped", func(t *testing.T) {
		err := f.x.Configure(dh, lyr, image.Rectangle{}, image.Rect(0, 0, 64, 32), disp.CSModeBT709)
		assert.ErrorIs(t, err, vdp.ErrInvalidState)
		err = f.x.Present(dh, lyr, 0, false, false)
		assert.ErrorIs(t, err, vdp.ErrInvalidState)
		assert.Empty(t, rec.Cmds())
	})

	require.NoError(t, f.x.MapSurfaces([]handle.Handle{dh}))

	t.Run("configure opens once", func(t *testing.T) {
		dst := image.Rect(0, -10, 64, 22)
		require.NoError(t, f.x.Configure(dh, lyr, image.Rectangle{}, dst, disp.CSModeBT709))
		require.NoError(t, f.x.Configure(dh, lyr, image.Rectangle{}, dst, disp.CSModeBT709))
		assert.Equal(t, 2, rec.Count(disp.CmdLayerSetPara))
		assert.Equal(t, 1, rec.Count(disp.CmdLayerOpen))
		assert.Equal(t, 1, rec.Count(disp.CmdVideoStart))

		call, _ := rec.Last(disp.CmdLayerSetPara)
		info := call.Payload.(disp.LayerInfo)
		assert.Equal(t, disp.ModeNonMBPlanar, info.FB.Mode)
		assert.Equal(t, disp.Rect{Y: 10, Width: 64, Height: 22}, info.SrcWin)
		assert.Equal(t, disp.Rect{Width: 64, Height: 22}, info.ScnWin)
	})

	t.Run("present", func(t *testing.T) {
		require.NoError(t, f.x.Present(dh, lyr, 5, false, false))
		call, ok := rec.Last(disp.CmdVideoSetFB)
		require.True(t, ok)
		fb := call.Payload.(disp.VideoFB)
		assert.Equal(t, int32(5), fb.ID)
		assert.Equal(t, uint32(0x20000000)+layer.DefaultPhysOffset, fb.Addr[0])
	})

	t.Run("device error keeps references balanced", func(t *testing.T) {
		rec.Fail[disp.CmdLayerSetPara] = assert.AnError
		before := f.reg.Stats()
		err := f.x.Configure(dh, lyr, image.Rectangle{}, image.Rect(0, 0, 64, 32), disp.CSModeBT709)
		assert.ErrorIs(t, err, vdp.ErrDevice)
		after := f.reg.Stats()
		assert.Equal(t, after.Acquired-before.Acquired, after.Released-before.Released)
		delete(rec.Fail, disp.CmdLayerSetPara)
	})

	t.Run("close and frame id", func(t *testing.T) {
		rec.FrameID = 9
		id, err := f.x.GetFrameID(lyr)
		require.NoError(t, err)
		assert.Equal(t, 9, id)

		require.NoError(t, f.x.CloseVideoLayer(lyr))
		require.NoError(t, f.x.CloseVideoLayer(lyr))
		assert.Equal(t, 1, rec.Count(disp.CmdVideoStop))
	})
}

func TestGetVideoFrameConfig(t *testing.T) {
	f := newFixture(t)
	vh := f.video(t, surface.FormatNV12, surface.Chroma420)
	dh, err := f.x.RegisterVideoSurface(vh)
	require.NoError(t, err)

	before := f.reg.Stats()
	fc, err := f.x.GetVideoFrameConfig(dh)
	require.NoError(t, err)
	assert.Equal(t, surface.FormatNV12, fc.Format)
	assert.Equal(t, uint32(0x20000000), fc.AddrY)
	assert.NotZero(t, fc.AddrU)
	assert.Zero(t, fc.AddrV)
	assert.Equal(t, 64, fc.Width)
	assert.Equal(t, 32, fc.Height)
	after := f.reg.Stats()
	assert.Equal(t, after.Acquired-before.Acquired, after.Released-before.Released)

	before = f.reg.Stats()
	_, err = f.x.GetVideoFrameConfig(handle.Handle(0xdead))
	assert.ErrorIs(t, err, vdp.ErrInvalidHandle)
	assert.Equal(t, vdp.StatusInvalidHandle, vdp.StatusOf(err))
	assert.Equal(t, before, f.reg.Stats())
}
