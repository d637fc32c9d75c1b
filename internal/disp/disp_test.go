package disp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCmdString(t *testing.T) {
	assert.Equal(t, "LAYER_SET_PARA", CmdLayerSetPara.String())
	assert.Equal(t, "VIDEO_SET_FB", CmdVideoSetFB.String())
	assert.Equal(t, "CMD_0x1234", Cmd(0x1234).String())
}

func TestRequestHelpers(t *testing.T) {
	info := &LayerInfo{}
	req := LayerPayload(CmdLayerSetPara, 0, 0x65, info)
	assert.Equal(t, [4]uintptr{0, 0x65, 0, 0}, req.Args)
	assert.Equal(t, 2, req.PayloadArg)
	assert.Same(t, info, req.Payload)

	req = LayerValue(CmdLayerSetBright, 1, 0x66, 0x9f)
	assert.Equal(t, [4]uintptr{1, 0x66, 0x9f, 0}, req.Args)

	ck := &ColorKey{}
	req = ScreenPayload(CmdSetColorKey, 0, ck)
	assert.Equal(t, 1, req.PayloadArg)
}

func TestRecorder(t *testing.T) {
	t.Run("answers like the driver", func(t *testing.T) {
		r := NewRecorder()
		v, err := r.Do(ScreenRequest(CmdVersion, 0))
		require.NoError(t, err)
		assert.Equal(t, Version, v)

		w, _ := r.Do(ScreenRequest(CmdScnGetWidth, 0))
		h, _ := r.Do(ScreenRequest(CmdScnGetHeight, 0))
		assert.Equal(t, 1920, w)
		assert.Equal(t, 1080, h)

		id, err := r.Do(Request{Cmd: CmdLayerRequest, Args: [4]uintptr{0, uintptr(WorkModeScaler)}})
		require.NoError(t, err)
		assert.Equal(t, 0x65, id)

		var fbLayer int32
		_, err = r.Do(Request{Cmd: FBIOGetLayerHdl0, Payload: &fbLayer, Direct: true})
		require.NoError(t, err)
		assert.Equal(t, int32(0x64), fbLayer)
	})

	t.Run("get para returns last set para", func(t *testing.T) {
		r := NewRecorder()
		set := &LayerInfo{Mode: WorkModeScaler, Pipe: 1, AlphaVal: 0xff}
		_, err := r.Do(LayerPayload(CmdLayerSetPara, 0, 0x65, set))
		require.NoError(t, err)

		// mutating after the call must not change the recording
		set.Pipe = 0

		var got LayerInfo
		_, err = r.Do(LayerPayload(CmdLayerGetPara, 0, 0x65, &got))
		require.NoError(t, err)
		assert.Equal(t, uint8(1), got.Pipe)

		call, ok := r.Last(CmdLayerSetPara)
		require.True(t, ok)
		assert.Equal(t, uint8(1), call.Payload.(LayerInfo).Pipe)
	})

	t.Run("injected failure", func(t *testing.T) {
		r := NewRecorder()
		boom := errors.New("boom")
		r.Fail[CmdVideoStart] = boom

		_, err := r.Do(LayerRequest(CmdVideoStart, 0, 0x65))
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, r.Count(CmdVideoStart))
	})

	t.Run("unsupported payload", func(t *testing.T) {
		r := NewRecorder()
		_, err := r.Do(LayerPayload(CmdLayerSetPara, 0, 0x65, "nope"))
		assert.ErrorIs(t, err, ErrUnsupportedPayload)
		assert.Empty(t, r.Calls())
	})

	t.Run("closed", func(t *testing.T) {
		r := NewRecorder()
		require.NoError(t, r.Close())
		_, err := r.Do(ScreenRequest(CmdVersion, 0))
		assert.Error(t, err)
	})
}

func TestOpenMissingNode(t *testing.T) {
	_, err := Open("/nonexistent/disp")
	assert.Error(t, err)
}

func TestNewVideoFB(t *testing.T) {
	fb := NewVideoFB(7, [3]uint32{1, 2, 3}, true, false)
	assert.Equal(t, int32(7), fb.ID)
	assert.Equal(t, Bool(1), fb.Interlace)
	assert.Equal(t, Bool(0), fb.TopFieldFirst)
}
