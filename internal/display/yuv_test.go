package display

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/cedardisp/internal/cedarv"
	"github.com/bnema/cedardisp/internal/surface"
)

func fill(t *testing.T, pool *cedarv.Pool, b []byte) *cedarv.Buffer {
	t.Helper()
	buf, err := pool.Alloc(len(b))
	require.NoError(t, err)
	copy(pool.Bytes(buf), b)
	return buf
}

func TestDecodeVideo(t *testing.T) {
	pool := cedarv.NewPool(0, make([]byte, 1<<16), 1)

	t.Run("NV12", func(t *testing.T) {
		vs := &surface.Video{
			Format: surface.FormatNV12, Width: 4, Height: 2,
			DataY: fill(t, pool, []byte{1, 2, 3, 4, 5, 6, 7, 8}),
			DataU: fill(t, pool, []byte{10, 20, 30, 40}),
		}
		img, err := decodeVideo(pool, vs)
		require.NoError(t, err)
		assert.Equal(t, image.YCbCrSubsampleRatio420, img.SubsampleRatio)
		assert.Equal(t, []byte{10, 30}, img.Cb)
		assert.Equal(t, []byte{20, 40}, img.Cr)
		assert.Equal(t, uint8(6), img.YCbCrAt(1, 1).Y)
	})

	t.Run("YV12", func(t *testing.T) {
		vs := &surface.Video{
			Format: surface.FormatYV12, Width: 2, Height: 2,
			DataY: fill(t, pool, []byte{1, 2, 3, 4}),
			DataU: fill(t, pool, []byte{50}),
			DataV: fill(t, pool, []byte{60}),
		}
		img, err := decodeVideo(pool, vs)
		require.NoError(t, err)
		assert.Equal(t, color.YCbCr{Y: 4, Cb: 50, Cr: 60}, img.YCbCrAt(1, 1))
	})

	t.Run("YUYV and UYVY", func(t *testing.T) {
		yuyv := &surface.Video{Format: surface.FormatYUYV, Width: 2, Height: 1, DataY: fill(t, pool, []byte{1, 50, 2, 60})}
		img, err := decodeVideo(pool, yuyv)
		require.NoError(t, err)
		assert.Equal(t, color.YCbCr{Y: 2, Cb: 50, Cr: 60}, img.YCbCrAt(1, 0))

		uyvy := &surface.Video{Format: surface.FormatUYVY, Width: 2, Height: 1, DataY: fill(t, pool, []byte{50, 1, 60, 2})}
		img, err = decodeVideo(pool, uyvy)
		require.NoError(t, err)
		assert.Equal(t, color.YCbCr{Y: 1, Cb: 50, Cr: 60}, img.YCbCrAt(0, 0))
	})

	t.Run("short plane", func(t *testing.T) {
		vs := &surface.Video{Format: surface.FormatNV12, Width: 64, Height: 64, DataY: fill(t, pool, []byte{1}), DataU: fill(t, pool, []byte{1})}
		_, err := decodeVideo(pool, vs)
		assert.Error(t, err)
	})

	t.Run("tiled", func(t *testing.T) {
		vs := &surface.Video{Format: surface.FormatInternal, Width: 16, Height: 16}
		_, err := decodeVideo(pool, vs)
		assert.ErrorIs(t, err, errTiled)
	})
}

func TestScaleAndConvert(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 10, 20, 30, 0xff
	}

	scaled := scaleTo(src, image.Rectangle{}, 4, 3)
	assert.Equal(t, image.Rect(0, 0, 4, 3), scaled.Bounds())

	assert.Len(t, toBGRX(scaled), 4*3*4)

	pix := toBGRX(src)
	require.Len(t, pix, 2*2*4)
	assert.Equal(t, []byte{30, 20, 10, 0xff}, pix[:4])

	crop := scaleTo(src, image.Rect(0, 0, 1, 1), 2, 2)
	assert.Equal(t, image.Rect(0, 0, 2, 2), crop.Bounds())
}
