package display

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/bnema/cedardisp/internal/cedarv"
	"github.com/bnema/cedardisp/internal/surface"
)

var errTiled = errors.New("tiled decoder output cannot be read back")

func planeBytes(alloc cedarv.Allocator, b *cedarv.Buffer, want int, name string) ([]byte, error) {
	p := alloc.Bytes(b)
	if len(p) < want {
		return nil, fmt.Errorf("%s plane holds %d bytes, need %d", name, len(p), want)
	}
	return p[:want], nil
}

// decodeVideo reads the host view of a video surface into a YCbCr image.
// Planar layouts share memory with the surface, interleaved ones are copied.
func decodeVideo(alloc cedarv.Allocator, vs *surface.Video) (*image.YCbCr, error) {
	w, h := vs.Width, vs.Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", w, h)
	}
	cw, ch := (w+1)/2, (h+1)/2

	switch vs.Format {
	case surface.FormatNV12:
		y, err := planeBytes(alloc, vs.DataY, w*h, "Y")
		if err != nil {
			return nil, err
		}
		uv, err := planeBytes(alloc, vs.DataU, cw*ch*2, "UV")
		if err != nil {
			return nil, err
		}
		img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
		copy(img.Y, y)
		for i := 0; i < cw*ch; i++ {
			img.Cb[i] = uv[2*i]
			img.Cr[i] = uv[2*i+1]
		}
		return img, nil

	case surface.FormatYV12, surface.FormatYUV420P:
		y, err := planeBytes(alloc, vs.DataY, w*h, "Y")
		if err != nil {
			return nil, err
		}
		cb, err := planeBytes(alloc, vs.DataU, cw*ch, "U")
		if err != nil {
			return nil, err
		}
		cr, err := planeBytes(alloc, vs.DataV, cw*ch, "V")
		if err != nil {
			return nil, err
		}
		return &image.YCbCr{
			Y:              y,
			Cb:             cb,
			Cr:             cr,
			YStride:        w,
			CStride:        cw,
			SubsampleRatio: image.YCbCrSubsampleRatio420,
			Rect:           image.Rect(0, 0, w, h),
		}, nil

	case surface.FormatYUYV, surface.FormatUYVY:
		packed, err := planeBytes(alloc, vs.DataY, cw*4*h, "packed")
		if err != nil {
			return nil, err
		}
		// byte offsets of Y0, Cb, Y1, Cr inside each 4 byte group
		yo, uo, y1o, vo := 0, 1, 2, 3
		if vs.Format == surface.FormatUYVY {
			yo, uo, y1o, vo = 1, 0, 3, 2
		}
		img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio422)
		for row := 0; row < h; row++ {
			src := packed[row*cw*4:]
			for i := 0; i < cw; i++ {
				g := src[i*4 : i*4+4]
				img.Y[row*img.YStride+2*i] = g[yo]
				if 2*i+1 < w {
					img.Y[row*img.YStride+2*i+1] = g[y1o]
				}
				img.Cb[row*img.CStride+i] = g[uo]
				img.Cr[row*img.CStride+i] = g[vo]
			}
		}
		return img, nil

	default:
		return nil, errTiled
	}
}

// scaleTo resamples the crop of src into a width x height RGBA image.
func scaleTo(src image.Image, crop image.Rectangle, width, height int) *image.RGBA {
	if crop.Empty() {
		crop = src.Bounds()
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	return dst
}

// toBGRX converts to the 32 bit little endian layout of 24 and 32 bit deep
// X visuals.
func toBGRX(img *image.RGBA) []byte {
	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			p := row[x*4 : x*4+4]
			out = append(out, p[2], p[1], p[0], 0xff)
		}
	}
	return out
}
