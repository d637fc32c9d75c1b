package display

import (
	"errors"
	"fmt"
	"image"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bnema/cedardisp/internal/cedarv"
	"github.com/bnema/cedardisp/internal/logger"
	"github.com/bnema/cedardisp/internal/surface"
)

// putImageHeader is the fixed part of a PutImage request in bytes.
const putImageHeader = 24

// x11Backend blits decoded frames into the target window. It is used when
// no overlay hardware is available, so it reads pictures back from the
// decoder buffers and scales them on the CPU.
type x11Backend struct {
	conn     *xgb.Conn
	drawable xproto.Drawable
	gc       xproto.Gcontext
	depth    byte
	maxReq   int
	alloc    cedarv.Allocator
}

func openX11(cfg *Config, drawable uint32) (Backend, error) {
	if drawable == 0 {
		return nil, errors.New("x11: no drawable")
	}
	if cfg.Allocator == nil {
		return nil, errors.New("x11: no buffer allocator")
	}

	conn, err := xgb.NewConnDisplay(cfg.X11Display)
	if err != nil {
		return nil, fmt.Errorf("x11: connect %q: %w", cfg.X11Display, err)
	}

	d := xproto.Drawable(drawable)
	geom, err := xproto.GetGeometry(conn, d).Reply()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("x11: geometry of %#x: %w", drawable, err)
	}
	if geom.Depth != 24 && geom.Depth != 32 {
		conn.Close()
		return nil, fmt.Errorf("x11: unsupported depth %d", geom.Depth)
	}

	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("x11: gc id: %w", err)
	}
	if err := xproto.CreateGCChecked(conn, gc, d, 0, nil).Check(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("x11: create gc: %w", err)
	}

	return &x11Backend{
		conn:     conn,
		drawable: d,
		gc:       gc,
		depth:    geom.Depth,
		maxReq:   int(xproto.Setup(conn).MaximumRequestLength) * 4,
		alloc:    cfg.Allocator,
	}, nil
}

func (b *x11Backend) SetVideoLayer(x, y, width, height int, out *surface.Output) error {
	if out == nil || out.Video == nil {
		return errors.New("x11: output surface has no video")
	}
	vs := out.Video

	img, err := decodeVideo(b.alloc, vs)
	if errors.Is(err, errTiled) {
		logger.Debugf("x11: skipping %s frame %dx%d", vs.Format, vs.Width, vs.Height)
		return nil
	}
	if err != nil {
		return fmt.Errorf("x11: %w", err)
	}

	dst := videoDst(out, width, height)
	if dst.Empty() {
		return nil
	}
	scaled := scaleTo(img, out.VideoSrc, dst.Dx(), dst.Dy())
	return b.put(toBGRX(scaled), dst)
}

// put sends pixels in as many PutImage requests as the server's request
// size limit needs.
func (b *x11Backend) put(pix []byte, dst image.Rectangle) error {
	stride := dst.Dx() * 4
	rows := (b.maxReq - putImageHeader) / stride
	if rows < 1 {
		return fmt.Errorf("x11: row of %d bytes exceeds request limit", stride)
	}

	for top := 0; top < dst.Dy(); top += rows {
		n := min(rows, dst.Dy()-top)
		err := xproto.PutImageChecked(b.conn, xproto.ImageFormatZPixmap, b.drawable, b.gc,
			uint16(dst.Dx()), uint16(n), int16(dst.Min.X), int16(dst.Min.Y+top),
			0, b.depth, pix[top*stride:(top+n)*stride]).Check()
		if err != nil {
			return fmt.Errorf("x11: put image: %w", err)
		}
	}
	return nil
}

// Window content stays until the next frame is drawn.
func (b *x11Backend) CloseVideoLayer() error {
	return nil
}

// The window system composes the OSD itself.
func (b *x11Backend) SetOSDLayer(x, y, width, height int, out *surface.Output) error {
	return nil
}

func (b *x11Backend) CloseOSDLayer() error {
	return nil
}

func (b *x11Backend) Close() error {
	if b.conn == nil {
		return nil
	}
	xproto.FreeGC(b.conn, b.gc)
	b.conn.Close()
	b.conn = nil
	return nil
}
