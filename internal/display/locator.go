package display

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bnema/cedardisp/internal/logger"
)

// x11Locator resolves window positions against the root window.
type x11Locator struct {
	conn *xgb.Conn
	root xproto.Window
}

// NewX11Locator connects to display (DISPLAY when empty).
func NewX11Locator(display string) (Locator, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("x11 locator: connect %q: %w", display, err)
	}
	root := xproto.Setup(conn).DefaultScreen(conn).Root
	return &x11Locator{conn: conn, root: root}, nil
}

func (l *x11Locator) Origin(drawable uint32) (int, int, error) {
	if drawable == 0 {
		return 0, 0, nil
	}
	reply, err := xproto.TranslateCoordinates(l.conn, xproto.Window(drawable), l.root, 0, 0).Reply()
	if err != nil {
		return 0, 0, fmt.Errorf("translate %#x: %w", drawable, err)
	}
	return int(reply.DstX), int(reply.DstY), nil
}

func (l *x11Locator) Close() error {
	l.conn.Close()
	return nil
}

type nullLocator struct{}

// NullLocator places every drawable at the screen origin. It serves
// framebuffer setups without a window system.
func NullLocator() Locator {
	return nullLocator{}
}

func (nullLocator) Origin(uint32) (int, int, error) { return 0, 0, nil }
func (nullLocator) Close() error { return nil }

// NewLocator returns an X11 locator when a display is reachable and the
// null locator otherwise.
func NewLocator(display string) Locator {
	loc, err := NewX11Locator(display)
	if err != nil {
		logger.Debugf("no window system, drawables sit at 0,0: %v", err)
		return NullLocator()
	}
	return loc
}
