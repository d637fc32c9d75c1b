package disp

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Request is one ioctl. Scalar arguments go in Args; Payload, when set, is a
// pointer to a driver structure whose address is written to
// Args[PayloadArg] right before the call. Direct requests pass the payload
// address itself as the ioctl argument.
type Request struct {
	Cmd        Cmd
	Args       [4]uintptr
	Payload    any
	PayloadArg int
	Direct     bool
}

// ScreenRequest addresses screen-wide state.
func ScreenRequest(cmd Cmd, screen uint32) Request {
	return Request{Cmd: cmd, Args: [4]uintptr{uintptr(screen)}}
}

// ScreenPayload addresses screen-wide state with a structure in Args[1].
func ScreenPayload(cmd Cmd, screen uint32, payload any) Request {
	return Request{Cmd: cmd, Args: [4]uintptr{uintptr(screen)}, Payload: payload, PayloadArg: 1}
}

// LayerRequest addresses one layer.
func LayerRequest(cmd Cmd, screen uint32, layer LayerID) Request {
	return Request{Cmd: cmd, Args: [4]uintptr{uintptr(screen), uintptr(layer)}}
}

// LayerValue addresses one layer with a scalar in Args[2].
func LayerValue(cmd Cmd, screen uint32, layer LayerID, value uint32) Request {
	return Request{Cmd: cmd, Args: [4]uintptr{uintptr(screen), uintptr(layer), uintptr(value)}}
}

// LayerPayload addresses one layer with a structure in Args[2].
func LayerPayload(cmd Cmd, screen uint32, layer LayerID, payload any) Request {
	return Request{Cmd: cmd, Args: [4]uintptr{uintptr(screen), uintptr(layer)}, Payload: payload, PayloadArg: 2}
}

// Transport carries requests to the display driver. Do returns the driver's
// non-negative result or an error.
type Transport interface {
	Do(req Request) (int, error)
	Close() error
}

// ErrUnsupportedPayload is returned for payload types the driver ABI has no
// structure for.
var ErrUnsupportedPayload = errors.New("disp: unsupported payload type")

func payloadPointer(p any) (unsafe.Pointer, error) {
	switch v := p.(type) {
	case *LayerInfo:
		return unsafe.Pointer(v), nil
	case *VideoFB:
		return unsafe.Pointer(v), nil
	case *ColorKey:
		return unsafe.Pointer(v), nil
	case *Color:
		return unsafe.Pointer(v), nil
	case *int32:
		return unsafe.Pointer(v), nil
	case *uintptr:
		return unsafe.Pointer(v), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedPayload, p)
	}
}

// Device is an open display node (/dev/disp or /dev/fbN).
type Device struct {
	fd   int
	path string
}

// Open opens a display node read-write.
func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Device{fd: fd, path: path}, nil
}

// Path returns the node the device was opened from.
func (d *Device) Path() string {
	return d.path
}

// Fd returns the raw descriptor.
func (d *Device) Fd() int {
	return d.fd
}

func (d *Device) Do(req Request) (int, error) {
	if d.fd < 0 {
		return -1, fmt.Errorf("%s on %s: %w", req.Cmd, d.path, unix.EBADF)
	}

	args := req.Args
	var arg uintptr
	if req.Payload != nil {
		ptr, err := payloadPointer(req.Payload)
		if err != nil {
			return -1, err
		}
		if req.Direct {
			arg = uintptr(ptr)
		} else {
			if req.PayloadArg < 0 || req.PayloadArg >= len(args) {
				return -1, fmt.Errorf("%s: payload slot %d out of range", req.Cmd, req.PayloadArg)
			}
			args[req.PayloadArg] = uintptr(ptr)
		}
	}

	var r uintptr
	var errno unix.Errno
	if arg != 0 {
		r, _, errno = unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), uintptr(req.Cmd), arg)
	} else {
		r, _, errno = unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), uintptr(req.Cmd), uintptr(unsafe.Pointer(&args)))
	}
	runtime.KeepAlive(req.Payload)
	runtime.KeepAlive(&args)

	if errno != 0 {
		return -1, fmt.Errorf("%s on %s: %w", req.Cmd, d.path, errno)
	}
	return int(int32(r)), nil
}

// Close releases the descriptor. Calling Close twice is safe.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}
