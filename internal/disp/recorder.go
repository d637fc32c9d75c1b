package disp

import (
	"fmt"
	"strings"
	"sync"
)

// Call is one request seen by a Recorder. Payload holds a copy of the
// structure as it was when the request was issued.
type Call struct {
	Cmd     Cmd
	Args    [4]uintptr
	Payload any
}

func (c Call) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-22s %#x %#x %#x %#x", c.Cmd, c.Args[0], c.Args[1], c.Args[2], c.Args[3])
	if c.Payload != nil {
		fmt.Fprintf(&b, " %+v", c.Payload)
	}
	return b.String()
}

// Recorder is an in-memory Transport. It answers requests the way a disp
// 1.x driver would for a single screen and keeps every call for
// inspection. It backs tests and dry runs.
type Recorder struct {
	mu sync.Mutex

	// Screen size reported by CmdScnGetWidth / CmdScnGetHeight
	Width  int
	Height int
	// NextLayer is the handle given out by the next CmdLayerRequest
	NextLayer LayerID
	// FBLayer is the handle returned by FBIOGetLayerHdl0
	FBLayer LayerID
	// FrameID is returned by CmdVideoGetFrameID
	FrameID int
	// Fail makes the listed commands fail with the given error
	Fail map[Cmd]error

	calls  []Call
	params map[LayerID]LayerInfo
	closed bool
}

// NewRecorder returns a Recorder emulating a 1920x1080 screen.
func NewRecorder() *Recorder {
	return &Recorder{
		Width:     1920,
		Height:    1080,
		NextLayer: 0x65,
		FBLayer:   0x64,
		Fail:      make(map[Cmd]error),
		params:    make(map[LayerID]LayerInfo),
	}
}

func snapshot(p any) any {
	switch v := p.(type) {
	case *LayerInfo:
		return *v
	case *VideoFB:
		return *v
	case *ColorKey:
		return *v
	case *Color:
		return *v
	case *int32:
		return *v
	case *uintptr:
		return *v
	default:
		return p
	}
}

func (r *Recorder) Do(req Request) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return -1, fmt.Errorf("%s: recorder closed", req.Cmd)
	}
	if _, err := payloadPointer(req.Payload); req.Payload != nil && err != nil {
		return -1, err
	}

	r.calls = append(r.calls, Call{Cmd: req.Cmd, Args: req.Args, Payload: snapshot(req.Payload)})
	if err, ok := r.Fail[req.Cmd]; ok {
		return -1, err
	}

	layer := LayerID(req.Args[1])
	switch req.Cmd {
	case CmdVersion:
		return Version, nil
	case CmdScnGetWidth:
		return r.Width, nil
	case CmdScnGetHeight:
		return r.Height, nil
	case CmdLayerRequest:
		id := r.NextLayer
		r.NextLayer++
		return int(id), nil
	case CmdLayerSetPara:
		if info, ok := req.Payload.(*LayerInfo); ok {
			r.params[layer] = *info
		}
	case CmdLayerGetPara:
		if info, ok := req.Payload.(*LayerInfo); ok {
			*info = r.params[layer]
		}
	case CmdLayerRelease:
		delete(r.params, layer)
	case CmdVideoGetFrameID:
		return r.FrameID, nil
	case FBIOGetLayerHdl0:
		switch out := req.Payload.(type) {
		case *int32:
			*out = int32(r.FBLayer)
		case *uintptr:
			*out = uintptr(r.FBLayer)
		}
	}
	return 0, nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Calls returns a copy of every recorded call.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Cmds returns the recorded command sequence.
func (r *Recorder) Cmds() []Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmds := make([]Cmd, len(r.calls))
	for i, c := range r.calls {
		cmds[i] = c.Cmd
	}
	return cmds
}

// Count returns how many times cmd was issued.
func (r *Recorder) Count(cmd Cmd) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Cmd == cmd {
			n++
		}
	}
	return n
}

// Last returns the most recent call of cmd.
func (r *Recorder) Last(cmd Cmd) (Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.calls) - 1; i >= 0; i-- {
		if r.calls[i].Cmd == cmd {
			return r.calls[i], true
		}
	}
	return Call{}, false
}

// Reset forgets recorded calls but keeps layer state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
