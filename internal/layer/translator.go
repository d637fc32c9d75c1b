// Package layer turns video surfaces into display engine layer parameters
// and drives one scaler layer through its open / present / close cycle.
package layer

import (
	"errors"
	"image"

	"github.com/bnema/cedardisp/internal/cedarv"
	"github.com/bnema/cedardisp/internal/disp"
	"github.com/bnema/cedardisp/internal/surface"
)

// DefaultPhysOffset is the CPU to DRAM bus offset the legacy sunxi display
// driver expects on top of allocator addresses.
const DefaultPhysOffset uint32 = 0x40000000

var (
	errNoVideo  = errors.New("layer: source has no video surface")
	errNoBuffer = errors.New("layer: overlay has no valid buffer")
)

type formatEntry struct {
	mode   disp.PixelMode
	format disp.PixelFormat
	seq    disp.PixelSeq
}

var formatTable = map[surface.SourceFormat]formatEntry{
	surface.FormatYUYV:    {disp.ModeInterleaved, disp.FormatYUV422, disp.SeqYUYV},
	surface.FormatUYVY:    {disp.ModeInterleaved, disp.FormatYUV422, disp.SeqUYVY},
	surface.FormatNV12:    {disp.ModeNonMBUVCombined, disp.FormatYUV420, disp.SeqUVUV},
	surface.FormatYV12:    {disp.ModeNonMBPlanar, disp.FormatYUV420, disp.SeqUVUV},
	surface.FormatYUV420P: {disp.ModeNonMBPlanar, disp.FormatYUV420, disp.SeqUVUV},
}

// Internal tiled output and anything unknown
var formatDefault = formatEntry{disp.ModeMBUVCombined, disp.FormatYUV420, disp.SeqUVUV}

func lookupFormat(f surface.SourceFormat) formatEntry {
	if e, ok := formatTable[f]; ok {
		return e
	}
	return formatDefault
}

// Source is everything Build needs to place one picture on screen.
type Source struct {
	Video *surface.Video
	// Crop selects the visible part of the picture. Empty means all of it.
	Crop image.Rectangle
	// Dst is the window relative screen rectangle.
	Dst image.Rectangle
	// Origin is the window's position on the screen.
	Origin image.Point
	CSMode disp.CSMode
}

// Translator builds layer parameters. It is stateless apart from its
// configuration and may be shared.
type Translator struct {
	Allocator  cedarv.Allocator
	PhysOffset uint32
}

// NewTranslator returns a Translator using the default bus offset.
func NewTranslator(alloc cedarv.Allocator) *Translator {
	return &Translator{Allocator: alloc, PhysOffset: DefaultPhysOffset}
}

// Build computes the scaler layer parameters for src.
func (t *Translator) Build(src Source) (*disp.LayerInfo, error) {
	vs := src.Video
	if vs == nil {
		return nil, errNoVideo
	}

	fe := lookupFormat(vs.Format)
	info := &disp.LayerInfo{
		Mode:     disp.WorkModeScaler,
		Pipe:     1,
		AlphaEn:  1,
		AlphaVal: 0xff,
		CkEnable: 1,
	}
	info.FB.Mode = fe.mode
	info.FB.Format = fe.format
	info.FB.Seq = fe.seq
	info.FB.CSMode = src.CSMode
	info.FB.Size = disp.Size{Width: uint32(vs.Width), Height: uint32(vs.Height)}
	info.FB.Addr = t.PlaneAddrs(vs)

	crop := src.Crop.Canon()
	if crop.Empty() {
		crop = vs.Bounds()
	}
	info.SrcWin = disp.Rect{
		X:      int32(crop.Min.X),
		Y:      int32(crop.Min.Y),
		Width:  uint32(crop.Dx()),
		Height: uint32(crop.Dy()),
	}
	dst := src.Dst.Canon().Add(src.Origin)
	info.ScnWin = disp.Rect{
		X:      int32(dst.Min.X),
		Y:      int32(dst.Min.Y),
		Width:  uint32(dst.Dx()),
		Height: uint32(dst.Dy()),
	}

	clipTop(&info.SrcWin, &info.ScnWin)
	return info, nil
}

// PlaneAddrs returns the bus addresses of the Y, U and V planes. A plane
// without a valid buffer is zero: V for NV12 and tiled formats, which carry
// both chroma planes in DataU, and U and V for packed 4:2:2.
func (t *Translator) PlaneAddrs(vs *surface.Video) [3]uint32 {
	return [3]uint32{t.busAddr(vs.DataY), t.busAddr(vs.DataU), t.busAddr(vs.DataV)}
}

func (t *Translator) busAddr(b *cedarv.Buffer) uint32 {
	if !t.Allocator.IsValid(b) {
		return 0
	}
	return t.Allocator.PhysicalAddress(b) + t.PhysOffset
}

// clipTop cuts whatever sits above the top screen edge from both windows.
// Nothing else is clipped; callers pre-clip right and bottom.
func clipTop(srcWin, scnWin *disp.Rect) {
	if scnWin.Y >= 0 {
		return
	}
	cutoff := uint32(-scnWin.Y)
	srcWin.Y += int32(cutoff)
	srcWin.Height = subClamp(srcWin.Height, cutoff)
	scnWin.Y = 0
	scnWin.Height = subClamp(scnWin.Height, cutoff)
}

func subClamp(a, b uint32) uint32 {
	if b >= a {
		return 0
	}
	return a - b
}

// OSDSource is an RGBA overlay placed over the video layer.
type OSDSource struct {
	Buffer *cedarv.Buffer
	Format surface.RGBAFormat
	Width  int
	Height int
	// Dst is the window relative screen rectangle.
	Dst    image.Rectangle
	Origin image.Point
}

// BuildOSD computes normal mode parameters for an ARGB overlay.
func (t *Translator) BuildOSD(src OSDSource) (*disp.LayerInfo, error) {
	if !t.Allocator.IsValid(src.Buffer) {
		return nil, errNoBuffer
	}

	info := &disp.LayerInfo{
		Mode:     disp.WorkModeNormal,
		AlphaEn:  1,
		AlphaVal: 0xff,
	}
	info.FB.Mode = disp.ModeInterleaved
	info.FB.Format = disp.FormatARGB8888
	info.FB.Seq = disp.SeqARGB
	// R8G8B8A8 has red and blue the other way round
	if src.Format == surface.RGBAFormatR8G8B8A8 {
		info.FB.BRSwap = 1
	}
	info.FB.Size = disp.Size{Width: uint32(src.Width), Height: uint32(src.Height)}
	info.FB.Addr[0] = t.Allocator.PhysicalAddress(src.Buffer) + t.PhysOffset

	info.SrcWin = disp.Rect{Width: uint32(src.Width), Height: uint32(src.Height)}
	dst := src.Dst.Canon().Add(src.Origin)
	info.ScnWin = disp.Rect{
		X:      int32(dst.Min.X),
		Y:      int32(dst.Min.Y),
		Width:  uint32(dst.Dx()),
		Height: uint32(dst.Dy()),
	}

	clipTop(&info.SrcWin, &info.ScnWin)
	return info, nil
}
