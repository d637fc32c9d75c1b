package disp

// Bool is the driver's one byte boolean.
type Bool uint8

func boolOf(b bool) Bool {
	if b {
		return 1
	}
	return 0
}

// LayerID is a layer handle returned by CmdLayerRequest.
type LayerID uint32

// WorkMode selects what a layer does with its framebuffer.
type WorkMode int32

const (
	WorkModeNormal   WorkMode = 0
	WorkModePalette  WorkMode = 1
	WorkModeInterBuf WorkMode = 2
	WorkModeGamma    WorkMode = 3
	WorkModeScaler   WorkMode = 4
)

// PixelFormat is the framebuffer colour format.
type PixelFormat int32

const (
	FormatARGB8888 PixelFormat = 0x0a
	FormatRGB888   PixelFormat = 0x0b
	FormatYUV444   PixelFormat = 0x10
	FormatYUV422   PixelFormat = 0x11
	FormatYUV420   PixelFormat = 0x12
	FormatYUV411   PixelFormat = 0x13
)

// PixelSeq is the component order inside a pixel or plane.
type PixelSeq int32

const (
	SeqARGB PixelSeq = 0x0
	SeqBGRA PixelSeq = 0x2
	SeqUYVY PixelSeq = 0x3
	SeqYUYV PixelSeq = 0x4
	SeqVYUY PixelSeq = 0x5
	SeqYVYU PixelSeq = 0x6
	SeqUVUV PixelSeq = 0x9
	SeqVUVU PixelSeq = 0xa
)

// PixelMode is the plane arrangement in memory.
type PixelMode int32

const (
	ModeNonMBPlanar     PixelMode = 0x0
	ModeInterleaved     PixelMode = 0x1
	ModeNonMBUVCombined PixelMode = 0x2
	ModeMBPlanar        PixelMode = 0x4
	ModeMBUVCombined    PixelMode = 0x6
)

// CSMode is the YUV to RGB conversion standard applied by the scaler.
type CSMode int32

const (
	CSModeBT601 CSMode = 0
	CSModeBT709 CSMode = 1
	CSModeYCC   CSMode = 2
	CSModeXVYCC CSMode = 3
)

// Rect is a signed window on the source or on the screen.
type Rect struct {
	X      int32
	Y      int32
	Width  uint32
	Height uint32
}

// Size is a framebuffer extent.
type Size struct {
	Width  uint32
	Height uint32
}

// FB describes the buffer a layer scans out.
type FB struct {
	Addr         [3]uint32
	Size         Size
	Format       PixelFormat
	Seq          PixelSeq
	Mode         PixelMode
	BRSwap       Bool
	CSMode       CSMode
	TrdSrc       Bool
	TrdMode      int32
	TrdRightAddr [3]uint32
	PreMultiply  Bool
}

// LayerInfo mirrors __disp_layer_info_t.
type LayerInfo struct {
	Mode       WorkMode
	FromScreen Bool
	Pipe       uint8
	Prio       uint8
	AlphaEn    Bool
	AlphaVal   uint16
	CkEnable   Bool
	SrcWin     Rect
	ScnWin     Rect
	FB         FB
	TrdOut     Bool
	OutTrdMode int32
}

// Color is the driver's ARGB colour.
type Color struct {
	Alpha uint8
	Red   uint8
	Green uint8
	Blue  uint8
}

// ColorKey mirrors __disp_colorkey_t.
type ColorKey struct {
	Max            Color
	Min            Color
	RedMatchRule   uint32
	GreenMatchRule uint32
	BlueMatchRule  uint32
}

// VideoFB mirrors __disp_video_fb_t, the per frame update of a running
// video layer.
type VideoFB struct {
	ID            int32
	Addr          [3]uint32
	AddrRight     [3]uint32
	Interlace     Bool
	TopFieldFirst Bool
	FrameRate     uint32
	FlagAddr      uint32
	FlagStride    uint32
	MafValid      Bool
	PreFrameValid Bool
}

// NewVideoFB builds a progressive or interlaced frame update.
func NewVideoFB(id int32, addr [3]uint32, interlace, topFieldFirst bool) *VideoFB {
	return &VideoFB{
		ID:            id,
		Addr:          addr,
		Interlace:     boolOf(interlace),
		TopFieldFirst: boolOf(topFieldFirst),
	}
}
