// Package surface models the decoder-owned video surfaces and the output
// surfaces the presentation queue displays.
package surface

import (
	"image"

	"github.com/bnema/cedardisp/internal/cedarv"
)

// State is the presentation lifecycle stage of a surface.
type State int

const (
	StateUnregistered State = iota
	StateRegistered
	StateMapped
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistered:
		return "registered"
	case StateMapped:
		return "mapped"
	default:
		return "unknown"
	}
}

// SourceFormat is the pixel layout of a video surface's planes.
type SourceFormat uint32

const (
	FormatNV12 SourceFormat = iota
	FormatYV12
	FormatUYVY
	FormatYUYV
	FormatYUV420P

	// FormatInternal is the decoder's macroblock tiled output.
	FormatInternal SourceFormat = 0xffff
)

func (f SourceFormat) String() string {
	switch f {
	case FormatNV12:
		return "NV12"
	case FormatYV12:
		return "YV12"
	case FormatUYVY:
		return "UYVY"
	case FormatYUYV:
		return "YUYV"
	case FormatYUV420P:
		return "YUV420P"
	case FormatInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// ChromaType is the chroma subsampling of a surface.
type ChromaType int

const (
	Chroma420 ChromaType = iota
	Chroma422
	Chroma444
)

// RGBAFormat is the byte order of an output surface's OSD buffer.
type RGBAFormat int

const (
	RGBAFormatB8G8R8A8 RGBAFormat = iota
	RGBAFormatR8G8B8A8
)

// Enhancement holds normalized picture controls. Changed is set whenever a
// value is modified and cleared once the hardware has been updated.
type Enhancement struct {
	Brightness float32
	Contrast   float32
	Saturation float32
	Hue        float32
	Changed    bool
}

// Set stores new values and marks them for upload.
func (e *Enhancement) Set(brightness, contrast, saturation, hue float32) {
	e.Brightness = brightness
	e.Contrast = contrast
	e.Saturation = saturation
	e.Hue = hue
	e.Changed = true
}

// DefaultEnhancement is the neutral setting: no brightness offset, unit
// contrast and saturation, no hue rotation.
func DefaultEnhancement() Enhancement {
	return Enhancement{Contrast: 1, Saturation: 1}
}

// Video is a decoded picture. DataV is nil for formats that carry both
// chroma components in DataU.
type Video struct {
	Format SourceFormat
	Chroma ChromaType
	Width  int
	Height int

	DataY *cedarv.Buffer
	DataU *cedarv.Buffer
	DataV *cedarv.Buffer

	State   State
	Enhance Enhancement
}

// Bounds returns the full picture rectangle.
func (v *Video) Bounds() image.Rectangle {
	return image.Rect(0, 0, v.Width, v.Height)
}

// Output is a presentable surface: an optional video picture placed by
// VideoSrc/VideoDst plus an optional RGBA OSD buffer.
type Output struct {
	Video    *Video
	VideoSrc image.Rectangle
	VideoDst image.Rectangle

	RGBA       *cedarv.Buffer
	RGBAFormat RGBAFormat
	Width      int
	Height     int
	// RGBADirty is set when the OSD buffer holds content to show.
	RGBADirty bool

	State   State
	Enhance Enhancement
}
