// Package disp speaks the sunxi display engine (disp 1.x) ioctl ABI:
// command numbers, the layer and video framebuffer structures, and the
// transports that carry them to /dev/disp.
package disp

import "fmt"

// Cmd is a /dev/disp ioctl request number.
type Cmd uint

// Global commands
const (
	CmdVersion      Cmd = 0x00
	CmdGetBkColor   Cmd = 0x03
	CmdSetColorKey  Cmd = 0x04
	CmdGetColorKey  Cmd = 0x05
	CmdScnGetWidth  Cmd = 0x08
	CmdScnGetHeight Cmd = 0x09
	CmdSetBkColor   Cmd = 0x3f
)

// Layer commands
const (
	CmdLayerRequest       Cmd = 0x40
	CmdLayerRelease       Cmd = 0x41
	CmdLayerOpen          Cmd = 0x42
	CmdLayerClose         Cmd = 0x43
	CmdLayerSetPara       Cmd = 0x4a
	CmdLayerGetPara       Cmd = 0x4b
	CmdLayerAlphaOn       Cmd = 0x4c
	CmdLayerAlphaOff      Cmd = 0x4d
	CmdLayerSetAlphaValue Cmd = 0x4f
	CmdLayerCkOn          Cmd = 0x51
	CmdLayerCkOff         Cmd = 0x52
	CmdLayerTop           Cmd = 0x56
	CmdLayerBottom        Cmd = 0x57
	CmdLayerSetBright     Cmd = 0x5b
	CmdLayerSetContrast   Cmd = 0x5c
	CmdLayerSetSaturation Cmd = 0x5d
	CmdLayerSetHue        Cmd = 0x5e
	CmdLayerEnhanceOn     Cmd = 0x63
	CmdLayerEnhanceOff    Cmd = 0x64
)

// Video commands
const (
	CmdVideoStart      Cmd = 0x100
	CmdVideoStop       Cmd = 0x101
	CmdVideoSetFB      Cmd = 0x102
	CmdVideoGetFrameID Cmd = 0x103
)

// FBIOGetLayerHdl0 is issued on /dev/fbN and returns the layer backing the
// framebuffer console.
const FBIOGetLayerHdl0 Cmd = 0x4700

// Version is the ABI revision this package implements (major 1, minor 0).
const Version = 1 << 16

var cmdNames = map[Cmd]string{
	CmdVersion:            "VERSION",
	CmdGetBkColor:         "GET_BKCOLOR",
	CmdSetColorKey:        "SET_COLORKEY",
	CmdGetColorKey:        "GET_COLORKEY",
	CmdScnGetWidth:        "SCN_GET_WIDTH",
	CmdScnGetHeight:       "SCN_GET_HEIGHT",
	CmdSetBkColor:         "SET_BKCOLOR",
	CmdLayerRequest:       "LAYER_REQUEST",
	CmdLayerRelease:       "LAYER_RELEASE",
	CmdLayerOpen:          "LAYER_OPEN",
	CmdLayerClose:         "LAYER_CLOSE",
	CmdLayerSetPara:       "LAYER_SET_PARA",
	CmdLayerGetPara:       "LAYER_GET_PARA",
	CmdLayerAlphaOn:       "LAYER_ALPHA_ON",
	CmdLayerAlphaOff:      "LAYER_ALPHA_OFF",
	CmdLayerSetAlphaValue: "LAYER_SET_ALPHA_VALUE",
	CmdLayerCkOn:          "LAYER_CK_ON",
	CmdLayerCkOff:         "LAYER_CK_OFF",
	CmdLayerTop:           "LAYER_TOP",
	CmdLayerBottom:        "LAYER_BOTTOM",
	CmdLayerSetBright:     "LAYER_SET_BRIGHT",
	CmdLayerSetContrast:   "LAYER_SET_CONTRAST",
	CmdLayerSetSaturation: "LAYER_SET_SATURATION",
	CmdLayerSetHue:        "LAYER_SET_HUE",
	CmdLayerEnhanceOn:     "LAYER_ENHANCE_ON",
	CmdLayerEnhanceOff:    "LAYER_ENHANCE_OFF",
	CmdVideoStart:         "VIDEO_START",
	CmdVideoStop:          "VIDEO_STOP",
	CmdVideoSetFB:         "VIDEO_SET_FB",
	CmdVideoGetFrameID:    "VIDEO_GET_FRAME_ID",
	FBIOGetLayerHdl0:      "FBIOGET_LAYER_HDL_0",
}

func (c Cmd) String() string {
	if name, ok := cmdNames[c]; ok {
		return name
	}
	return fmt.Sprintf("CMD_%#x", uint(c))
}
