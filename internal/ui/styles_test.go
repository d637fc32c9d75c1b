package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatKV(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		want  string
	}{
		{name: "string value", key: "Backend", value: "disp0", want: "disp0"},
		{name: "int value", key: "Width", value: 1920, want: "1920"},
		{name: "bool value", key: "OSD", value: true, want: "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatKV(tt.key, tt.value)
			assert.Contains(t, got, tt.key)
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestFormatHex(t *testing.T) {
	assert.Contains(t, FormatHex("Phys offset", 0x40000000), "0x40000000")
}

func TestFormatStep(t *testing.T) {
	ok := FormatStep(true, "register", "")
	assert.Contains(t, ok, IconSuccess)
	assert.Contains(t, ok, "register")
	assert.NotContains(t, ok, " - ")

	failed := FormatStep(false, "map", "invalid state")
	assert.Contains(t, failed, IconError)
	assert.Contains(t, failed, "invalid state")
}

func TestFormatTrace(t *testing.T) {
	got := FormatTrace(3, "LAYER_OPEN(0, 101)")
	assert.Contains(t, got, "3")
	assert.Contains(t, got, "LAYER_OPEN(0, 101)")
}

func TestCreateSeparator(t *testing.T) {
	tests := []struct {
		name  string
		width int
		char  string
		count int
	}{
		{name: "explicit", width: 10, char: "=", count: 10},
		{name: "default width", width: 0, char: "-", count: 50},
		{name: "default char", width: 5, char: "", count: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			char := tt.char
			if char == "" {
				char = "─"
			}
			got := CreateSeparator(tt.width, tt.char)
			assert.Equal(t, tt.count, strings.Count(got, char))
		})
	}

	assert.Contains(t, FormatHeader("Display"), "Display")
}
