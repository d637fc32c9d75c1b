// Package ui provides consistent styling for the cedardisp CLI
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette - consistent across the application
var (
	ColorPrimary = lipgloss.Color("39")  // Bright blue
	ColorSuccess = lipgloss.Color("82")  // Green
	ColorWarning = lipgloss.Color("214") // Orange
	ColorError   = lipgloss.Color("196") // Red
	ColorInfo    = lipgloss.Color("86")  // Cyan

	ColorText   = lipgloss.Color("252") // Light gray
	ColorSubtle = lipgloss.Color("241") // Medium gray
	ColorMuted  = lipgloss.Color("238") // Dark gray
)

// Base styles
var (
	TextStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorInfo)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	KeyStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Width(18)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	// Ioctl trace lines in dry runs
	TraceStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			MarginLeft(2)
)

// Icons
var (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "!"
	IconSection = "»"
	IconStep    = "·"
)

// FormatHeader renders a title with a separator line below it
func FormatHeader(title string) string {
	return HeaderStyle.Render(InfoStyle.Render(IconSection)+" "+title) + "\n" + CreateSeparator(50, "─")
}

// FormatSection renders a config or report section name
func FormatSection(name string) string {
	return SectionStyle.Render("[" + name + "]")
}

// FormatKV renders an aligned key/value row
func FormatKV(key string, value any) string {
	return "  " + KeyStyle.Render(key) + ValueStyle.Render(fmt.Sprint(value))
}

func FormatHex(key string, value uint32) string {
	return FormatKV(key, fmt.Sprintf("0x%08x", value))
}

// FormatStep renders the outcome of one pipeline step
func FormatStep(ok bool, step, message string) string {
	icon := SuccessStyle.Render(IconSuccess)
	style := SuccessStyle
	if !ok {
		icon = ErrorStyle.Render(IconError)
		style = ErrorStyle
	}
	line := "   " + icon + " " + step
	if message != "" {
		line += " - " + style.Render(message)
	}
	return line
}

func FormatWarning(message string) string {
	return WarningStyle.Render(IconWarning + " " + message)
}

func FormatTrace(index int, call string) string {
	return TraceStyle.Render(fmt.Sprintf("%3d %s %s", index, IconStep, call))
}

// CreateSeparator creates a horizontal line separator
func CreateSeparator(width int, char string) string {
	if width <= 0 {
		width = 50
	}
	if char == "" {
		char = "─"
	}

	return lipgloss.NewStyle().
		Foreground(ColorSubtle).
		Render(strings.Repeat(char, width))
}
