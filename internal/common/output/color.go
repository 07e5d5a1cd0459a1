package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	// Package status colors
	Updated   = color.New(color.FgGreen)
	Unchanged = color.New(color.Faint)
	Failed    = color.New(color.FgRed)
	Manual    = color.New(color.FgYellow)
	Tracked   = color.New(color.FgCyan)

	// Message colors
	Success = color.New(color.FgGreen)
	Warning = color.New(color.FgYellow)
	Error   = color.New(color.FgRed)
	Info    = color.New(color.FgCyan)

	// Structural colors
	Header  = color.New(color.FgWhite, color.Bold)
	Package = color.New(color.FgBlue, color.Bold)
)

// Stdout and Stderr are where the Print helpers write. Tests replace them.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// NoColor disables color output
func NoColor() {
	color.NoColor = true
}

// ForceColor enables color output even when not a TTY
func ForceColor() {
	color.NoColor = false
}

// StatusColor returns the color for a package status
func StatusColor(status string) *color.Color {
	switch status {
	case "updated":
		return Updated
	case "unchanged":
		return Unchanged
	case "failed":
		return Failed
	case "manual":
		return Manual
	case "tracked":
		return Tracked
	default:
		return color.New(color.Reset)
	}
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	Success.Fprintf(Stdout, "✓ "+format+"\n", args...)
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	Error.Fprintf(Stderr, "✗ "+format+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	Warning.Fprintf(Stdout, "⚠ "+format+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	Info.Fprintf(Stdout, "→ "+format+"\n", args...)
}

// FormatStatus formats a status string with appropriate color
func FormatStatus(status string) string {
	c := StatusColor(status)
	return c.Sprintf("[%s]", status)
}

// FormatPackage formats a section name with color
func FormatPackage(name string) string {
	return Package.Sprintf("[%s]", name)
}

// Heading prints a bold title surrounded by blank lines
func Heading(title string) {
	fmt.Fprintln(Stdout)
	Header.Fprintln(Stdout, title)
	fmt.Fprintln(Stdout)
}
