package output

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorScheme defines the colors used for different elements in the output
type ColorScheme struct {
	Method      *color.Color
	URL         *color.Color
	StatusOK    *color.Color
	StatusWarn  *color.Color
	StatusError *color.Color
	HeaderKey   *color.Color
	HeaderValue *color.Color
	Timing      *color.Color
	Success     *color.Color
	Error       *color.Color
	Highlight   *color.Color
}

// DefaultColorScheme returns the default color scheme
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Method:      color.New(color.FgBlue, color.Bold),
		URL:         color.New(color.FgCyan),
		StatusOK:    color.New(color.FgGreen, color.Bold),
		StatusWarn:  color.New(color.FgYellow, color.Bold),
		StatusError: color.New(color.FgRed, color.Bold),
		HeaderKey:   color.New(color.FgYellow),
		HeaderValue: color.New(color.FgWhite),
		Timing:      color.New(color.FgHiBlack),
		Success:     color.New(color.FgGreen),
		Error:       color.New(color.FgRed),
		Highlight:   color.New(color.FgMagenta, color.Bold),
	}
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()

	for _, c := range []*color.Color{
		scheme.Method, scheme.URL,
		scheme.StatusOK, scheme.StatusWarn, scheme.StatusError,
		scheme.HeaderKey, scheme.HeaderValue, scheme.Timing,
		scheme.Success, scheme.Error, scheme.Highlight,
	} {
		c.DisableColor()
	}

	return scheme
}

// StatusColor picks the status color of the scheme for code.
func (s *ColorScheme) StatusColor(code int) *color.Color {
	switch {
	case code >= 200 && code < 300:
		return s.StatusOK
	case code >= 300 && code < 400:
		return s.StatusWarn
	default:
		return s.StatusError
	}
}

// ShouldDisableColor reports whether colored output must be turned off for w.
// NO_COLOR and non-terminal writers disable it too.
func ShouldDisableColor(w io.Writer, noColor bool) bool {
	if noColor {
		return true
	}

	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}

	f, ok := w.(*os.File)
	if !ok {
		return true
	}

	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

func icon(symbol string, attr color.Attribute, noColor bool) string {
	if noColor {
		return symbol
	}

	return color.New(attr).Sprint(symbol)
}

// SuccessIcon is a checkmark, green unless noColor.
func SuccessIcon(noColor bool) string { return icon("✓", color.FgGreen, noColor) }

// ErrorIcon is a cross, red unless noColor.
func ErrorIcon(noColor bool) string { return icon("✗", color.FgRed, noColor) }

// WarningIcon is a warning sign, yellow unless noColor.
func WarningIcon(noColor bool) string { return icon("⚠", color.FgYellow, noColor) }
