// Package ctdprofile finalizes CTD profile files and consolidates sensor
// histories across many profiles.
package ctdprofile

import (
	"runtime"
	"time"

	"go.uber.org/zap"
)

// Line breaks accepted for written profiles.
const (
	LineBreakLF   = "\n"
	LineBreakCRLF = "\r\n"
)

// Options configures processing behavior.
type Options struct {
	// LineBreak separates lines of written profiles. Defaults to "\n".
	LineBreak string
	// Overwrite allows replacing existing output files.
	Overwrite bool
	// UseLayoutFormat prints columns with the layout's format when it has one.
	UseLayoutFormat bool
	// BlankInactiveSpans rewrites span lines of inactive sensors to missing values.
	BlankInactiveSpans bool
	// Workers bounds concurrent profile reads. Zero means GOMAXPROCS.
	Workers int
	// Logger receives diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger
	// Now is the clock used for header timestamps. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns default processing options.
func DefaultOptions() Options {
	return Options{
		LineBreak: LineBreakLF,
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) lineBreak() string {
	if o.LineBreak == "" {
		return LineBreakLF
	}
	return o.LineBreak
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}
