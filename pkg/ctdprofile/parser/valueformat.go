package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MissingValue is the reserved sentinel meaning "no physically valid value".
const MissingValue = -9.990e-29

// MissingValueString is the literal form of MissingValue in profile files.
const MissingValueString = "-9.990e-29"

// DefaultWidth is the column width used until the first data row sets it.
const DefaultWidth = 11

// ErrFormatInconsistency indicates a data row that is not uniformly spaced.
var ErrFormatInconsistency = errors.New("inconsistent column format")

// IsMissing reports whether v is the missing value sentinel.
func IsMissing(v float64) bool {
	return v == MissingValue
}

// Notation is the numeric notation of a column.
type Notation byte

const (
	// NotationInteger prints values as integers.
	NotationInteger Notation = 'd'
	// NotationFixed prints values as fixed-point decimals.
	NotationFixed Notation = 'f'
	// NotationExponential prints values in exponential notation.
	NotationExponential Notation = 'e'
)

// FormatSpec is a print format: total width, decimal count and notation.
type FormatSpec struct {
	Width int
	// Decimals is -1 when no decimal count is known.
	Decimals int
	Notation Notation
}

// String returns the spec in "11.3f" form.
func (s FormatSpec) String() string {
	if s.Decimals < 0 {
		return fmt.Sprintf("%d%c", s.Width, s.Notation)
	}
	return fmt.Sprintf("%d.%d%c", s.Width, s.Decimals, s.Notation)
}

// Format renders v right-justified to the spec's width.
func (s FormatSpec) Format(v float64) string {
	switch s.Notation {
	case NotationInteger:
		return fmt.Sprintf("%*d", s.Width, int64(v))
	case NotationExponential:
		if s.Decimals < 0 {
			return fmt.Sprintf("%*e", s.Width, v)
		}
		return fmt.Sprintf("%*.*e", s.Width, s.Decimals, v)
	default:
		if s.Decimals < 0 {
			return fmt.Sprintf("%*f", s.Width, v)
		}
		return fmt.Sprintf("%*.*f", s.Width, s.Decimals, v)
	}
}

// ParseFormatSpec parses a spec written as "11.3f", "11.4e" or "11d".
func ParseFormatSpec(s string) (FormatSpec, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return FormatSpec{}, fmt.Errorf("invalid format spec %q", s)
	}
	notation := Notation(s[len(s)-1])
	switch notation {
	case NotationInteger, NotationFixed, NotationExponential:
	default:
		return FormatSpec{}, fmt.Errorf("invalid format spec %q: unknown notation", s)
	}

	spec := FormatSpec{Decimals: -1, Notation: notation}
	widthPart, decPart, hasDec := strings.Cut(s[:len(s)-1], ".")
	width, err := strconv.Atoi(widthPart)
	if err != nil {
		return FormatSpec{}, fmt.Errorf("invalid format spec %q: %w", s, err)
	}
	spec.Width = width
	if hasDec {
		dec, err := strconv.Atoi(decPart)
		if err != nil {
			return FormatSpec{}, fmt.Errorf("invalid format spec %q: %w", s, err)
		}
		spec.Decimals = dec
	}
	return spec, nil
}

// ValueFormat infers a column's print format from the raw value tokens of
// that column. The decimal count only ever widens so re-serialized values keep
// the highest precision seen.
type ValueFormat struct {
	width       int
	widthSet    bool
	notation    Notation
	decimals    int
	hasDecimals bool
	sample      float64
	override    *FormatSpec
}

// NewValueFormat returns a format with the default width and integer notation.
func NewValueFormat() *ValueFormat {
	return &ValueFormat{width: DefaultWidth, notation: NotationInteger}
}

// SetWidth fixes the total print width. The width can be set once.
func (f *ValueFormat) SetWidth(width int) error {
	if f.widthSet && width != f.width {
		return fmt.Errorf("%w: width already set to %d, got %d", ErrFormatInconsistency, f.width, width)
	}
	f.width = width
	f.widthSet = true
	return nil
}

// SetOverride forces spec for every value, bypassing inference.
func (f *ValueFormat) SetOverride(spec FormatSpec) {
	f.override = &spec
}

// Width returns the total print width.
func (f *ValueFormat) Width() int {
	return f.width
}

// Notation returns the inferred notation.
func (f *ValueFormat) Notation() Notation {
	return f.notation
}

// Decimals returns the highest decimal count seen, and whether any was seen.
func (f *ValueFormat) Decimals() (int, bool) {
	return f.decimals, f.hasDecimals
}

// Sample returns the value that produced the current decimal count.
func (f *ValueFormat) Sample() float64 {
	return f.sample
}

// Observe parses a raw token, updates the inferred format and returns the value.
// Sentinel tokens are parsed but do not affect the format.
func (f *ValueFormat) Observe(token string) (float64, error) {
	token = strings.TrimSpace(token)
	if token == MissingValueString {
		return MissingValue, nil
	}

	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %w", token, err)
	}

	body := token
	if len(body) > 0 && (body[0] == '+' || body[0] == '-') {
		body = body[1:]
	}
	hasDot := strings.Contains(token, ".")
	switch {
	case strings.ContainsAny(body, "+-"):
		f.notation = NotationExponential
	case hasDot:
		f.notation = NotationFixed
	default:
		f.notation = NotationInteger
	}

	if hasDot {
		f.observeDecimals(token, value)
	}
	return value, nil
}

func (f *ValueFormat) observeDecimals(token string, value float64) {
	mantissa := token
	if i := strings.IndexAny(mantissa, "eE"); i >= 0 {
		mantissa = mantissa[:i]
	}
	n := 0
	if i := strings.LastIndex(mantissa, "."); i >= 0 {
		n = len(mantissa) - i - 1
	}
	if !f.hasDecimals || n > f.decimals {
		f.decimals = n
		f.hasDecimals = true
		f.sample = value
	}
}

// Spec returns the format to use for value. In exponential notation a
// negative value gets one decimal less, since its sign takes one column.
func (f *ValueFormat) Spec(value float64) FormatSpec {
	if f.override != nil {
		return *f.override
	}
	spec := FormatSpec{Width: f.width, Decimals: -1, Notation: f.notation}
	if !f.hasDecimals {
		return spec
	}
	spec.Decimals = f.decimals
	if f.notation == NotationExponential && value < 0 && spec.Decimals > 0 {
		spec.Decimals--
	}
	return spec
}

// Format renders value right-justified to the column width. The missing
// value sentinel is always written as its literal text.
func (f *ValueFormat) Format(value float64) string {
	if IsMissing(value) {
		width := f.width
		if f.override != nil {
			width = f.override.Width
		}
		return fmt.Sprintf("%*s", width, MissingValueString)
	}
	if f.notation == NotationInteger && f.override == nil && f.hasDecimals {
		// integer token after decimal tokens: keep the decimals seen
		return FormatSpec{Width: f.width, Decimals: f.decimals, Notation: NotationFixed}.Format(value)
	}
	return f.Spec(value).Format(value)
}

// String returns the format for a positive value in "11.3f" form.
func (f *ValueFormat) String() string {
	return f.Spec(0).String()
}
