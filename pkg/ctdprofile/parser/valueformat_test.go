package parser

import (
	"errors"
	"testing"
)

func TestObserveNotation(t *testing.T) {
	tests := []struct {
		token    string
		value    float64
		notation Notation
		decimals int
	}{
		{"12", 12, NotationInteger, -1},
		{"-12", -12, NotationInteger, -1},
		{"12.345", 12.345, NotationFixed, 3},
		{"-0.5", -0.5, NotationFixed, 1},
		{"1.2345e+02", 123.45, NotationExponential, 4},
		{"-1.234e-03", -0.001234, NotationExponential, 3},
	}

	for _, tt := range tests {
		f := NewValueFormat()
		v, err := f.Observe(tt.token)
		if err != nil {
			t.Fatalf("Observe(%q) failed: %v", tt.token, err)
		}
		if v != tt.value {
			t.Errorf("Observe(%q) = %v, expected %v", tt.token, v, tt.value)
		}
		if f.Notation() != tt.notation {
			t.Errorf("Observe(%q): expected notation %c, got %c", tt.token, tt.notation, f.Notation())
		}
		dec, ok := f.Decimals()
		if tt.decimals < 0 {
			if ok {
				t.Errorf("Observe(%q): expected no decimals, got %d", tt.token, dec)
			}
			continue
		}
		if !ok || dec != tt.decimals {
			t.Errorf("Observe(%q): expected %d decimals, got %d (%v)", tt.token, tt.decimals, dec, ok)
		}
	}
}

func TestObserveInvalidToken(t *testing.T) {
	f := NewValueFormat()
	if _, err := f.Observe("abc"); err == nil {
		t.Error("Expected error for non-numeric token")
	}
}

func TestDecimalsOnlyWiden(t *testing.T) {
	f := NewValueFormat()
	for _, token := range []string{"1.23", "1.2345", "1.234"} {
		if _, err := f.Observe(token); err != nil {
			t.Fatalf("Observe(%q) failed: %v", token, err)
		}
	}

	dec, _ := f.Decimals()
	if dec != 4 {
		t.Errorf("Expected 4 decimals, got %d", dec)
	}
	if f.Sample() != 1.2345 {
		t.Errorf("Expected sample 1.2345, got %v", f.Sample())
	}
	if got := f.Format(1.5); got != "     1.5000" {
		t.Errorf("Expected %q, got %q", "     1.5000", got)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	tokens := []string{"     12.345", "   1480.123", " 1.2345e+02", "         42", " 0.000e+00"}
	for _, token := range tokens {
		f := NewValueFormat()
		if err := f.SetWidth(len(token)); err != nil {
			t.Fatalf("SetWidth failed: %v", err)
		}
		v, err := f.Observe(token)
		if err != nil {
			t.Fatalf("Observe(%q) failed: %v", token, err)
		}
		if got := f.Format(v); got != token {
			t.Errorf("Round trip of %q gave %q", token, got)
		}
	}
}

func TestNegativeExponentialDropsDecimal(t *testing.T) {
	f := NewValueFormat()
	if _, err := f.Observe("1.2345e+02"); err != nil {
		t.Fatal(err)
	}

	if got := f.Spec(-1).Decimals; got != 3 {
		t.Errorf("Expected 3 decimals for a negative value, got %d", got)
	}
	if got := f.Spec(1).Decimals; got != 4 {
		t.Errorf("Expected 4 decimals for a positive value, got %d", got)
	}
	if got := f.Format(-123.45); got != " -1.234e+02" && got != " -1.235e+02" {
		t.Errorf("Unexpected negative rendering %q", got)
	}
	if got := len(f.Format(-123.45)); got != DefaultWidth {
		t.Errorf("Expected width %d, got %d", DefaultWidth, got)
	}
}

func TestMissingValueIsLiteral(t *testing.T) {
	f := NewValueFormat()
	if _, err := f.Observe("12.345"); err != nil {
		t.Fatal(err)
	}
	v, err := f.Observe(MissingValueString)
	if err != nil {
		t.Fatal(err)
	}
	if !IsMissing(v) {
		t.Fatalf("Expected sentinel, got %v", v)
	}
	if f.Notation() != NotationFixed {
		t.Errorf("Sentinel changed notation to %c", f.Notation())
	}
	if dec, _ := f.Decimals(); dec != 3 {
		t.Errorf("Sentinel changed decimals to %d", dec)
	}
	if got := f.Format(v); got != " -9.990e-29" {
		t.Errorf("Expected literal sentinel, got %q", got)
	}
}

func TestSetWidthOnce(t *testing.T) {
	f := NewValueFormat()
	if err := f.SetWidth(11); err != nil {
		t.Fatal(err)
	}
	if err := f.SetWidth(11); err != nil {
		t.Errorf("Setting the same width again failed: %v", err)
	}
	if err := f.SetWidth(10); !errors.Is(err, ErrFormatInconsistency) {
		t.Errorf("Expected ErrFormatInconsistency, got %v", err)
	}
}

func TestParseFormatSpec(t *testing.T) {
	tests := []struct {
		input   string
		want    FormatSpec
		wantErr bool
	}{
		{"11.3f", FormatSpec{Width: 11, Decimals: 3, Notation: NotationFixed}, false},
		{"11.4e", FormatSpec{Width: 11, Decimals: 4, Notation: NotationExponential}, false},
		{"11d", FormatSpec{Width: 11, Decimals: -1, Notation: NotationInteger}, false},
		{"11.3x", FormatSpec{}, true},
		{"f", FormatSpec{}, true},
		{"a.3f", FormatSpec{}, true},
	}

	for _, tt := range tests {
		got, err := ParseFormatSpec(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFormatSpec(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormatSpec(%q) failed: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormatSpec(%q) = %+v, expected %+v", tt.input, got, tt.want)
		}
		if got.String() != tt.input {
			t.Errorf("String() = %q, expected %q", got.String(), tt.input)
		}
	}
}

func TestOverrideFormat(t *testing.T) {
	f := NewValueFormat()
	if _, err := f.Observe("1.23456"); err != nil {
		t.Fatal(err)
	}
	f.SetOverride(FormatSpec{Width: 9, Decimals: 2, Notation: NotationFixed})
	if got := f.Format(1.23456); got != "     1.23" {
		t.Errorf("Expected override rendering, got %q", got)
	}
	if got := f.String(); got != "9.2f" {
		t.Errorf("Expected 9.2f, got %s", got)
	}
}
