package parser

import (
	"fmt"
	"strings"
)

// Header is the ordered list of header lines of a profile. Lines are
// addressed by content match; positions only change through InsertAfter.
type Header struct {
	lines []string
}

// NewHeader returns a header holding lines.
func NewHeader(lines ...string) *Header {
	h := &Header{}
	for _, line := range lines {
		h.Add(line)
	}
	return h
}

// Add appends a line, dropping trailing whitespace and line terminators.
func (h *Header) Add(line string) {
	h.lines = append(h.lines, cleanLine(line))
}

// Lines returns a copy of the header lines.
func (h *Header) Lines() []string {
	out := make([]string, len(h.lines))
	copy(out, h.lines)
	return out
}

// Len returns the number of header lines.
func (h *Header) Len() int {
	return len(h.lines)
}

// Line returns the line at index i.
func (h *Header) Line(i int) string {
	return h.lines[i]
}

// Contains reports whether any line contains substr.
func (h *Header) Contains(substr string) bool {
	return h.FindIndex(substr) >= 0
}

// InsertAfter inserts line right after the first line containing marker.
// Nothing happens if line is already present or no line contains marker.
func (h *Header) InsertAfter(line, marker string) bool {
	line = cleanLine(line)
	for _, existing := range h.lines {
		if existing == line {
			return false
		}
	}
	i := h.FindIndex(marker)
	if i < 0 {
		return false
	}
	h.lines = append(h.lines, "")
	copy(h.lines[i+2:], h.lines[i+1:])
	h.lines[i+1] = line
	return true
}

// AppendToMatching appends suffix to the first line containing match,
// unless that line already ends with suffix.
func (h *Header) AppendToMatching(match, suffix string) bool {
	suffix = strings.TrimRight(suffix, " \t")
	i := h.FindIndex(match)
	if i < 0 || strings.HasSuffix(h.lines[i], suffix) {
		return false
	}
	h.lines[i] += suffix
	return true
}

// FindIndices returns the indices of all lines containing match.
func (h *Header) FindIndices(match string) []int {
	var indices []int
	for i, line := range h.lines {
		if strings.Contains(line, match) {
			indices = append(indices, i)
		}
	}
	return indices
}

// FindIndex returns the index of the first line containing match, or -1.
func (h *Header) FindIndex(match string) int {
	for i, line := range h.lines {
		if strings.Contains(line, match) {
			return i
		}
	}
	return -1
}

// ReplaceSubstringAt replaces old with new in the lines at indices. With
// skipIfPresent, lines already containing new are left alone so a second
// call does not substitute twice.
func (h *Header) ReplaceSubstringAt(indices []int, old, new string, skipIfPresent bool) int {
	n := 0
	for _, i := range indices {
		if i < 0 || i >= len(h.lines) {
			continue
		}
		if skipIfPresent && strings.Contains(h.lines[i], new) {
			continue
		}
		replaced := strings.ReplaceAll(h.lines[i], old, new)
		if replaced != h.lines[i] {
			h.lines[i] = replaced
			n++
		}
	}
	return n
}

// ReplaceLine overwrites the line at index i. Like Add, it drops trailing
// whitespace.
func (h *Header) ReplaceLine(i int, text string) error {
	if i < 0 || i >= len(h.lines) {
		return fmt.Errorf("header line %d out of range (%d lines)", i, len(h.lines))
	}
	h.lines[i] = cleanLine(text)
	return nil
}

func cleanLine(line string) string {
	return strings.TrimRight(line, " \t\r\n")
}
