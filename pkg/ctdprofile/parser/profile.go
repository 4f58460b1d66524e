package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/models"
	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/output"
)

// Header markers of the profile format.
const (
	headerEndMarker  = "*END*"
	columnDeclPrefix = "# name"
	systemUTCPrefix  = "* System UTC"
	latitudePrefix   = "* NMEA Latitude"
	longitudePrefix  = "* NMEA Longitude"
	stationPrefix    = "** Station"
)

// SystemUTCLayout is the time layout of the "* System UTC" header line.
const SystemUTCLayout = "Jan 2 2006 15:04:05"

// Column is one data column of a profile.
type Column struct {
	// Index is the 0-based column index from the "# name" declaration.
	Index int
	// Name is the declared label, e.g. "sal00: Salinity, Practical [PSU]".
	Name string
	// Values holds one value per data row.
	Values []float64
	// Format is the print format used when the column is written.
	Format *ValueFormat
	// Active reports whether the sensor behind the column is trusted.
	Active bool

	renames []string
}

// Rename changes the column label and keeps the previous one in its history.
func (c *Column) Rename(name string) {
	if name == c.Name {
		return
	}
	c.renames = append(c.renames, c.Name)
	c.Name = name
}

// PreviousNames returns the labels the column had before each rename.
func (c *Column) PreviousNames() []string {
	out := make([]string, len(c.renames))
	copy(out, c.renames)
	return out
}

// ValueString returns row i rendered with the column format.
func (c *Column) ValueString(i int) string {
	return c.Format.Format(c.Values[i])
}

// Profile is a parsed CTD profile file: header lines plus typed columns.
type Profile struct {
	// Path is the file the profile was read from (empty for readers).
	Path string
	// Header holds the header lines up to and including the *END* line.
	Header *Header
	// Info holds acquisition metadata from the header.
	Info models.ProfileInfo

	columns     []*Column
	rows        int
	sensorBlock []string
}

// ParseFile reads and parses the profile at path.
func ParseFile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// Parse parses a profile from r.
func Parse(r io.Reader) (*Profile, error) {
	p := &Profile{Header: &Header{}}
	declared := make(map[int]*Column)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	inHeader := true
	inSensors := false
	widthSet := false
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		if !inHeader {
			if trimmed == "" {
				continue
			}
			if !widthSet {
				if err := p.setColumns(declared); err != nil {
					return nil, err
				}
				if err := p.setWidths(line); err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				widthSet = true
			}
			if err := p.addRow(trimmed); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			continue
		}

		if err := p.readMetadata(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		if strings.HasPrefix(line, sensorBlockStart) {
			inSensors = true
		}
		if inSensors {
			p.sensorBlock = append(p.sensorBlock, line)
		}
		if strings.HasPrefix(line, sensorBlockEnd) {
			inSensors = false
		}

		if strings.Contains(line, headerEndMarker) {
			p.Header.Add(line)
			inHeader = false
			continue
		}

		if strings.HasPrefix(trimmed, columnDeclPrefix) {
			col, err := parseColumnDecl(trimmed)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			declared[col.Index] = col
		}
		p.Header.Add(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if !widthSet {
		if err := p.setColumns(declared); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// parseColumnDecl parses "# name <idx> = <label>".
func parseColumnDecl(line string) (*Column, error) {
	name, label, ok := strings.Cut(line, "=")
	if !ok {
		return nil, fmt.Errorf("invalid column declaration %q", line)
	}
	fields := strings.Fields(name)
	index, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return nil, fmt.Errorf("invalid column index in %q: %w", line, err)
	}
	return &Column{
		Index:  index,
		Name:   strings.TrimSpace(label),
		Format: NewValueFormat(),
	}, nil
}

func (p *Profile) readMetadata(line string) error {
	switch {
	case strings.HasPrefix(line, systemUTCPrefix):
		_, value, _ := strings.Cut(line, "=")
		t, err := time.Parse(SystemUTCLayout, strings.Join(strings.Fields(value), " "))
		if err != nil {
			return fmt.Errorf("invalid System UTC: %w", err)
		}
		p.Info.Time = t
	case strings.HasPrefix(line, latitudePrefix):
		p.Info.Latitude = nmeaPosition(line)
	case strings.HasPrefix(line, longitudePrefix):
		p.Info.Longitude = nmeaPosition(line)
	case strings.HasPrefix(line, stationPrefix):
		parts := strings.Split(line, ":")
		p.Info.Station = strings.TrimSpace(parts[len(parts)-1])
	}
	return nil
}

// nmeaPosition returns "57 38.52 N" as "5738.52".
func nmeaPosition(line string) string {
	_, value, _ := strings.Cut(line, "=")
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return strings.ReplaceAll(value[:len(value)-1], " ", "")
}

func (p *Profile) setColumns(declared map[int]*Column) error {
	indices := make([]int, 0, len(declared))
	for i := range declared {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	p.columns = make([]*Column, 0, len(indices))
	for pos, i := range indices {
		if i != pos {
			return fmt.Errorf("%w: column declarations are not contiguous (missing index %d)", ErrFormatInconsistency, pos)
		}
		p.columns = append(p.columns, declared[i])
	}
	return nil
}

// setWidths derives the column width from the first data row.
func (p *Profile) setWidths(line string) error {
	fields := strings.Fields(line)
	if len(fields) != len(p.columns) {
		return fmt.Errorf("%w: %d values for %d declared columns", ErrFormatInconsistency, len(fields), len(p.columns))
	}
	total := len(strings.TrimRight(line, " \t"))
	if total%len(fields) != 0 {
		return fmt.Errorf("%w: row length %d is not a multiple of %d values", ErrFormatInconsistency, total, len(fields))
	}
	width := total / len(fields)
	for _, col := range p.columns {
		if err := col.Format.SetWidth(width); err != nil {
			return err
		}
	}
	return nil
}

func (p *Profile) addRow(line string) error {
	fields := strings.Fields(line)
	if len(fields) != len(p.columns) {
		return fmt.Errorf("%w: %d values for %d declared columns", ErrFormatInconsistency, len(fields), len(p.columns))
	}
	for i, token := range fields {
		v, err := p.columns[i].Format.Observe(token)
		if err != nil {
			return err
		}
		p.columns[i].Values = append(p.columns[i].Values, v)
	}
	p.rows++
	return nil
}

// Rows returns the number of data rows.
func (p *Profile) Rows() int {
	return p.rows
}

// Columns returns the columns in index order.
func (p *Profile) Columns() []*Column {
	return p.columns
}

// Column returns the column with the given index.
func (p *Profile) Column(index int) (*Column, bool) {
	if index < 0 || index >= len(p.columns) {
		return nil, false
	}
	return p.columns[index], true
}

// ColumnMatching returns the first column whose name contains match.
func (p *Profile) ColumnMatching(match string) (*Column, bool) {
	for _, col := range p.columns {
		if strings.Contains(col.Name, match) {
			return col, true
		}
	}
	return nil, false
}

// RenameColumn renames the column named current to name. Nothing happens
// if a column is already named name, so repeated calls rename once.
func (p *Profile) RenameColumn(current, name string) bool {
	for _, col := range p.columns {
		if col.Name == name {
			return false
		}
	}
	for _, col := range p.columns {
		if col.Name == current {
			col.Rename(name)
			return true
		}
	}
	return false
}

// ReplaceValues replaces the data of column index. The row count is fixed.
func (p *Profile) ReplaceValues(index int, values []float64) error {
	col, ok := p.Column(index)
	if !ok {
		return fmt.Errorf("no column with index %d", index)
	}
	if len(values) != p.rows {
		return fmt.Errorf("column %d: got %d values for %d rows", index, len(values), p.rows)
	}
	col.Values = values
	return nil
}

// ReportedNames returns the declared column labels in index order.
func (p *Profile) ReportedNames() []string {
	names := make([]string, len(p.columns))
	for i, col := range p.columns {
		names[i] = col.Name
	}
	return names
}

// SensorBlock returns the raw header lines of the embedded sensor block.
func (p *Profile) SensorBlock() []string {
	out := make([]string, len(p.sensorBlock))
	copy(out, p.sensorBlock)
	return out
}

// DataLines renders the data rows with each column's format.
func (p *Profile) DataLines() []string {
	lines := make([]string, p.rows)
	var sb strings.Builder
	for r := 0; r < p.rows; r++ {
		sb.Reset()
		for _, col := range p.columns {
			sb.WriteString(col.ValueString(r))
		}
		lines[r] = sb.String()
	}
	return lines
}

// Bytes renders the whole profile: header, data rows and a trailing empty line.
func (p *Profile) Bytes(lineBreak string) []byte {
	if lineBreak == "" {
		lineBreak = "\n"
	}
	lines := p.Header.Lines()
	lines = append(lines, p.DataLines()...)
	lines = append(lines, "")
	return []byte(strings.Join(lines, lineBreak))
}

// Save writes the profile to path. An existing file is only replaced when
// overwrite is set.
func (p *Profile) Save(path, lineBreak string, overwrite bool) error {
	return output.WriteFile(path, p.Bytes(lineBreak), overwrite)
}
