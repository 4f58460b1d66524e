package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/models"
)

// Layout file columns.
const (
	layoutIndexColumn  = "index"
	layoutParamColumn  = "parameter"
	layoutActiveColumn = "active"
	layoutFormatColumn = "format"
)

// ErrUnknownInstrument indicates a layout directory without a layout for the
// requested instrument serial number.
var ErrUnknownInstrument = errors.New("no layout for instrument")

// pressureSensorKind identifies the sensor whose serial number names the instrument.
const pressureSensorKind = "PressureSensor"

// LoadLayout reads a tab-separated sensor layout file.
func LoadLayout(path string) (*models.SensorLayout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	layout, err := ParseLayout(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	layout.Source = path
	return layout, nil
}

// ParseLayout parses a sensor layout. The first non-empty line is the header
// and must name the index and parameter columns; active and format are
// optional (active defaults to true).
func ParseLayout(r io.Reader) (*models.SensorLayout, error) {
	layout := &models.SensorLayout{Entries: make(map[int]models.LayoutEntry)}
	var header map[string]int

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		if header == nil {
			header = make(map[string]int, len(fields))
			for i, name := range fields {
				header[strings.ToLower(name)] = i
			}
			for _, required := range []string{layoutIndexColumn, layoutParamColumn} {
				if _, ok := header[required]; !ok {
					return nil, fmt.Errorf("layout header is missing column %q", required)
				}
			}
			continue
		}

		get := func(col string) string {
			if i, ok := header[col]; ok && i < len(fields) {
				return fields[i]
			}
			return ""
		}

		index, err := strconv.Atoi(get(layoutIndexColumn))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid index: %w", lineNo, err)
		}
		entry := models.LayoutEntry{
			Index:  index,
			Name:   get(layoutParamColumn),
			Active: true,
			Format: get(layoutFormatColumn),
		}
		if entry.Name == "" {
			return nil, fmt.Errorf("line %d: empty parameter", lineNo)
		}
		if v := get(layoutActiveColumn); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid active flag %q", lineNo, v)
			}
			entry.Active = n != 0
		}
		if entry.Format != "" {
			if _, err := ParseFormatSpec(entry.Format); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
		layout.Entries[index] = entry
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if header == nil {
		return nil, fmt.Errorf("empty layout")
	}
	return layout, nil
}

// LayoutSet holds the sensor layouts of a directory keyed by instrument
// serial number, taken from each file name without its extension.
type LayoutSet struct {
	Dir     string
	layouts map[string]*models.SensorLayout
}

// LoadLayoutDir reads every regular file in dir as a sensor layout. Hidden
// files are ignored.
func LoadLayoutDir(dir string) (*LayoutSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	set := &LayoutSet{Dir: dir, layouts: make(map[string]*models.SensorLayout)}
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		serial := strings.TrimSuffix(name, filepath.Ext(name))
		if _, dup := set.layouts[serial]; dup {
			return nil, fmt.Errorf("%s: more than one layout for instrument %q", dir, serial)
		}
		layout, err := LoadLayout(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		set.layouts[serial] = layout
	}
	return set, nil
}

// Instruments returns the serial numbers with a layout, sorted.
func (s *LayoutSet) Instruments() []string {
	serials := make([]string, 0, len(s.layouts))
	for serial := range s.layouts {
		serials = append(serials, serial)
	}
	sort.Strings(serials)
	return serials
}

// ForInstrument returns the layout of the instrument with serial number serial.
func (s *LayoutSet) ForInstrument(serial string) (*models.SensorLayout, error) {
	layout, ok := s.layouts[strings.TrimSpace(serial)]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrUnknownInstrument, serial, s.Dir)
	}
	return layout, nil
}

// InstrumentSerial returns the serial number of the first pressure sensor,
// which identifies the instrument a profile was recorded with.
func InstrumentSerial(sensors []models.SensorRecord) (string, bool) {
	for _, s := range sensors {
		if strings.Contains(s.Kind, pressureSensorKind) && s.SerialNumber != "" {
			return s.SerialNumber, true
		}
	}
	return "", false
}
