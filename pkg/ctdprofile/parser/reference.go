package parser

import (
	"fmt"
	"strings"

	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/models"
	"github.com/xuri/excelize/v2"
)

// DefaultReferenceSheet is the workbook sheet holding the sensor reference table.
const DefaultReferenceSheet = "Sensor_info"

// Reference table columns.
const (
	refCNVNameColumn   = "CNV_NAME"
	refSensorIDColumn  = "SENSOR_ID"
	refParamColumn     = "PARAM"
	refInstrumentProd  = "INSTRUMENT_PROD"
	refInstrumentModel = "INSTRUMENT_MOD"
)

// Reference is the static sensor reference table, one row per sensor model/serial.
type Reference struct {
	entries []referenceEntry
}

type referenceEntry struct {
	cnvName  string
	serials  map[string]models.SensorReference
	wildcard *models.SensorReference
}

// LoadReference reads the sensor reference table from an xlsx workbook. The
// first row of the sheet is a title row; column names are on the second row.
func LoadReference(path, sheet string) (*Reference, error) {
	if sheet == "" {
		sheet = DefaultReferenceSheet
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ref, err := NewReference(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ref, nil
}

// NewReference builds a reference table from sheet rows (title row, header row, data rows).
func NewReference(rows [][]string) (*Reference, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("reference sheet has no header row")
	}
	header := rows[1]
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{refCNVNameColumn, refSensorIDColumn, refParamColumn} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("reference header is missing column %q", required)
		}
	}

	ref := &Reference{}
	byName := make(map[string]int)
	for _, row := range rows[2:] {
		get := func(col string) string {
			if i, ok := cols[col]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		cnvName := get(refCNVNameColumn)
		if cnvName == "" {
			continue
		}
		info := models.SensorReference{
			CNVName:        cnvName,
			Param:          get(refParamColumn),
			InstrumentProd: get(refInstrumentProd),
			InstrumentMod:  get(refInstrumentModel),
			Extra:          make(map[string]string),
		}
		for name, i := range cols {
			switch name {
			case refCNVNameColumn, refSensorIDColumn, refParamColumn, refInstrumentProd, refInstrumentModel, "":
				continue
			}
			if i < len(row) && strings.TrimSpace(row[i]) != "" {
				info.Extra[name] = strings.TrimSpace(row[i])
			}
		}

		pos, ok := byName[cnvName]
		if !ok {
			pos = len(ref.entries)
			byName[cnvName] = pos
			ref.entries = append(ref.entries, referenceEntry{
				cnvName: cnvName,
				serials: make(map[string]models.SensorReference),
			})
		}
		entry := &ref.entries[pos]

		ids := get(refSensorIDColumn)
		if ids == "" {
			wildcard := info
			entry.wildcard = &wildcard
			continue
		}
		for _, id := range strings.Split(ids, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			item := info
			item.SensorIDs = []string{id}
			entry.serials[id] = item
		}
	}
	return ref, nil
}

// Lookup returns the reference row for a sensor kind and serial number. The
// first table name contained in kind is used; within it an exact serial
// match wins over a row without serial numbers.
func (r *Reference) Lookup(kind, serial string) (models.SensorReference, bool) {
	for _, entry := range r.entries {
		if !strings.Contains(kind, entry.cnvName) {
			continue
		}
		if info, ok := entry.serials[serial]; ok {
			return info, true
		}
		if entry.wildcard != nil {
			return *entry.wildcard, true
		}
		return models.SensorReference{}, false
	}
	return models.SensorReference{}, false
}

// Len returns the number of sensor names in the table.
func (r *Reference) Len() int {
	return len(r.entries)
}
