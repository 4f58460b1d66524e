package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/models"
)

// Markers delimiting the embedded sensor block in the header.
const (
	sensorBlockStart = "# <Sensors count"
	sensorBlockEnd   = "# </Sensors>"
	commentEnd       = "-->"
)

// ErrInvalidCalibrationDate indicates a calibration date in an unknown shape.
var ErrInvalidCalibrationDate = errors.New("invalid calibration date")

// Sensors returns the sensors declared in the profile's embedded block,
// each labelled with its channel comment.
func (p *Profile) Sensors() ([]models.SensorRecord, error) {
	if len(p.sensorBlock) == 0 {
		return nil, nil
	}
	records, err := ExtractSensors(p.sensorBlock)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Comment, _ = p.ChannelComment(records[i].Channel)
	}
	return records, nil
}

// ChannelComment returns the comment text following the declaration of
// channel in the sensor block, e.g. "Temperature" for
// "<!-- Frequency 0, Temperature -->".
func (p *Profile) ChannelComment(channel int) (string, bool) {
	marker := fmt.Sprintf("Channel=%q", strconv.Itoa(channel))
	for i := 0; i+1 < len(p.sensorBlock); i++ {
		if !strings.Contains(p.sensorBlock[i], marker) {
			continue
		}
		next := p.sensorBlock[i+1]
		if _, after, ok := strings.Cut(next, ","); ok {
			next = after
		}
		next = strings.TrimSpace(next)
		next = strings.TrimSuffix(next, commentEnd)
		return strings.TrimSpace(next), true
	}
	return "", false
}

// SensorIDMapping maps each sensor serial number to the label of the
// column on the sensor's channel.
func (p *Profile) SensorIDMapping() (map[string]string, error) {
	records, err := p.Sensors()
	if err != nil {
		return nil, err
	}
	mapping := make(map[string]string, len(records))
	for _, rec := range records {
		name := ""
		if col, ok := p.Column(rec.Channel); ok {
			name = col.Name
		}
		mapping[rec.SerialNumber] = name
	}
	return mapping, nil
}

// ExtractSensors parses the embedded sensor block. Each block line carries a
// two-character comment prefix ("# ") which is removed before XML parsing.
// Repeated sensor kinds are suffixed _1, _2, ... in encounter order.
func ExtractSensors(block []string) ([]models.SensorRecord, error) {
	var sb strings.Builder
	for _, line := range block {
		if len(line) >= 2 {
			sb.WriteString(line[2:])
		}
		sb.WriteByte('\n')
	}

	var records []models.SensorRecord
	decoder := xml.NewDecoder(strings.NewReader(sb.String()))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sensor block: %w", err)
		}

		if se, ok := token.(xml.StartElement); ok && se.Name.Local == "sensor" {
			rec, ok, err := parseSensorElement(decoder, se)
			if err != nil {
				return nil, err
			}
			if ok {
				records = append(records, rec)
			}
		}
	}

	disambiguateKinds(records)
	return records, nil
}

// parseSensorElement reads a <sensor> element. Only the first child element
// describes the sensor; ok is false for sensors without children. A
// calibration date in an unknown shape leaves CalibrationDate nil and keeps
// the text in RawCalibrationDate.
func parseSensorElement(decoder *xml.Decoder, start xml.StartElement) (models.SensorRecord, bool, error) {
	var rec models.SensorRecord
	found := false

	channel := ""
	for _, attr := range start.Attr {
		if attr.Name.Local == "Channel" {
			channel = attr.Value
		}
	}

	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return rec, false, fmt.Errorf("sensor block: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if found {
				if err := decoder.Skip(); err != nil {
					return rec, false, fmt.Errorf("sensor block: %w", err)
				}
				continue
			}
			found = true
			rec.Kind = t.Name.Local
			serial, calDate, err := parseSensorChild(decoder)
			if err != nil {
				return rec, false, err
			}
			rec.SerialNumber = serial
			if date, err := ParseCalibrationDate(calDate); err == nil {
				rec.CalibrationDate = date
			} else {
				rec.RawCalibrationDate = calDate
			}
		case xml.EndElement:
			depth--
		}
	}

	if !found {
		return rec, false, nil
	}
	ch, err := strconv.Atoi(strings.TrimSpace(channel))
	if err != nil {
		return rec, false, fmt.Errorf("sensor %s: invalid channel %q", rec.Kind, channel)
	}
	rec.Channel = ch
	return rec, true, nil
}

// parseSensorChild reads the SerialNumber and CalibrationDate texts of a
// sensor description element.
func parseSensorChild(decoder *xml.Decoder) (serial, calDate string, err error) {
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return "", "", fmt.Errorf("sensor block: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "SerialNumber":
				txt, err := readElementText(decoder)
				if err != nil {
					return "", "", err
				}
				serial = strings.TrimSpace(txt)
			case "CalibrationDate":
				txt, err := readElementText(decoder)
				if err != nil {
					return "", "", err
				}
				calDate = strings.TrimSpace(txt)
			default:
				if err := decoder.Skip(); err != nil {
					return "", "", err
				}
			}
		case xml.EndElement:
			depth--
		}
	}
	return serial, calDate, nil
}

// readElementText reads character data up to the end of the current element.
func readElementText(decoder *xml.Decoder) (string, error) {
	var text string
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return text, err
		}
		switch t := token.(type) {
		case xml.CharData:
			text += string(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return text, nil
}

func disambiguateKinds(records []models.SensorRecord) {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[rec.Kind]++
	}
	seen := make(map[string]int)
	for i, rec := range records {
		if counts[rec.Kind] < 2 {
			continue
		}
		seen[rec.Kind]++
		records[i].Kind = fmt.Sprintf("%s_%d", rec.Kind, seen[rec.Kind])
	}
}

// ParseCalibrationDate parses the calibration date shapes written by the
// instrument software: ddmmyy, ddmmyyyy, dd-Mon-yy, dd-Mon-yyyy and the same
// with spaces. An empty string yields nil.
func ParseCalibrationDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var layout string
	switch {
	case len(s) == 6 && isDigits(s):
		layout = "020106"
	case len(s) == 8 && isDigits(s):
		layout = "02012006"
	default:
		parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == ' ' })
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCalibrationDate, s)
		}
		s = strings.Join(parts, "-")
		if len(parts[2]) == 2 {
			layout = "2-Jan-06"
		} else {
			layout = "2-Jan-2006"
		}
	}

	t, err := time.Parse(layout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCalibrationDate, s)
	}
	return &t, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
