// Package models defines data structures for CTD profile processing.
package models

import "time"

// SensorRecord represents one sensor declared in a profile's embedded sensor block.
type SensorRecord struct {
	// Channel is the channel number from the sensor element.
	Channel int `json:"channel"`
	// Kind is the sensor element tag, suffixed with _1, _2, ... when the tag repeats.
	Kind string `json:"kind"`
	// SerialNumber is the sensor serial number (empty if absent).
	SerialNumber string `json:"serial_number"`
	// CalibrationDate is the parsed calibration date (nil if absent or unparseable).
	CalibrationDate *time.Time `json:"calibration_date,omitempty"`
	// RawCalibrationDate keeps the source text of a calibration date that
	// could not be parsed.
	RawCalibrationDate string `json:"calibration_date_raw,omitempty"`
	// Comment is the externally reported sensor name from the channel comment.
	Comment string `json:"comment,omitempty"`
}

// CalibrationDateString returns the calibration date as YYYY-MM-DD, or "" when unset.
func (r SensorRecord) CalibrationDateString() string {
	if r.CalibrationDate == nil {
		return ""
	}
	return r.CalibrationDate.Format("2006-01-02")
}

// SensorReference represents static metadata for a sensor model/serial from the reference table.
type SensorReference struct {
	// CNVName is matched as a substring of the sensor kind.
	CNVName string `json:"cnv_name"`
	// SensorIDs lists the serial numbers the row applies to (empty means any serial).
	SensorIDs []string `json:"sensor_ids,omitempty"`
	// Param is the parameter code used as consolidation key.
	Param string `json:"param"`
	// InstrumentProd is the instrument product name.
	InstrumentProd string `json:"instrument_prod,omitempty"`
	// InstrumentMod is the instrument model.
	InstrumentMod string `json:"instrument_mod,omitempty"`
	// Extra holds the remaining reference columns by header name.
	Extra map[string]string `json:"extra,omitempty"`
}
