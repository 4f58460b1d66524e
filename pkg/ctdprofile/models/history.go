package models

import "time"

// HistoryRecord represents the validity interval of one (serial number, parameter) pair.
type HistoryRecord struct {
	// SerialNumber is the sensor serial number.
	SerialNumber string `json:"serial_number"`
	// Param is the parameter code.
	Param string `json:"param"`
	// ValidFrom is the earliest observation time (inclusive).
	ValidFrom time.Time `json:"valid_from"`
	// ValidTo is the latest observation time (inclusive).
	ValidTo time.Time `json:"valid_to"`
	// CalibrationDates is the sorted set of distinct calibration dates seen.
	CalibrationDates []string `json:"calibration_dates"`
	// Reference is the static sensor metadata attached by the caller, if any.
	Reference *SensorReference `json:"reference,omitempty"`
}
