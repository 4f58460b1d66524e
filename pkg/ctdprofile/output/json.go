package output

import (
	"encoding/json"

	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/models"
)

// ToJSON serializes v to JSON, optionally indented.
func ToJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// SensorsView is the JSON document written for one profile's sensor block.
type SensorsView struct {
	// File is the profile file name.
	File string `json:"file"`
	// Info is the profile acquisition metadata.
	Info models.ProfileInfo `json:"info"`
	// Sensors lists the sensors in declaration order.
	Sensors []models.SensorRecord `json:"sensors"`
}

// SensorsToJSON serializes a profile's sensor list.
func SensorsToJSON(view *SensorsView, pretty bool) ([]byte, error) {
	return ToJSON(view, pretty)
}
