package models

import "time"

// ProfileInfo holds acquisition metadata read from a profile header.
type ProfileInfo struct {
	// Time is the acquisition time from "* System UTC" (zero if absent).
	Time time.Time `json:"time"`
	// Latitude is the NMEA latitude without hemisphere or spaces.
	Latitude string `json:"latitude,omitempty"`
	// Longitude is the NMEA longitude without hemisphere or spaces.
	Longitude string `json:"longitude,omitempty"`
	// Station is the station name from "** Station".
	Station string `json:"station,omitempty"`
}
