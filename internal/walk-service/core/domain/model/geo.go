package model

import "time"

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Fix is one geolocation sample.
type Fix struct {
	Point     GeoPoint  `json:"point"`
	AccuracyM float64   `json:"accuracy_m"`
	At        time.Time `json:"at"`
}
