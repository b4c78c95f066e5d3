package websocketdto

import "time"

type LocationData struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Timestamp string  `json:"timestamp"`
}

// LocationUpdateMessage is published on every geolocation fix.
type LocationUpdateMessage struct {
	Type string       `json:"type"`
	Data LocationData `json:"data"`
}

func NewLocationUpdate(lat, lng float64, at time.Time) LocationUpdateMessage {
	return LocationUpdateMessage{
		Type: MessageTypeLocationUpdate,
		Data: LocationData{
			Lat:       lat,
			Lng:       lng,
			Timestamp: at.UTC().Format(time.RFC3339Nano),
		},
	}
}
