package dto

import "time"

// WalkLifecycleEvent is published to the broker on walk transitions.
type WalkLifecycleEvent struct {
	Event           string    `json:"event"`
	WalkID          string    `json:"walk_id"`
	DogID           int64     `json:"dog_id"`
	DistanceKm      float64   `json:"distance_km"`
	DurationSeconds int       `json:"duration_seconds"`
	OccupiedBlocks  int       `json:"occupied_blocks"`
	ImageKey        string    `json:"image_key,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}
