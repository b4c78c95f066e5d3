package dto

import "time"

const WalkStatusFinished = "FINISHED"

// START WALK
type StartWalkRequest struct {
	StartLat float64 `json:"startLat"`
	StartLng float64 `json:"startLng"`
}

type StartWalkResponse struct {
	WalkID    string    `json:"walkId"`
	StartedAt time.Time `json:"startedAt"`
}

// END WALK
type EndWalkRequest struct {
	EndLat          float64 `json:"endLat"`
	EndLng          float64 `json:"endLng"`
	TotalDistanceKm float64 `json:"totalDistanceKm"`
	DurationSeconds int     `json:"durationSeconds"`
	Status          string  `json:"status"`
	ImageKey        string  `json:"imageKey,omitempty"`
}

type EndWalkResponse struct {
	WalkID             string    `json:"walkId"`
	StartedAt          time.Time `json:"startedAt"`
	EndedAt            time.Time `json:"endedAt"`
	TotalDistanceKm    float64   `json:"totalDistanceKm"`
	DurationSeconds    int       `json:"durationSeconds"`
	OccupiedBlockCount int       `json:"occupiedBlockCount"`
	Status             string    `json:"status"`
}

// BLOCK QUERIES
type BlockDTO struct {
	BlockID    string    `json:"blockId"`
	DogID      int64     `json:"dogId"`
	OccupiedAt time.Time `json:"occupiedAt"`
}

type BlocksResponse struct {
	Blocks []BlockDTO `json:"blocks"`
}
