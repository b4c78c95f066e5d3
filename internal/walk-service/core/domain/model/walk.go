package model

import "time"

type WalkMode int

const (
	ModeIdle WalkMode = iota
	ModeWalking
)

func (m WalkMode) String() string {
	switch m {
	case ModeWalking:
		return "WALKING"
	default:
		return "IDLE"
	}
}

func (m WalkMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// WalkStatus is the read model of the active walk handed to UI layers.
type WalkStatus struct {
	WalkID         string     `json:"walk_id,omitempty"`
	Mode           WalkMode   `json:"mode"`
	Starting       bool       `json:"starting"`
	Ending         bool       `json:"ending"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	ElapsedSeconds int        `json:"elapsed_seconds"`
	DistanceKm     float64    `json:"distance_km"`
	PathLength     int        `json:"path_length"`
	CurrentFix     *Fix       `json:"current_fix,omitempty"`
	MineCount      int        `json:"mine_count"`
	OthersCount    int        `json:"others_count"`
	Realtime       string     `json:"realtime"`
	AreaKey        string     `json:"area_key,omitempty"`
	RealtimeErr    string     `json:"realtime_error,omitempty"`
}

// Footprint is one finished walk as stored in the activity journal.
type Footprint struct {
	WalkID          string    `json:"walk_id"`
	DogID           DogID     `json:"dog_id"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DistanceKm      float64   `json:"distance_km"`
	DurationSeconds int       `json:"duration_seconds"`
	ImageKey        string    `json:"image_key"`
	OccupiedBlocks  int       `json:"occupied_blocks"`
}
