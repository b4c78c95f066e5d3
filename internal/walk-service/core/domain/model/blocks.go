package model

import "time"

type DogID int64

// Cell is the current ownership of one grid cell.
type Cell struct {
	ID         string    `json:"id"`
	OwnerID    DogID     `json:"owner_id"`
	OccupiedAt time.Time `json:"occupied_at"`
}

// BlockSnapshot is a consistent copy of the block state at one instant.
type BlockSnapshot struct {
	Mine   []Cell `json:"mine"`
	Others []Cell `json:"others"`
}
