package model

// SnapshotInput is everything drawn on a walk-completion image.
type SnapshotInput struct {
	Path    []GeoPoint `json:"path"`
	Mine    []Cell     `json:"mine"`
	Others  []Cell     `json:"others"`
	Current *GeoPoint  `json:"current,omitempty"`
}

// BaseMapRequest mirrors the query of the static map proxy.
type BaseMapRequest struct {
	Center GeoPoint
	Level  int
	Width  int
	Height int
	Format string
}
