package snapshot

import (
	"math"

	"pawwalk/internal/geogrid"
	"pawwalk/internal/walk-service/core/domain/model"
)

const (
	MinZoom     = 3
	MaxZoom     = 19
	DefaultZoom = 17
)

// DefaultCenter is Seoul City Hall.
var DefaultCenter = model.GeoPoint{Lat: 37.5665, Lng: 126.9780}

// Frame is the map viewport chosen for one snapshot.
type Frame struct {
	Center model.GeoPoint
	Zoom   int
}

// FrameFor fits the path, every cell corner and the current position into
// a canvas of canvasSize pixels minus padding on each side.
func FrameFor(input model.SnapshotInput, cellSizeDeg float64, canvasSize, padding int) Frame {
	var b geogrid.Bounds
	for _, p := range input.Path {
		b.Extend(p)
	}
	for _, cells := range [][]model.Cell{input.Mine, input.Others} {
		for _, c := range cells {
			corners, err := geogrid.CellCorners(c.ID, cellSizeDeg)
			if err != nil {
				continue
			}
			for _, p := range corners {
				b.Extend(p)
			}
		}
	}
	if input.Current != nil {
		b.Extend(*input.Current)
	}

	if b.Empty() {
		return Frame{Center: roundCenter(DefaultCenter), Zoom: DefaultZoom}
	}
	return Frame{
		Center: roundCenter(b.Center()),
		Zoom:   zoomFor(b.SpanMeters(), canvasSize-2*padding),
	}
}

func zoomFor(spanMeters float64, available int) int {
	if spanMeters <= 0 || available <= 0 {
		return DefaultZoom
	}
	spanPx := spanMeters / geogrid.MetersPerPixelAtReference
	zoom := geogrid.ReferenceZoom + int(math.Floor(math.Log2(float64(available)/spanPx)))
	return min(max(zoom, MinZoom), MaxZoom)
}

// roundCenter keeps repeated snapshots of the same area on the same base map.
func roundCenter(p model.GeoPoint) model.GeoPoint {
	return model.GeoPoint{
		Lat: math.Round(p.Lat*1e4) / 1e4,
		Lng: math.Round(p.Lng*1e4) / 1e4,
	}
}
