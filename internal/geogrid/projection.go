package geogrid

import (
	"math"

	"pawwalk/internal/walk-service/core/domain/model"
)

const (
	MetersPerDegree = 111000.0

	// ReferenceZoom and MetersPerPixelAtReference approximate the static map
	// provider's scale; other zoom levels halve or double it per step.
	ReferenceZoom             = 16
	MetersPerPixelAtReference = 2.4
)

type Pixel struct {
	X float64
	Y float64
}

// MetersPerPixel returns the ground resolution at zoom.
func MetersPerPixel(zoom int) float64 {
	return MetersPerPixelAtReference * math.Pow(2, float64(ReferenceZoom-zoom))
}

// ProjectToPixel places p on a square canvas of canvasSize pixels centred on
// center. It is a flat approximation, good for a few kilometres only.
func ProjectToPixel(p, center model.GeoPoint, zoom, canvasSize int) Pixel {
	mpp := MetersPerPixel(zoom)
	dx := (p.Lng - center.Lng) * MetersPerDegree * math.Cos(toRad(center.Lat)) / mpp
	dy := (p.Lat - center.Lat) * MetersPerDegree / mpp
	half := float64(canvasSize) / 2
	return Pixel{X: half + dx, Y: half - dy}
}
