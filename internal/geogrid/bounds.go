package geogrid

import (
	"math"

	"pawwalk/internal/walk-service/core/domain/model"
)

// Bounds is a lat/lng bounding box. The zero value is empty.
type Bounds struct {
	MinLat, MinLng float64
	MaxLat, MaxLng float64
	set            bool
}

func (b *Bounds) Extend(p model.GeoPoint) {
	if !b.set {
		b.MinLat, b.MaxLat = p.Lat, p.Lat
		b.MinLng, b.MaxLng = p.Lng, p.Lng
		b.set = true
		return
	}
	b.MinLat = math.Min(b.MinLat, p.Lat)
	b.MaxLat = math.Max(b.MaxLat, p.Lat)
	b.MinLng = math.Min(b.MinLng, p.Lng)
	b.MaxLng = math.Max(b.MaxLng, p.Lng)
}

func (b *Bounds) Empty() bool {
	return !b.set
}

func (b *Bounds) Center() model.GeoPoint {
	return model.GeoPoint{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lng: (b.MinLng + b.MaxLng) / 2,
	}
}

// SpanMeters returns the larger of the box's width and height on the ground.
func (b *Bounds) SpanMeters() float64 {
	if !b.set {
		return 0
	}
	height := (b.MaxLat - b.MinLat) * MetersPerDegree
	width := (b.MaxLng - b.MinLng) * MetersPerDegree * math.Cos(toRad(b.Center().Lat))
	return math.Max(width, height)
}
