package snapshot

import (
	"testing"

	"pawwalk/internal/geogrid"
	"pawwalk/internal/walk-service/core/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestFrameForEmptyInput(t *testing.T) {
	f := FrameFor(model.SnapshotInput{}, geogrid.DefaultCellSizeDeg, 600, 40)
	assert.Equal(t, Frame{Center: DefaultCenter, Zoom: DefaultZoom}, f)
}

func TestFrameForSinglePoint(t *testing.T) {
	cur := model.GeoPoint{Lat: 37.123456, Lng: 127.654321}
	f := FrameFor(model.SnapshotInput{Current: &cur}, geogrid.DefaultCellSizeDeg, 600, 40)
	assert.Equal(t, DefaultZoom, f.Zoom)
	assert.Equal(t, model.GeoPoint{Lat: 37.1235, Lng: 127.6543}, f.Center)
}

func TestFrameForFitsPath(t *testing.T) {
	// ~1 km north-south
	path := []model.GeoPoint{{Lat: 37.5620, Lng: 126.978}, {Lat: 37.5710, Lng: 126.978}}
	f := FrameFor(model.SnapshotInput{Path: path}, geogrid.DefaultCellSizeDeg, 600, 40)

	assert.Equal(t, 16, f.Zoom)
	assert.InDelta(t, 37.5665, f.Center.Lat, 1e-9)

	for _, p := range path {
		px := geogrid.ProjectToPixel(p, f.Center, f.Zoom, 600)
		assert.GreaterOrEqual(t, px.Y, 40.0)
		assert.LessOrEqual(t, px.Y, 560.0)
	}
}

func TestZoomClamp(t *testing.T) {
	assert.Equal(t, MaxZoom, zoomFor(1, 520))
	assert.Equal(t, MinZoom, zoomFor(5_000_000, 520))
	assert.Equal(t, DefaultZoom, zoomFor(0, 520))
}

func TestFrameIncludesCellCorners(t *testing.T) {
	cells := []model.Cell{{ID: "P_37.566000_126.977760"}, {ID: "broken"}}
	f := FrameFor(model.SnapshotInput{Others: cells}, geogrid.DefaultCellSizeDeg, 600, 40)
	assert.Equal(t, MaxZoom, f.Zoom)
	assert.InDelta(t, 37.5664, f.Center.Lat, 1e-4)
}
