package geogrid

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"pawwalk/internal/walk-service/core/domain/model"
)

// DefaultCellSizeDeg must match the size the server assigns blocks with.
const DefaultCellSizeDeg = 0.00072

const (
	cellIDPrefix = "P_"
	cellIDDigits = 6
	// keeps a parsed origin on its own side of the floor
	snapEpsilon = 1e-9
)

var ErrInvalidCellID = errors.New("invalid cell id")

// CellIDOf snaps p to the grid origin of its cell and encodes it as
// "P_<lat>_<lng>" with six decimals.
func CellIDOf(p model.GeoPoint, cellSizeDeg float64) string {
	lat0 := snap(p.Lat, cellSizeDeg)
	lng0 := snap(p.Lng, cellSizeDeg)
	return cellIDPrefix + formatCoord(lat0) + "_" + formatCoord(lng0)
}

// ParseCellID returns the grid origin (south-west corner) encoded in id.
func ParseCellID(id string) (model.GeoPoint, error) {
	rest, ok := strings.CutPrefix(id, cellIDPrefix)
	if !ok {
		return model.GeoPoint{}, fmt.Errorf("%w: %q", ErrInvalidCellID, id)
	}
	latStr, lngStr, ok := strings.Cut(rest, "_")
	if !ok {
		return model.GeoPoint{}, fmt.Errorf("%w: %q", ErrInvalidCellID, id)
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return model.GeoPoint{}, fmt.Errorf("%w: %q", ErrInvalidCellID, id)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return model.GeoPoint{}, fmt.Errorf("%w: %q", ErrInvalidCellID, id)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return model.GeoPoint{}, fmt.Errorf("%w: %q out of range", ErrInvalidCellID, id)
	}
	return model.GeoPoint{Lat: lat, Lng: lng}, nil
}

// ValidCellID reports whether id parses.
func ValidCellID(id string) bool {
	_, err := ParseCellID(id)
	return err == nil
}

// CellCorners returns the rectangle of the cell as SW, NW, NE, SE. The
// longitude span is widened by 1/cos(lat) so cells stay roughly square on the
// ground.
func CellCorners(id string, cellSizeDeg float64) ([4]model.GeoPoint, error) {
	origin, err := ParseCellID(id)
	if err != nil {
		return [4]model.GeoPoint{}, err
	}
	lngSize := LngSpan(origin.Lat, cellSizeDeg)
	return [4]model.GeoPoint{
		{Lat: origin.Lat, Lng: origin.Lng},
		{Lat: origin.Lat + cellSizeDeg, Lng: origin.Lng},
		{Lat: origin.Lat + cellSizeDeg, Lng: origin.Lng + lngSize},
		{Lat: origin.Lat, Lng: origin.Lng + lngSize},
	}, nil
}

// LngSpan is the longitude width of a cell whose south edge sits at lat.
func LngSpan(lat, cellSizeDeg float64) float64 {
	return cellSizeDeg / math.Cos(toRad(lat))
}

func snap(v, size float64) float64 {
	return math.Floor(v/size+snapEpsilon) * size
}

func formatCoord(v float64) string {
	s := strconv.FormatFloat(v, 'f', cellIDDigits, 64)
	if s == "-0.000000" {
		return "0.000000"
	}
	return s
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
