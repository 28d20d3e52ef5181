package quadtree

import (
	"math"

	"github.com/go-spatial/geom"
)

// Bounds is a lon/lat box given by its upper left and lower right corners.
type Bounds struct {
	ULLon float64
	ULLat float64
	LRLon float64
	LRLat float64
}

// LonDPP is the longitudinal distance per pixel when these bounds are drawn width pixels wide.
func (b Bounds) LonDPP(width float64) float64 {
	return math.Abs(b.ULLon-b.LRLon) / width
}

// Intersects reports whether b and other overlap. Boxes that only share an edge do not.
// other is taken as is: its upper left is expected to be north west of its lower right.
func (b Bounds) Intersects(other Bounds) bool {
	return b.LRLon > other.ULLon &&
		b.ULLon < other.LRLon &&
		b.LRLat < other.ULLat &&
		b.ULLat > other.LRLat
}

// Extent returns b as minx (lon), miny (lat), maxx, maxy.
func (b Bounds) Extent() geom.Extent {
	return geom.Extent{
		math.Min(b.ULLon, b.LRLon),
		math.Min(b.ULLat, b.LRLat),
		math.Max(b.ULLon, b.LRLon),
		math.Max(b.ULLat, b.LRLat),
	}
}

// quadrant halves b into the quadrant selected by digit.
// Longitudes only ever depend on the column bits of a path, latitudes on the row bits,
// so tiles in one column share bit identical longitudes.
func (b Bounds) quadrant(digit byte) (Bounds, bool) {
	midLon := (b.ULLon + b.LRLon) / 2
	midLat := (b.ULLat + b.LRLat) / 2
	switch digit {
	case '1':
		b.LRLon, b.LRLat = midLon, midLat
	case '2':
		b.ULLon, b.LRLat = midLon, midLat
	case '3':
		b.ULLat, b.LRLon = midLat, midLon
	case '4':
		b.ULLon, b.ULLat = midLon, midLat
	default:
		return b, false
	}
	return b, true
}
