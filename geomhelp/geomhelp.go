// Package geomhelp renders tile extents as WKT, for debugging/visualising a raster.
package geomhelp

import (
	"fmt"
	"io"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkt"
	"github.com/muesli/reflow/truncate"
)

// LabeledExtent is an extent with a label to print in front of it
type LabeledExtent struct {
	Label  string
	Extent geom.Extent
}

// ExtentToPolygon returns the extent as a closed polygon, counterclockwise from minx/miny.
func ExtentToPolygon(e geom.Extent) geom.Polygon {
	return geom.Polygon{{
		{e.MinX(), e.MinY()},
		{e.MaxX(), e.MinY()},
		{e.MaxX(), e.MaxY()},
		{e.MinX(), e.MaxY()},
		{e.MinX(), e.MinY()},
	}}
}

// WktMustEncode encodes g, truncated to maxLen (0 is unlimited)
func WktMustEncode(g geom.Geometry, maxLen uint) string {
	if maxLen == 0 {
		return wkt.MustEncode(g)
	}
	return truncate.StringWithTail(wkt.MustEncode(g), maxLen, "...")
}

// WriteWkt writes one "label<TAB>WKT" line per extent
func WriteWkt(w io.Writer, extents []LabeledExtent, maxLen uint) error {
	for _, e := range extents {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", e.Label, WktMustEncode(ExtentToPolygon(e.Extent), maxLen)); err != nil {
			return err
		}
	}
	return nil
}
