package geomhelp

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtentToPolygon(t *testing.T) {
	got := ExtentToPolygon(geom.Extent{0, 1, 2, 3})
	want := geom.Polygon{{{0, 1}, {2, 1}, {2, 3}, {0, 3}, {0, 1}}}
	assert.Equal(t, want, got)
}

func TestWktMustEncode(t *testing.T) {
	full := WktMustEncode(geom.Point{1, 2}, 0)
	assert.True(t, strings.HasPrefix(full, "POINT"))

	truncated := WktMustEncode(ExtentToPolygon(geom.Extent{0, 1, 2, 3}), 12)
	assert.LessOrEqual(t, len(truncated), 12)
	assert.True(t, strings.HasSuffix(truncated, "..."))
}

func TestWriteWkt(t *testing.T) {
	var buf bytes.Buffer
	err := WriteWkt(&buf, []LabeledExtent{
		{Label: "1", Extent: geom.Extent{0, 1, 1, 2}},
		{Label: "2", Extent: geom.Extent{1, 1, 2, 2}},
	}, 0)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "1\tPOLYGON"))
	assert.True(t, strings.HasPrefix(lines[1], "2\tPOLYGON"))
}
