package quadtree

import (
	"fmt"
	"testing"

	"github.com/go-spatial/geom/slippy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/quadraster/mathhelp"
)

func TestFromIndex(t *testing.T) {
	tests := []struct {
		n    int
		want Tile
	}{
		{n: 0, want: Root},
		{n: 1, want: "1"},
		{n: 4, want: "4"},
		{n: 5, want: "11"},
		{n: 8, want: "14"},
		{n: 9, want: "21"},
		{n: 20, want: "44"},
		{n: 21, want: "111"},
		{n: 84, want: "444"},
		{n: 5460, want: "444444"},
		{n: 5461, want: "1111111"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("FromIndex(%d)", tt.n), func(t *testing.T) {
			got, err := FromIndex(tt.n)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFromIndex_negative(t *testing.T) {
	_, err := FromIndex(-1)
	require.ErrorIs(t, err, ErrAddressing)
}

func TestIndex_bijection(t *testing.T) {
	total := int(mathhelp.TileCount(5))
	seen := make(map[Tile]struct{}, total)
	for n := 0; n < total; n++ {
		tile, err := FromIndex(n)
		require.NoError(t, err)
		index, err := tile.Index()
		require.NoError(t, err)
		require.Equalf(t, n, index, "tile %v", tile)

		// every level takes up its own index range
		depth := uint(tile.Depth())
		require.GreaterOrEqual(t, uint(n), mathhelp.LevelOffset(depth))
		require.Less(t, uint(n), mathhelp.LevelOffset(depth+1))

		_, dupe := seen[tile]
		require.False(t, dupe)
		seen[tile] = struct{}{}
	}
}

func TestIndex_invalidDigit(t *testing.T) {
	_, err := Tile("105").Index()
	require.ErrorIs(t, err, ErrAddressing)
}

func TestParseTile(t *testing.T) {
	tests := []struct {
		s       string
		want    Tile
		wantErr bool
	}{
		{s: "root", want: Root},
		{s: "1", want: "1"},
		{s: "4321", want: "4321"},
		{s: "", wantErr: true},
		{s: "0", wantErr: true},
		{s: "125", wantErr: true},
		{s: "1a", wantErr: true},
		{s: "11111111111111111111111111111111", wantErr: true}, // 32 deep
	}
	for _, tt := range tests {
		t.Run(tt.s, func(t *testing.T) {
			got, err := ParseTile(tt.s)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrAddressing)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.s, got.String())
		})
	}
}

func TestTile_Depth(t *testing.T) {
	assert.Equal(t, 0, Root.Depth())
	assert.Equal(t, 0, Tile("").Depth())
	assert.Equal(t, 1, Tile("3").Depth())
	assert.Equal(t, 7, Tile("2143411").Depth())
}

func TestTile_ParentChildren(t *testing.T) {
	_, ok := Root.Parent()
	assert.False(t, ok)

	assert.Equal(t, [4]Tile{"1", "2", "3", "4"}, Root.Children())
	assert.Equal(t, [4]Tile{"231", "232", "233", "234"}, Tile("23").Children())

	for _, parent := range []Tile{Root, "4", "3142"} {
		for _, child := range parent.Children() {
			got, ok := child.Parent()
			require.True(t, ok)
			require.Equal(t, parent, got)
			require.Equal(t, parent.Depth()+1, child.Depth())
		}
	}
}

func TestTile_Right(t *testing.T) {
	tests := []struct {
		tile    Tile
		want    Tile
		wantErr bool
	}{
		{tile: "1", want: "2"},
		{tile: "3", want: "4"},
		{tile: "12", want: "21"},
		{tile: "14", want: "23"},
		{tile: "2143412", want: "2143421"},
		{tile: "2", wantErr: true},
		{tile: "4", wantErr: true},
		{tile: "24", wantErr: true},
		{tile: Root, wantErr: true},
		{tile: "19", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(string(tt.tile), func(t *testing.T) {
			got, err := tt.tile.Right()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrAddressing)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestTile_Down(t *testing.T) {
	tests := []struct {
		tile    Tile
		want    Tile
		wantErr bool
	}{
		{tile: "1", want: "3"},
		{tile: "2", want: "4"},
		{tile: "13", want: "31"},
		{tile: "24", want: "42"},
		{tile: "2143414", want: "2143432"},
		{tile: "3", wantErr: true},
		{tile: "4", wantErr: true},
		{tile: "43", wantErr: true},
		{tile: Root, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(string(tt.tile), func(t *testing.T) {
			got, err := tt.tile.Down()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrAddressing)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestTile_XY(t *testing.T) {
	tests := []struct {
		tile Tile
		col  uint
		row  uint
	}{
		{tile: Root, col: 0, row: 0},
		{tile: "1", col: 0, row: 0},
		{tile: "2", col: 1, row: 0},
		{tile: "3", col: 0, row: 1},
		{tile: "4", col: 1, row: 1},
		{tile: "14", col: 1, row: 1},
		{tile: "23", col: 2, row: 1},
		{tile: "41", col: 2, row: 2},
		{tile: "444", col: 7, row: 7},
	}
	for _, tt := range tests {
		t.Run(string(tt.tile), func(t *testing.T) {
			col, row, err := tt.tile.XY()
			require.NoError(t, err)
			require.Equal(t, [2]uint{tt.col, tt.row}, [2]uint{col, row})
		})
	}
	_, _, err := Tile("17").XY()
	require.ErrorIs(t, err, ErrAddressing)
}

// moving right or down changes exactly one of column and row by one
func TestTile_navigationAgreesWithXY(t *testing.T) {
	for n := 1; n < int(mathhelp.TileCount(4)); n++ {
		tile, err := FromIndex(n)
		require.NoError(t, err)
		col, row, err := tile.XY()
		require.NoError(t, err)
		size := mathhelp.Pow2(uint(tile.Depth()))

		right, err := tile.Right()
		if col == size-1 {
			require.ErrorIs(t, err, ErrAddressing)
		} else {
			require.NoError(t, err)
			rCol, rRow, err := right.XY()
			require.NoError(t, err)
			require.Equal(t, [2]uint{col + 1, row}, [2]uint{rCol, rRow})
		}

		down, err := tile.Down()
		if row == size-1 {
			require.ErrorIs(t, err, ErrAddressing)
		} else {
			require.NoError(t, err)
			dCol, dRow, err := down.XY()
			require.NoError(t, err)
			require.Equal(t, [2]uint{col, row + 1}, [2]uint{dCol, dRow})
		}
	}
}

func TestTile_Slippy(t *testing.T) {
	got, err := Tile("2143411").Slippy()
	require.NoError(t, err)
	col, row, err := Tile("2143411").XY()
	require.NoError(t, err)
	require.Equal(t, &slippy.Tile{Z: 7, X: col, Y: row}, got)

	got, err = Root.Slippy()
	require.NoError(t, err)
	require.Equal(t, &slippy.Tile{Z: 0, X: 0, Y: 0}, got)
}
