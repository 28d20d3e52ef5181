// Package quadtree selects the pre-rendered tiles of a fixed quadtree that cover a lon/lat query
// box at the coarsest resolution that is still sharp enough, and lays them out as a grid.
//
// Tiles are numbered breadth first, level by level, starting with the root at 0.
// On every level the tiles are in Z-order, so the smallest and largest index in any
// rectangular selection are its upper left and lower right tile.
package quadtree

import (
	"fmt"

	"github.com/umpc/go-sortedmap"

	"github.com/pdok/quadraster/mathhelp"
)

// QuadTree describes a pre-rendered tile pyramid. Set up once, read only afterwards.
type QuadTree struct {
	root      Bounds
	tileWidth float64
	maxDepth  int
}

// Query asks for the tiles covering Bounds when drawn Width pixels wide.
type Query struct {
	Bounds
	Width float64
}

// LonDPP is the resolution the query asks for.
func (q Query) LonDPP() float64 {
	return q.Bounds.LonDPP(q.Width)
}

// Result of a Raster call. When Success is false none of the other fields are set.
type Result struct {
	Success bool
	// Bounds is the union of all tiles in Grid.
	Bounds Bounds
	Depth  int
	// Grid holds rows from north to south, each from west to east.
	Grid [][]Tile
}

// New sets up a quadtree over root, with tiles tileWidth pixels wide and levels 0 up to and including maxDepth.
func New(root Bounds, tileWidth uint, maxDepth int) (*QuadTree, error) {
	if tileWidth == 0 {
		return nil, fmt.Errorf("%w: tile width should be positive", ErrConfiguration)
	}
	if maxDepth < 0 || maxDepth > MaxDepth {
		return nil, fmt.Errorf("%w: max depth %d not in [0, %d]", ErrConfiguration, maxDepth, MaxDepth)
	}
	if !(root.ULLon < root.LRLon) || !(root.ULLat > root.LRLat) {
		return nil, fmt.Errorf("%w: root bounds %+v should have their upper left north west of their lower right", ErrConfiguration, root)
	}
	return &QuadTree{
		root:      root,
		tileWidth: float64(tileWidth),
		maxDepth:  maxDepth,
	}, nil
}

func (qt *QuadTree) Root() Bounds {
	return qt.root
}

func (qt *QuadTree) TileWidth() uint {
	return uint(qt.tileWidth)
}

func (qt *QuadTree) MaxDepth() int {
	return qt.maxDepth
}

// TileCount is the number of tiles in the whole tree.
func (qt *QuadTree) TileCount() int {
	return int(mathhelp.TileCount(uint(qt.maxDepth)))
}

// BoundsOf computes the bounds of t by halving the root bounds once per digit.
func (qt *QuadTree) BoundsOf(t Tile) (Bounds, error) {
	b := qt.root
	if t.IsRoot() {
		return b, nil
	}
	for i := 0; i < len(t); i++ {
		var ok bool
		if b, ok = b.quadrant(t[i]); !ok {
			return Bounds{}, fmt.Errorf("%w: invalid quadrant digit %q in tile %q", ErrGeometry, t[i], string(t))
		}
	}
	return b, nil
}

// LonDPP is the resolution of tile t.
func (qt *QuadTree) LonDPP(t Tile) (float64, error) {
	b, err := qt.BoundsOf(t)
	if err != nil {
		return 0, err
	}
	return b.LonDPP(qt.tileWidth), nil
}

// LevelLonDPP is the resolution of every tile on the given level.
func (qt *QuadTree) LevelLonDPP(level int) float64 {
	return qt.root.LonDPP(qt.tileWidth) / float64(mathhelp.Pow2(uint(level)))
}

// Select returns the tiles intersecting the query on the shallowest level that is sharp enough
// (or the deepest level there is), sorted by index.
func (qt *QuadTree) Select(q Query) ([]Tile, error) {
	// values are the indexes, so the keys come out in index order
	accepted := sortedmap.New(16, func(i, j interface{}) bool {
		return i.(int) < j.(int)
	})
	if err := qt.selectTiles(Root, q.Bounds, q.LonDPP(), accepted); err != nil {
		return nil, err
	}
	keys := accepted.Keys()
	tiles := make([]Tile, len(keys))
	for i, key := range keys {
		tiles[i] = key.(Tile)
	}
	return tiles, nil
}

func (qt *QuadTree) selectTiles(node Tile, query Bounds, queryLonDPP float64, accepted *sortedmap.SortedMap) error {
	bounds, err := qt.BoundsOf(node)
	if err != nil {
		return err
	}
	if !bounds.Intersects(query) {
		return nil
	}
	if node.Depth() >= qt.maxDepth || bounds.LonDPP(qt.tileWidth) <= queryLonDPP {
		index, err := node.Index()
		if err != nil {
			return err
		}
		accepted.Insert(node, index)
		return nil
	}
	for _, child := range node.Children() {
		if err := qt.selectTiles(child, query, queryLonDPP, accepted); err != nil {
			return err
		}
	}
	return nil
}

// Raster selects the tiles for q and lays them out in a grid.
// A query that covers nothing, or has no positive width, gives an unsuccessful Result and no error.
// Errors are reserved for inconsistencies in the tree itself.
func (qt *QuadTree) Raster(q Query) (Result, error) {
	if !(q.Width > 0) {
		return Result{}, nil
	}
	tiles, err := qt.Select(q)
	if err != nil {
		return Result{}, err
	}
	if len(tiles) == 0 {
		return Result{}, nil
	}
	upperLeft, lowerRight := tiles[0], tiles[len(tiles)-1]

	grid, err := qt.assemble(upperLeft, lowerRight)
	if err != nil {
		return Result{}, err
	}
	if err = checkGrid(grid, tiles); err != nil {
		return Result{}, err
	}

	ulBounds, err := qt.BoundsOf(upperLeft)
	if err != nil {
		return Result{}, err
	}
	lrBounds, err := qt.BoundsOf(lowerRight)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Success: true,
		Bounds: Bounds{
			ULLon: ulBounds.ULLon,
			ULLat: ulBounds.ULLat,
			LRLon: lrBounds.LRLon,
			LRLat: lrBounds.LRLat,
		},
		Depth: upperLeft.Depth(),
		Grid:  grid,
	}, nil
}

// assemble walks from upperLeft to lowerRight, row by row.
func (qt *QuadTree) assemble(upperLeft, lowerRight Tile) ([][]Tile, error) {
	lr, err := qt.BoundsOf(lowerRight)
	if err != nil {
		return nil, err
	}
	lastColumn := func(b Bounds) bool { return b.ULLon == lr.ULLon }
	lastRow := func(b Bounds) bool { return b.ULLat == lr.ULLat }

	rowStarts, err := qt.walk(upperLeft, Tile.Down, lastRow)
	if err != nil {
		return nil, err
	}
	grid := make([][]Tile, 0, len(rowStarts))
	for _, rowStart := range rowStarts {
		row, err := qt.walk(rowStart, Tile.Right, lastColumn)
		if err != nil {
			return nil, err
		}
		if len(grid) > 0 && len(row) != len(grid[0]) {
			return nil, fmt.Errorf("%w: row starting at %v has %d tiles, expected %d", ErrGeometry, rowStart, len(row), len(grid[0]))
		}
		grid = append(grid, row)
	}
	if last := grid[len(grid)-1]; last[len(last)-1] != lowerRight {
		return nil, fmt.Errorf("%w: grid from %v ends at %v instead of %v", ErrGeometry, upperLeft, last[len(last)-1], lowerRight)
	}
	return grid, nil
}

// walk steps from start until done holds for the bounds of the current tile,
// returning every tile on the way (start and the last one included).
func (qt *QuadTree) walk(start Tile, next func(Tile) (Tile, error), done func(Bounds) bool) ([]Tile, error) {
	limit := int(mathhelp.Pow2(uint(start.Depth())))
	tiles := []Tile{start}
	current := start
	for {
		b, err := qt.BoundsOf(current)
		if err != nil {
			return nil, err
		}
		if done(b) {
			return tiles, nil
		}
		if len(tiles) >= limit {
			return nil, fmt.Errorf("%w: walked across the whole level from %v without reaching the end", ErrGeometry, start)
		}
		current, err = next(current)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGeometry, err)
		}
		tiles = append(tiles, current)
	}
}

// checkGrid verifies that the grid covers exactly the selected tiles:
// one level, all inside the corners, and as many as the grid has cells.
func checkGrid(grid [][]Tile, selected []Tile) error {
	upperLeft := grid[0][0]
	lowerRight := grid[len(grid)-1][len(grid[0])-1]
	minCol, minRow, err := upperLeft.XY()
	if err != nil {
		return err
	}
	maxCol, maxRow, err := lowerRight.XY()
	if err != nil {
		return err
	}
	for _, t := range selected {
		if t.Depth() != upperLeft.Depth() {
			return fmt.Errorf("%w: selected tiles on different levels: %v and %v", ErrGeometry, upperLeft, t)
		}
		col, row, err := t.XY()
		if err != nil {
			return err
		}
		if !mathhelp.BetweenInc(col, minCol, maxCol) || !mathhelp.BetweenInc(row, minRow, maxRow) {
			return fmt.Errorf("%w: selected tile %v lies outside the grid from %v to %v", ErrGeometry, t, upperLeft, lowerRight)
		}
	}
	if cells := len(grid) * len(grid[0]); cells != len(selected) {
		return fmt.Errorf("%w: grid has %d cells but %d tiles were selected", ErrGeometry, cells, len(selected))
	}
	return nil
}

// LevelInfo summarizes one level of the tree.
type LevelInfo struct {
	Level     int
	Tiles     int
	FirstTile Tile
	LonDPP    float64
}

// Levels describes every level of the tree, root first.
func (qt *QuadTree) Levels() []LevelInfo {
	levels := make([]LevelInfo, 0, qt.maxDepth+1)
	for level := 0; level <= qt.maxDepth; level++ {
		first, _ := FromIndex(int(mathhelp.LevelOffset(uint(level))))
		levels = append(levels, LevelInfo{
			Level:     level,
			Tiles:     int(mathhelp.Pow4(uint(level))),
			FirstTile: first,
			LonDPP:    qt.LevelLonDPP(level),
		})
	}
	return levels
}
