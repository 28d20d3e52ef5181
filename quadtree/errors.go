package quadtree

import "errors"

var (
	// ErrAddressing signals a tile identity or index that cannot exist in the tree,
	// or a neighbour step off the edge of the tree.
	ErrAddressing = errors.New("quadtree addressing error")
	// ErrGeometry signals bounds that cannot be computed or a raster grid that
	// does not line up with the selected tiles.
	ErrGeometry = errors.New("quadtree geometry error")
	// ErrConfiguration signals a quadtree that cannot be set up.
	ErrConfiguration = errors.New("quadtree configuration error")
)
