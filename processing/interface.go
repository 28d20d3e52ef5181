package processing

import (
	"github.com/pdok/quadraster/quadtree"
)

// Item is one query on its way through the pipeline.
// Err is set when the query could not be read or rastered, Result is only valid without Err.
type Item struct {
	Seq    int
	Query  quadtree.Query
	Result quadtree.Result
	Err    error
}

// Source sends items with a Query (or an Err) and closes the channel when done
type Source interface {
	ReadQueries(chan<- Item)
}

type Target interface {
	WriteResults(<-chan Item) error
}

type RasterFunc func(quadtree.Query) (quadtree.Result, error)
