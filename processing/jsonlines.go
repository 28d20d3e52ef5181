package processing

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/pdok/quadraster/quadtree"
)

// LineSource reads one query per line. Empty lines and lines starting with # are skipped.
type LineSource struct {
	Reader io.Reader
	Parse  func(line string) (quadtree.Query, error)
}

func (s LineSource) ReadQueries(items chan<- Item) {
	defer close(items)
	scanner := bufio.NewScanner(s.Reader)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		q, err := s.Parse(line)
		if err != nil {
			err = fmt.Errorf("line %d: %w", lineNo, err)
		}
		items <- Item{Query: q, Err: err}
	}
	if err := scanner.Err(); err != nil {
		items <- Item{Err: fmt.Errorf("reading queries: %w", err)}
	}
}

// JSONLinesTarget writes one JSON object per result. Format turns a successful item into
// the object to write, items with an error become {"query_success":false,"error":...}.
type JSONLinesTarget struct {
	Writer io.Writer
	Format func(quadtree.Result) any
}

func (t JSONLinesTarget) WriteResults(items <-chan Item) error {
	encoder := json.NewEncoder(t.Writer)
	for item := range items {
		var out any
		if item.Err != nil {
			failure := orderedmap.New[string, any]()
			failure.Set("query_success", false)
			failure.Set("error", item.Err.Error())
			out = failure
		} else {
			out = t.Format(item.Result)
		}
		if err := encoder.Encode(out); err != nil {
			return err
		}
	}
	return nil
}
