// Package server answers raster queries over HTTP, in the shape map front ends expect.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/pdok/quadraster/quadtree"
	"github.com/pdok/quadraster/tileset"
)

// Server serves the raster endpoint for one tile set
type Server struct {
	quadTree *quadtree.QuadTree
	tileSet  tileset.TileSet
	imgRoot  string
	addr     string
}

func NewServer(qt *quadtree.QuadTree, ts tileset.TileSet, imgRoot string, addr string) *Server {
	return &Server{
		quadTree: qt,
		tileSet:  ts,
		imgRoot:  imgRoot,
		addr:     addr,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/raster", s.handleRaster)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// ListenAndServe blocks until ctx is done or the listener fails
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		log.Printf("serving %s on %s", s.tileSet.ID, s.addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// ParseQuery reads ullon, ullat, lrlon, lrlat and w from params. h is checked but not used.
func ParseQuery(params map[string][]string) (quadtree.Query, error) {
	var q quadtree.Query
	var h float64
	for _, p := range []struct {
		name     string
		dst      *float64
		optional bool
	}{
		{name: "ullon", dst: &q.ULLon},
		{name: "ullat", dst: &q.ULLat},
		{name: "lrlon", dst: &q.LRLon},
		{name: "lrlat", dst: &q.LRLat},
		{name: "w", dst: &q.Width},
		{name: "h", dst: &h, optional: true},
	} {
		values := params[p.name]
		if len(values) == 0 {
			if p.optional {
				continue
			}
			return q, fmt.Errorf("missing parameter %q", p.name)
		}
		f, err := strconv.ParseFloat(values[0], 64)
		if err != nil {
			return q, fmt.Errorf("parameter %q is not a number: %q", p.name, values[0])
		}
		*p.dst = f
	}
	return q, nil
}

// RasterResponse turns a result into the JSON object front ends expect,
// with the tiles in render_grid replaced by their image locators
func RasterResponse(result quadtree.Result, ts tileset.TileSet, imgRoot string) *orderedmap.OrderedMap[string, any] {
	response := orderedmap.New[string, any]()
	if !result.Success {
		response.Set("query_success", false)
		return response
	}
	grid := make([][]string, len(result.Grid))
	for i, row := range result.Grid {
		grid[i] = make([]string, len(row))
		for j, tile := range row {
			grid[i][j] = ts.Locator(imgRoot, tile)
		}
	}
	response.Set("render_grid", grid)
	response.Set("raster_ul_lon", result.Bounds.ULLon)
	response.Set("raster_ul_lat", result.Bounds.ULLat)
	response.Set("raster_lr_lon", result.Bounds.LRLon)
	response.Set("raster_lr_lat", result.Bounds.LRLat)
	response.Set("depth", result.Depth)
	response.Set("query_success", true)
	return response
}

func (s *Server) handleRaster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q, err := ParseQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := s.quadTree.Raster(q)
	if err != nil {
		log.Printf("raster %s failed: %v", r.URL.RawQuery, err)
		http.Error(w, "could not assemble raster", http.StatusInternalServerError)
		return
	}
	body, err := json.Marshal(RasterResponse(result, s.tileSet, s.imgRoot))
	if err != nil {
		log.Printf("could not encode raster response: %v", err)
		http.Error(w, "could not encode raster", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
