// Package tileset describes a directory of pre-rendered quadtree tiles: the area it covers,
// the width of its tiles and how its images are named.
package tileset

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/perimeterx/marshmallow"
	"golang.org/x/exp/maps"

	"github.com/pdok/quadraster/mathhelp"
	"github.com/pdok/quadraster/quadtree"
)

var ErrInvalidTileCount = errors.New("tile count does not match a complete quadtree")

var (
	//go:embed tilesets/*.json
	embeddedTileSetsJSONFS embed.FS
	embeddedTileSetsCache  = make(map[string]*TileSet)
	embeddedTileSetsMu     sync.Mutex
)

func LoadJSONTileSet(file string) (TileSet, error) {
	var ts TileSet
	tsJSON, err := os.ReadFile(file)
	if err != nil {
		return ts, err
	}
	err = json.Unmarshal(tsJSON, &ts)
	if err != nil {
		return ts, fmt.Errorf("could not read tile set %s: %w", file, err)
	}
	return ts, nil
}

func LoadEmbeddedTileSet(id string) (TileSet, error) {
	embeddedTileSetsMu.Lock()
	defer embeddedTileSetsMu.Unlock()

	var ts TileSet
	cached, ok := embeddedTileSetsCache[id]
	if ok {
		return *cached, nil
	}
	tsJSON, err := embeddedTileSetsJSONFS.ReadFile("tilesets/" + id + ".json")
	if err != nil {
		return ts, err
	}
	err = json.Unmarshal(tsJSON, &ts)
	if err != nil {
		return ts, err
	}
	embeddedTileSetsCache[id] = &ts
	return ts, nil
}

// EmbeddedTileSetIDs lists the tile sets that ship with the binary, sorted
func EmbeddedTileSetIDs() []string {
	entries, err := embeddedTileSetsJSONFS.ReadDir("tilesets")
	if err != nil {
		panic(err) // the embed pattern guarantees the dir
	}
	ids := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		ids[strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))] = struct{}{}
	}
	sorted := maps.Keys(ids)
	slices.Sort(sorted)
	return sorted
}

// TileSet is the configuration of one set of pre-rendered tiles.
type TileSet struct {
	// Tile set identifier
	ID string `validate:"required" json:"id"`
	// Title of this tile set, normally used for display to a human
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	// Width (and height) of every tile image in pixels
	TileWidth uint `default:"256" validate:"gt=0" json:"tileWidth"`
	// Extension of the tile images, without the dot
	ImageExtension string `default:"png" validate:"required,alphanum" json:"imageExtension"`
	// Area covered by the root tile
	BoundingBox quadtree.Bounds `json:"-"`
}

type boundingBoxJSON struct {
	UpperLeft  [2]float64 `json:"upperLeft"`
	LowerRight [2]float64 `json:"lowerRight"`
}

func (ts *TileSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TileSet            // not a pointer, because it would cause recursion to this function
		SpecialBoundingBox boundingBoxJSON `json:"boundingBox"`
	}{
		TileSet: *ts,
		SpecialBoundingBox: boundingBoxJSON{
			UpperLeft:  [2]float64{ts.BoundingBox.ULLon, ts.BoundingBox.ULLat},
			LowerRight: [2]float64{ts.BoundingBox.LRLon, ts.BoundingBox.LRLat},
		},
	})
}

func (ts *TileSet) UnmarshalJSON(data []byte) error {
	err := defaults.Set(ts)
	if err != nil {
		return err
	}

	specials, err := marshmallow.Unmarshal(data, ts, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}

	rawBoundingBox, ok := specials["boundingBox"]
	if !ok {
		return fmt.Errorf(`missing key "boundingBox"`)
	}
	ts.BoundingBox, err = unmarshalBoundingBox(rawBoundingBox)
	if err != nil {
		return err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err = validate.Struct(ts); err != nil {
		return err
	}
	bbox := ts.BoundingBox
	if !(bbox.ULLon < bbox.LRLon) || !(bbox.ULLat > bbox.LRLat) {
		return fmt.Errorf(`"boundingBox" upper left %v,%v should be north west of lower right %v,%v`,
			bbox.ULLon, bbox.ULLat, bbox.LRLon, bbox.LRLat)
	}
	return nil
}

// unmarshalBoundingBox accepts both {"upperLeft":[lon,lat],"lowerRight":[lon,lat]}
// and {"ullon":..,"ullat":..,"lrlon":..,"lrlat":..}
func unmarshalBoundingBox(raw interface{}) (quadtree.Bounds, error) {
	var bounds quadtree.Bounds
	rawMap, ok := raw.(map[string]interface{})
	if !ok {
		return bounds, fmt.Errorf(`"boundingBox" should be an object, not a %T`, raw)
	}

	if _, corners := rawMap["upperLeft"]; corners {
		ul, err := unmarshalLonLat(rawMap, "upperLeft")
		if err != nil {
			return bounds, err
		}
		lr, err := unmarshalLonLat(rawMap, "lowerRight")
		if err != nil {
			return bounds, err
		}
		return quadtree.Bounds{ULLon: ul[0], ULLat: ul[1], LRLon: lr[0], LRLat: lr[1]}, nil
	}

	var err error
	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"ullon", &bounds.ULLon},
		{"ullat", &bounds.ULLat},
		{"lrlon", &bounds.LRLon},
		{"lrlat", &bounds.LRLat},
	} {
		*f.dst, err = unmarshalNumber(rawMap, f.key)
		if err != nil {
			return bounds, err
		}
	}
	return bounds, nil
}

func unmarshalLonLat(rawMap map[string]interface{}, key string) ([2]float64, error) {
	var lonLat [2]float64
	rawList, ok := rawMap[key].([]interface{})
	if !ok || len(rawList) != 2 {
		return lonLat, fmt.Errorf(`"boundingBox.%s" should be a [lon, lat] array`, key)
	}
	for i, rawCoord := range rawList {
		coord, ok := rawCoord.(float64)
		if !ok {
			return lonLat, fmt.Errorf(`"boundingBox.%s" should only contain numbers, not a %T`, key, rawCoord)
		}
		lonLat[i] = coord
	}
	return lonLat, nil
}

func unmarshalNumber(rawMap map[string]interface{}, key string) (float64, error) {
	raw, ok := rawMap[key]
	if !ok {
		return 0, fmt.Errorf(`missing key "boundingBox.%s"`, key)
	}
	number, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf(`"boundingBox.%s" should be a number, not a %T`, key, raw)
	}
	return number, nil
}

// NewQuadTree sets up the quadtree for this tile set, with levels up to and including maxDepth.
func (ts *TileSet) NewQuadTree(maxDepth int) (*quadtree.QuadTree, error) {
	return quadtree.New(ts.BoundingBox, ts.TileWidth, maxDepth)
}

// Locator is the name of the image of tile t, under root. Root is used as a prefix as is,
// so it should end with a separator when it is a directory.
func (ts *TileSet) Locator(root string, t quadtree.Tile) string {
	return root + t.String() + "." + ts.ImageExtension
}

// MaxDepthFromCount finds the deepest level of a complete quadtree of count tiles.
func MaxDepthFromCount(count int) (int, error) {
	level, ok := mathhelp.DeepestLevel(count)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTileCount, count)
	}
	return int(level), nil
}

// ProbeMaxDepth counts the tile images in dir to find the deepest level.
func ProbeMaxDepth(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("could not probe tile directory: %w", err)
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			count++
		}
	}
	depth, err := MaxDepthFromCount(count)
	if err != nil {
		return 0, fmt.Errorf("tile directory %s: %w", dir, err)
	}
	return depth, nil
}
