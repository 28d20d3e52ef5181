package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/iancoleman/strcase"
	"github.com/urfave/cli/v2"

	"github.com/pdok/quadraster/geomhelp"
	"github.com/pdok/quadraster/processing"
	"github.com/pdok/quadraster/quadtree"
	"github.com/pdok/quadraster/server"
	"github.com/pdok/quadraster/tileset"
)

const TILESET string = `tileset`
const TILESETFILE string = `tilesetFile`
const IMGROOT string = `imgRoot`
const MAXDEPTH string = `maxDepth`
const ADDRESS string = `address`
const ULLON string = `ullon`
const ULLAT string = `ullat`
const LRLON string = `lrlon`
const LRLAT string = `lrlat`
const WIDTH string = `w`
const HEIGHT string = `h`
const WKT string = `wkt`
const INPUT string = `input`
const WORKERS string = `workers`

//nolint:funlen
func main() {
	app := cli.NewApp()
	app.Name = "quadraster"
	app.Usage = "Selects the pre-rendered quadtree tiles covering a lon/lat box"
	app.Version = versioninfo.Short()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    TILESET,
			Aliases: []string{"ts"},
			Usage:   fmt.Sprintf("ID of a built-in tile set. One of: %v", tileset.EmbeddedTileSetIDs()),
			Value:   "BerkeleyQuad",
			EnvVars: []string{strcase.ToScreamingSnake(TILESET)},
		},
		&cli.StringFlag{
			Name:    TILESETFILE,
			Aliases: []string{"f"},
			Usage:   "JSON file with a custom tile set, takes precedence over --" + TILESET,
			EnvVars: []string{strcase.ToScreamingSnake(TILESETFILE)},
		},
		&cli.StringFlag{
			Name:    IMGROOT,
			Aliases: []string{"i"},
			Usage:   "Prefix of the tile image locators. Also the directory probed for the max depth",
			Value:   "img/",
			EnvVars: []string{strcase.ToScreamingSnake(IMGROOT)},
		},
		&cli.IntFlag{
			Name:    MAXDEPTH,
			Aliases: []string{"d"},
			Usage:   "Deepest level of the tile set. Negative means: count the images in --" + IMGROOT,
			Value:   -1,
			EnvVars: []string{strcase.ToScreamingSnake(MAXDEPTH)},
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:  "raster",
			Usage: "Print the raster for one query as JSON",
			Flags: []cli.Flag{
				&cli.Float64Flag{Name: ULLON, Usage: "Longitude of the upper left corner", Required: true},
				&cli.Float64Flag{Name: ULLAT, Usage: "Latitude of the upper left corner", Required: true},
				&cli.Float64Flag{Name: LRLON, Usage: "Longitude of the lower right corner", Required: true},
				&cli.Float64Flag{Name: LRLAT, Usage: "Latitude of the lower right corner", Required: true},
				&cli.Float64Flag{Name: WIDTH, Usage: "Width of the viewport in pixels", Required: true},
				&cli.Float64Flag{Name: HEIGHT, Usage: "Height of the viewport in pixels (not used)"},
				&cli.BoolFlag{Name: WKT, Usage: "Also write the extent of every tile in the grid as WKT to stderr"},
			},
			Action: rasterAction,
		},
		{
			Name:  "serve",
			Usage: "Serve rasters over HTTP on /raster",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    ADDRESS,
					Aliases: []string{"a"},
					Usage:   "Address to listen on",
					Value:   ":8080",
					EnvVars: []string{strcase.ToScreamingSnake(ADDRESS)},
				},
			},
			Action: serveAction,
		},
		{
			Name:  "batch",
			Usage: "Raster every query (one URL query string per line, e.g. ullon=..&ullat=..&lrlon=..&lrlat=..&w=..) and print the results as JSON lines",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    INPUT,
					Usage:   "File with the queries, - for stdin",
					Value:   "-",
					EnvVars: []string{strcase.ToScreamingSnake(INPUT)},
				},
				&cli.IntFlag{
					Name:    WORKERS,
					Usage:   "Number of queries rastered concurrently",
					Value:   runtime.NumCPU(),
					EnvVars: []string{strcase.ToScreamingSnake(WORKERS)},
				},
			},
			Action: batchAction,
		},
		{
			Name:   "info",
			Usage:  "Describe the tile set and its levels",
			Action: infoAction,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

// setup reads the tile set and builds its quadtree. Configuration errors are fatal.
func setup(c *cli.Context) (tileset.TileSet, *quadtree.QuadTree) {
	var ts tileset.TileSet
	var err error
	if file := c.String(TILESETFILE); file != "" {
		ts, err = tileset.LoadJSONTileSet(file)
	} else {
		ts, err = tileset.LoadEmbeddedTileSet(c.String(TILESET))
	}
	if err != nil {
		log.Fatalf("error loading tile set: %s", err)
	}

	maxDepth := c.Int(MAXDEPTH)
	if maxDepth < 0 {
		maxDepth, err = tileset.ProbeMaxDepth(c.String(IMGROOT))
		if err != nil {
			log.Fatalf("error determining max depth: %s", err)
		}
	}

	qt, err := ts.NewQuadTree(maxDepth)
	if err != nil {
		log.Fatalf("error setting up quadtree: %s", err)
	}
	return ts, qt
}

func rasterAction(c *cli.Context) error {
	ts, qt := setup(c)
	q := quadtree.Query{
		Bounds: quadtree.Bounds{
			ULLon: c.Float64(ULLON),
			ULLat: c.Float64(ULLAT),
			LRLon: c.Float64(LRLON),
			LRLat: c.Float64(LRLAT),
		},
		Width: c.Float64(WIDTH),
	}
	result, err := qt.Raster(q)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(server.RasterResponse(result, ts, c.String(IMGROOT)), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(out))

	if c.Bool(WKT) && result.Success {
		return writeGridWkt(c, qt, result.Grid)
	}
	return nil
}

func writeGridWkt(c *cli.Context, qt *quadtree.QuadTree, grid [][]quadtree.Tile) error {
	var extents []geomhelp.LabeledExtent
	for _, row := range grid {
		for _, tile := range row {
			bounds, err := qt.BoundsOf(tile)
			if err != nil {
				return err
			}
			slippyTile, err := tile.Slippy()
			if err != nil {
				return err
			}
			extents = append(extents, geomhelp.LabeledExtent{
				Label:  fmt.Sprintf("%s %d/%d/%d", tile, slippyTile.Z, slippyTile.X, slippyTile.Y),
				Extent: bounds.Extent(),
			})
		}
	}
	return geomhelp.WriteWkt(c.App.ErrWriter, extents, 0)
}

func serveAction(c *cli.Context) error {
	ts, qt := setup(c)
	log.Printf("tile set %s, max depth %d, images under %s", ts.ID, qt.MaxDepth(), c.String(IMGROOT))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.NewServer(qt, ts, c.String(IMGROOT), c.String(ADDRESS)).ListenAndServe(ctx)
}

func batchAction(c *cli.Context) error {
	ts, qt := setup(c)
	var input io.Reader = os.Stdin
	if path := c.String(INPUT); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("error opening queries: %s", err)
		}
		defer f.Close()
		input = f
	}

	source := processing.LineSource{
		Reader: input,
		Parse: func(line string) (quadtree.Query, error) {
			params, err := url.ParseQuery(line)
			if err != nil {
				return quadtree.Query{}, err
			}
			return server.ParseQuery(params)
		},
	}
	target := processing.JSONLinesTarget{
		Writer: c.App.Writer,
		Format: func(result quadtree.Result) any {
			return server.RasterResponse(result, ts, c.String(IMGROOT))
		},
	}

	log.Println("=== start rastering ===")
	err := processing.ProcessQueries(source, target, qt.Raster, c.Int(WORKERS))
	log.Println("=== done rastering ===")
	return err
}

func infoAction(c *cli.Context) error {
	ts, qt := setup(c)
	w := c.App.Writer
	root := qt.Root()
	fmt.Fprintf(w, "%s (%s)\n", ts.ID, ts.Title)
	fmt.Fprintf(w, "upper left %v,%v lower right %v,%v\n", root.ULLon, root.ULLat, root.LRLon, root.LRLat)
	fmt.Fprintf(w, "tile width %d px, %d tiles, max depth %d\n", qt.TileWidth(), qt.TileCount(), qt.MaxDepth())
	for _, level := range qt.Levels() {
		fmt.Fprintf(w, "  level %2d: %10d tiles from %-8s lonDPP %g\n", level.Level, level.Tiles, level.FirstTile, level.LonDPP)
	}
	return nil
}
