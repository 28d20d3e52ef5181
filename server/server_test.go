package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/quadraster/quadtree"
	"github.com/pdok/quadraster/tileset"
)

func newBerkeleyServer(t *testing.T) *Server {
	t.Helper()
	ts, err := tileset.LoadEmbeddedTileSet("BerkeleyQuad")
	require.NoError(t, err)
	qt, err := ts.NewQuadTree(7)
	require.NoError(t, err)
	return NewServer(qt, ts, "img/", "127.0.0.1:0")
}

func get(t *testing.T, s *Server, target string) *http.Response {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec.Result()
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestServer_raster(t *testing.T) {
	s := newBerkeleyServer(t)
	resp := get(t, s, "/raster?ullon=-122.241632&ullat=37.87655&lrlon=-122.24053&lrlat=37.87548&w=892&h=875")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	body := readBody(t, resp)
	assert.True(t, strings.HasPrefix(body, `{"render_grid":`), body)
	assert.True(t, strings.HasSuffix(body, `"depth":7,"query_success":true}`), body)
	require.JSONEq(t, `{
		"render_grid": [
			["img/2143411.png", "img/2143412.png", "img/2143421.png"],
			["img/2143413.png", "img/2143414.png", "img/2143423.png"],
			["img/2143431.png", "img/2143432.png", "img/2143441.png"]
		],
		"raster_ul_lon": -122.24212646484375,
		"raster_ul_lat": 37.87701580361881,
		"raster_lr_lon": -122.24006652832031,
		"raster_lr_lat": 37.87538940251607,
		"depth": 7,
		"query_success": true
	}`, body)
}

func TestServer_raster_fullExtent(t *testing.T) {
	s := newBerkeleyServer(t)
	params := url.Values{
		"ullon": {"-122.2998046875"},
		"ullat": {"37.892195547244356"},
		"lrlon": {"-122.2119140625"},
		"lrlat": {"37.82280243352756"},
		"w":     {"512"},
	}
	resp := get(t, s, "/raster?"+params.Encode())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		RenderGrid [][]string `json:"render_grid"`
		Depth      int        `json:"depth"`
		Success    bool       `json:"query_success"`
	}
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &got))
	assert.True(t, got.Success)
	assert.Equal(t, 1, got.Depth)
	assert.Equal(t, [][]string{{"img/1.png", "img/2.png"}, {"img/3.png", "img/4.png"}}, got.RenderGrid)
}

func TestServer_raster_queryFailure(t *testing.T) {
	s := newBerkeleyServer(t)
	tests := map[string]string{
		"south of the map": "/raster?ullon=-122.27&ullat=37.80&lrlon=-122.25&lrlat=37.79&w=256",
		"zero width":       "/raster?ullon=-122.27&ullat=37.88&lrlon=-122.25&lrlat=37.87&w=0",
		"not a number":     "/raster?ullon=-122.27&ullat=37.88&lrlon=-122.25&lrlat=37.87&w=NaN",
	}
	for name, target := range tests {
		t.Run(name, func(t *testing.T) {
			resp := get(t, s, target)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, `{"query_success":false}`, readBody(t, resp))
		})
	}
}

func TestServer_raster_badRequest(t *testing.T) {
	s := newBerkeleyServer(t)
	tests := map[string]string{
		"missing w":     "/raster?ullon=-122.27&ullat=37.88&lrlon=-122.25&lrlat=37.87",
		"malformed lon": "/raster?ullon=west&ullat=37.88&lrlon=-122.25&lrlat=37.87&w=256",
		"malformed h":   "/raster?ullon=-122.27&ullat=37.88&lrlon=-122.25&lrlat=37.87&w=256&h=tall",
	}
	for name, target := range tests {
		t.Run(name, func(t *testing.T) {
			resp := get(t, s, target)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestServer_raster_methodNotAllowed(t *testing.T) {
	s := newBerkeleyServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/raster", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_health(t *testing.T) {
	s := newBerkeleyServer(t)
	resp := get(t, s, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, readBody(t, resp))
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery(url.Values{
		"ullon": {"1"}, "ullat": {"4"}, "lrlon": {"3"}, "lrlat": {"2"}, "w": {"100"},
	})
	require.NoError(t, err)
	assert.Equal(t, quadtree.Query{
		Bounds: quadtree.Bounds{ULLon: 1, ULLat: 4, LRLon: 3, LRLat: 2},
		Width:  100,
	}, q)
}

func TestRasterResponse_failure(t *testing.T) {
	response := RasterResponse(quadtree.Result{}, tileset.TileSet{ImageExtension: "png"}, "img/")
	body, err := json.Marshal(response)
	require.NoError(t, err)
	assert.Equal(t, `{"query_success":false}`, string(body))
}

func TestServer_ListenAndServe_stopsWithContext(t *testing.T) {
	s := newBerkeleyServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
