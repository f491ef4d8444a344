package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/annel0/voxel-remesher/internal/eventbus"
	"github.com/annel0/voxel-remesher/internal/meshing"
	"github.com/annel0/voxel-remesher/internal/vec"
	"github.com/annel0/voxel-remesher/internal/world"
	"github.com/annel0/voxel-remesher/internal/world/block"
	_ "github.com/annel0/voxel-remesher/internal/world/block/implementations"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*RestServer, *meshing.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dims := vec.Vec3{X: 4, Y: 4, Z: 4}
	svc := meshing.NewService(meshing.Options{Dims: dims})

	chunk := world.NewChunk(vec.Vec3{X: 1, Y: 0, Z: -1}, dims)
	require.NoError(t, chunk.SetBlock(vec.Vec3{X: 0, Y: 0, Z: 0}, block.StoneBlockID))
	svc.AddChunk(chunk)

	bus := eventbus.NewMemoryBus(16)
	t.Cleanup(func() { _ = bus.Close() })

	reg := prometheus.NewRegistry()
	rs := NewRestServer(Config{Service: svc, Bus: bus, Registerer: reg, Gatherer: reg})
	return rs, svc
}

func do(t *testing.T, rs *RestServer, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	rs.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func TestHealth(t *testing.T) {
	rs, _ := newTestServer(t)
	w := do(t, rs, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestGetMeshQuads(t *testing.T) {
	rs, _ := newTestServer(t)

	w := do(t, rs, "GET", "/api/chunks/1/0/-1/mesh", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var mesh MeshResponse
	env := decode(t, w, &mesh)
	assert.True(t, env.Success)
	assert.Equal(t, [3]int{1, 0, -1}, mesh.Coords)
	assert.Equal(t, uint64(1), mesh.Revision)
	require.Len(t, mesh.Quads, 6)

	facing := map[string]int{}
	for _, q := range mesh.Quads {
		facing[q.Normal] += q.Facing
	}
	// По одной грани в каждую сторону по каждой оси
	assert.Equal(t, map[string]int{"x": 0, "y": 0, "z": 0}, facing)
}

func TestGetMeshTriangles(t *testing.T) {
	rs, _ := newTestServer(t)

	w := do(t, rs, "GET", "/api/chunks/1/0/-1/mesh?format=triangles", "")
	require.Equal(t, http.StatusOK, w.Code)

	var mesh MeshResponse
	decode(t, w, &mesh)
	require.NotNil(t, mesh.Mesh)
	assert.Equal(t, 12, mesh.Mesh.TriangleCount())
	assert.Empty(t, mesh.Quads)

	w = do(t, rs, "GET", "/api/chunks/1/0/-1/mesh?format=stl", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMeshOBJ(t *testing.T) {
	rs, _ := newTestServer(t)

	w := do(t, rs, "GET", "/api/chunks/1/0/-1/mesh.obj", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "model/obj")

	body := w.Body.String()
	assert.Contains(t, body, "# chunk (1,0,-1) revision 1")
	// Начало чанка (4,0,-4) в мировых координатах
	assert.Contains(t, body, "v 4 0 -4\n")
	assert.Equal(t, 6, strings.Count(body, "\nf "))
}

func TestUnknownChunkAndBadCoords(t *testing.T) {
	rs, _ := newTestServer(t)

	w := do(t, rs, "GET", "/api/chunks/9/9/9/mesh", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, decode(t, w, nil).Success)

	w = do(t, rs, "GET", "/api/chunks/a/0/0/mesh", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, rs, "POST", "/api/chunks/9/9/9/rebuild", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPutBlocksThenRebuild(t *testing.T) {
	rs, svc := newTestServer(t)

	w := do(t, rs, "PUT", "/api/chunks/1/0/-1/blocks",
		`{"blocks":[{"x":1,"y":0,"z":0,"id":1},{"x":2,"y":0,"z":0,"id":5}]}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var put struct {
		Revision uint64 `json:"revision"`
		Applied  int    `json:"applied"`
	}
	decode(t, w, &put)
	assert.Equal(t, uint64(3), put.Revision)
	assert.Equal(t, 2, put.Applied)
	assert.Equal(t, 1, svc.Stats().Dirty)

	w = do(t, rs, "POST", "/api/chunks/1/0/-1/rebuild", "")
	require.Equal(t, http.StatusOK, w.Code)

	var rebuilt struct {
		Revision uint64 `json:"revision"`
		Quads    int    `json:"quads"`
	}
	decode(t, w, &rebuilt)
	assert.Equal(t, uint64(3), rebuilt.Revision)
	assert.Equal(t, 6, rebuilt.Quads, "ряд из трёх вокселей - один бокс")
	assert.Zero(t, svc.Stats().Dirty)
}

func TestPutBlocksValidation(t *testing.T) {
	rs, _ := newTestServer(t)

	bodies := []string{
		`{"blocks":[]}`,
		`{"blocks":`,
		`{"blocks":[{"x":0,"y":0,"z":0,"id":999}]}`,
		`{"blocks":[{"x":4,"y":0,"z":0,"id":1}]}`,
		`{"blocks":[{"x":-1,"y":0,"z":0,"id":1}]}`,
	}
	for _, body := range bodies {
		w := do(t, rs, "PUT", "/api/chunks/1/0/-1/blocks", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestPutBlocksRejectsWholeBatch(t *testing.T) {
	rs, svc := newTestServer(t)
	coords := vec.Vec3{X: 1, Y: 0, Z: -1}

	chunk, err := svc.Chunk(coords)
	require.NoError(t, err)
	before := chunk.CurrentRevision()

	// Вторая правка вне чанка 4x4x4: первая тоже не должна примениться
	w := do(t, rs, "PUT", "/api/chunks/1/0/-1/blocks",
		`{"blocks":[{"x":1,"y":1,"z":1,"id":1},{"x":9,"y":0,"z":0,"id":1}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	assert.Equal(t, before, chunk.CurrentRevision())
	assert.Equal(t, block.AirBlockID, chunk.GetBlock(vec.Vec3{X: 1, Y: 1, Z: 1}))
}

func TestGetMeshAfterEditUsesMatchingRevision(t *testing.T) {
	rs, svc := newTestServer(t)

	_, err := svc.SetBlock(context.Background(), vec.Vec3{X: 1, Y: 0, Z: -1},
		vec.Vec3{X: 1, Y: 0, Z: 0}, block.StoneBlockID)
	require.NoError(t, err)

	w := do(t, rs, "GET", "/api/chunks/1/0/-1/mesh", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Revision uint64 `json:"revision"`
		Quads    []struct {
			Facing int `json:"facing"`
		} `json:"quads"`
	}
	decode(t, w, &resp)
	assert.Equal(t, uint64(2), resp.Revision)
	require.Len(t, resp.Quads, 6)
	for _, q := range resp.Quads {
		assert.Contains(t, []int{-1, 1}, q.Facing)
	}
}

func TestStatsAndMetrics(t *testing.T) {
	rs, _ := newTestServer(t)
	do(t, rs, "GET", "/api/chunks/1/0/-1/mesh", "")

	w := do(t, rs, "GET", "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		Meshing  meshing.Stats          `json:"meshing"`
		Server   map[string]any         `json:"server"`
		EventBus map[string]json.Number `json:"eventbus"`
	}
	decode(t, w, &stats)
	assert.Equal(t, 1, stats.Meshing.Chunks)
	assert.Equal(t, uint64(1), stats.Meshing.Rebuilds)
	assert.Contains(t, stats.Server, "uptime")
	assert.Contains(t, stats.Server, "memory")
	assert.NotNil(t, stats.EventBus)

	w = do(t, rs, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "remesher_http_request_duration_seconds")
}

func TestCORSPreflight(t *testing.T) {
	rs, _ := newTestServer(t)
	w := do(t, rs, "OPTIONS", "/api/chunks/1/0/-1/blocks", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
