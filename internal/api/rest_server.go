package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/voxel-remesher/internal/eventbus"
	"github.com/annel0/voxel-remesher/internal/export"
	"github.com/annel0/voxel-remesher/internal/logging"
	"github.com/annel0/voxel-remesher/internal/mesher"
	"github.com/annel0/voxel-remesher/internal/meshing"
	"github.com/annel0/voxel-remesher/internal/middleware"
	"github.com/annel0/voxel-remesher/internal/storage"
	"github.com/annel0/voxel-remesher/internal/vec"
	"github.com/annel0/voxel-remesher/internal/world"
	"github.com/annel0/voxel-remesher/internal/world/block"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

// RestServer представляет REST API сервер
type RestServer struct {
	router  *gin.Engine
	server  *http.Server
	service *meshing.Service
	bus     eventbus.EventBus
	port    string
	metrics *ServerMetrics
	logger  *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port       string           // адрес для запуска сервера, например ":8088"
	Service    *meshing.Service // сервис сеток
	Bus        eventbus.EventBus
	Registerer prometheus.Registerer // nil - глобальный регистр
	Gatherer   prometheus.Gatherer
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("voxel-remesher"))
	router.Use(middleware.NewRequestLogger(nil).Handler())

	promMw := middleware.NewPrometheusMiddleware("remesher", config.Registerer)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Gatherer)

	rs := &RestServer{
		router:  router,
		service: config.Service,
		bus:     config.Bus,
		port:    config.Port,
		metrics: NewServerMetrics(),
		logger:  logging.GetAPILogger(),
	}
	rs.setupRoutes()

	rs.server = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return rs
}

// Handler возвращает http.Handler сервера (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.Use(corsMiddleware())
	rs.router.Use(bodyLimitMiddleware(maxBodyBytes))

	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	api.GET("/stats", rs.handleStats)

	chunks := api.Group("/chunks/:x/:y/:z")
	{
		chunks.GET("/mesh", rs.handleGetMesh)
		chunks.GET("/mesh.obj", rs.handleGetMeshOBJ)
		chunks.PUT("/blocks", rs.handlePutBlocks)
		chunks.POST("/rebuild", rs.handleRebuild)
	}
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// QuadDTO - квад в JSON-ответе
type QuadDTO struct {
	A      [3]int `json:"a"`
	B      [3]int `json:"b"`
	C      [3]int `json:"c"`
	D      [3]int `json:"d"`
	Normal string `json:"normal"`
	Facing int    `json:"facing,omitempty"`
}

// MeshResponse - сетка чанка
type MeshResponse struct {
	Coords   [3]int       `json:"coords"`
	Revision uint64       `json:"revision"`
	BuiltAt  time.Time    `json:"built_at"`
	Quads    []QuadDTO    `json:"quads,omitempty"`
	Mesh     *export.Mesh `json:"mesh,omitempty"`
}

// BlockEdit - одно изменение блока в локальных координатах чанка
type BlockEdit struct {
	X  int    `json:"x"`
	Y  int    `json:"y"`
	Z  int    `json:"z"`
	ID uint16 `json:"id"`
}

// PutBlocksRequest - пакет изменений блоков
type PutBlocksRequest struct {
	Blocks []BlockEdit `json:"blocks" binding:"required,min=1"`
}

func toArray(v vec.Vec3) [3]int { return [3]int{v.X, v.Y, v.Z} }

func (rs *RestServer) fail(c *gin.Context, status int, msg string, err error) {
	if err != nil {
		_ = c.Error(err)
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	c.JSON(status, GenericResponse{Success: false, Message: msg})
}

// statusFor переводит ошибку сервиса в HTTP-статус
func statusFor(err error) int {
	switch {
	case errors.Is(err, meshing.ErrUnknownChunk):
		return http.StatusNotFound
	case errors.Is(err, world.ErrOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, meshing.ErrChunkBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// chunkCoords разбирает :x/:y/:z
func chunkCoords(c *gin.Context) (vec.Vec3, error) {
	var v vec.Vec3
	for _, p := range []struct {
		name string
		dst  *int
	}{{"x", &v.X}, {"y", &v.Y}, {"z", &v.Z}} {
		n, err := strconv.Atoi(c.Param(p.name))
		if err != nil {
			return vec.Vec3{}, fmt.Errorf("координата %s: %w", p.name, err)
		}
		*p.dst = n
	}
	return v, nil
}

// loadMesh общая часть GET-обработчиков: сетка и снимок занятости той же ревизии
func (rs *RestServer) loadMesh(c *gin.Context) (*storage.MeshRecord, *world.Occupancy, bool) {
	coords, err := chunkCoords(c)
	if err != nil {
		rs.fail(c, http.StatusBadRequest, "Неверные координаты чанка", err)
		return nil, nil, false
	}

	rec, snap, err := rs.service.MeshSnapshot(c.Request.Context(), coords)
	if err != nil {
		rs.fail(c, statusFor(err), "Не удалось получить сетку", err)
		return nil, nil, false
	}
	return rec, snap, true
}

// handleGetMesh отдаёт квады; ?format=triangles - треугольную сетку
func (rs *RestServer) handleGetMesh(c *gin.Context) {
	rec, snap, ok := rs.loadMesh(c)
	if !ok {
		return
	}

	oracle := mesher.Oracle(snap.Solid)
	resp := MeshResponse{
		Coords:   toArray(rec.Coords),
		Revision: rec.Revision,
		BuiltAt:  rec.BuiltAt,
	}

	switch c.DefaultQuery("format", "quads") {
	case "quads":
		resp.Quads = make([]QuadDTO, 0, len(rec.Quads))
		for _, q := range rec.Quads {
			resp.Quads = append(resp.Quads, QuadDTO{
				A:      toArray(q.A),
				B:      toArray(q.B),
				C:      toArray(q.C),
				D:      toArray(q.D),
				Normal: q.Normal().String(),
				Facing: q.Facing(oracle),
			})
		}
	case "triangles":
		resp.Mesh = export.Triangulate(rec.Quads, oracle)
	default:
		rs.fail(c, http.StatusBadRequest, "Неизвестный формат", nil)
		return
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Сетка получена", Data: resp})
}

// handleGetMeshOBJ отдаёт сетку как Wavefront OBJ в мировых координатах
func (rs *RestServer) handleGetMeshOBJ(c *gin.Context) {
	rec, snap, ok := rs.loadMesh(c)
	if !ok {
		return
	}
	dims := snap.Dims()
	origin := vec.Vec3{X: rec.Coords.X * dims.X, Y: rec.Coords.Y * dims.Y, Z: rec.Coords.Z * dims.Z}

	c.Header("Content-Type", "model/obj; charset=utf-8")
	c.Status(http.StatusOK)
	err := export.WriteOBJ(c.Writer, rec.Quads, export.OBJOptions{
		Oracle:  snap.Solid,
		Offset:  origin,
		Comment: fmt.Sprintf("chunk %s revision %d", rec.Coords, rec.Revision),
	})
	if err != nil {
		rs.logger.Warn("Запись OBJ %s: %v", rec.Coords, err)
	}
}

// handlePutBlocks применяет правки блоков; перестроение выполняется позже
func (rs *RestServer) handlePutBlocks(c *gin.Context) {
	coords, err := chunkCoords(c)
	if err != nil {
		rs.fail(c, http.StatusBadRequest, "Неверные координаты чанка", err)
		return
	}

	var req PutBlocksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.fail(c, http.StatusBadRequest, "Неверный формат запроса", err)
		return
	}

	chunk, err := rs.service.Chunk(coords)
	if err != nil {
		rs.fail(c, statusFor(err), "Чанк недоступен", err)
		return
	}

	// Пакет применяется целиком или не применяется вовсе
	for _, e := range req.Blocks {
		if !block.IsValidBlockID(block.BlockID(e.ID)) {
			rs.fail(c, http.StatusBadRequest, fmt.Sprintf("Неизвестный блок %d", e.ID), nil)
			return
		}
		local := vec.Vec3{X: e.X, Y: e.Y, Z: e.Z}
		if !chunk.Dims.Contains(local) {
			rs.fail(c, http.StatusBadRequest, fmt.Sprintf("Блок %s вне чанка", local), world.ErrOutOfRange)
			return
		}
	}

	var rev uint64
	for _, e := range req.Blocks {
		rev, err = rs.service.SetBlock(c.Request.Context(), coords,
			vec.Vec3{X: e.X, Y: e.Y, Z: e.Z}, block.BlockID(e.ID))
		if err != nil {
			rs.fail(c, statusFor(err), "Не удалось изменить блок", err)
			return
		}
	}

	c.JSON(http.StatusAccepted, GenericResponse{
		Success: true,
		Message: "Изменения приняты",
		Data:    gin.H{"coords": toArray(coords), "revision": rev, "applied": len(req.Blocks)},
	})
}

// handleRebuild синхронно перестраивает сетку чанка
func (rs *RestServer) handleRebuild(c *gin.Context) {
	coords, err := chunkCoords(c)
	if err != nil {
		rs.fail(c, http.StatusBadRequest, "Неверные координаты чанка", err)
		return
	}

	rec, err := rs.service.Rebuild(c.Request.Context(), coords)
	if err != nil {
		rs.fail(c, statusFor(err), "Перестроение не удалось", err)
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Сетка перестроена",
		Data:    gin.H{"coords": toArray(rec.Coords), "revision": rec.Revision, "quads": len(rec.Quads)},
	})
}

// handleStats возвращает статистику сервиса и процесса
func (rs *RestServer) handleStats(c *gin.Context) {
	stats := map[string]interface{}{
		"meshing": rs.service.Stats(),
		"server":  rs.metrics.Snapshot(),
	}
	if rs.bus != nil {
		stats["eventbus"] = rs.bus.Metrics()
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data:    stats,
	})
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// Start запускает HTTP сервер; блокирует до Stop
func (rs *RestServer) Start() error {
	rs.logger.Info("REST API слушает %s", rs.port)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop корректно завершает сервер, дожидаясь активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}
