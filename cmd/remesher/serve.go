package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/voxel-remesher/internal/api"
	"github.com/annel0/voxel-remesher/internal/config"
	"github.com/annel0/voxel-remesher/internal/eventbus"
	"github.com/annel0/voxel-remesher/internal/logging"
	"github.com/annel0/voxel-remesher/internal/meshing"
	"github.com/annel0/voxel-remesher/internal/metrics"
	"github.com/annel0/voxel-remesher/internal/observability"
	"github.com/annel0/voxel-remesher/internal/storage"
	"github.com/annel0/voxel-remesher/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func serve(cfg *config.Config) error {
	logOpts, err := loggingOptions(cfg.Logging)
	if err != nil {
		return err
	}
	if err := logging.InitDefaultLogger("remesher", logOpts); err != nil {
		return fmt.Errorf("логирование: %w", err)
	}
	defer logging.CloseDefaultLogger()
	logging.GetLoggerManager().Configure(logOpts)
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("Запуск voxel-remesher %s", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry := observability.Noop()
	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err = observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName, version)
		if err != nil {
			logging.Warn("OpenTelemetry недоступен: %v", err)
			shutdownTelemetry = observability.Noop()
		}
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("Остановка OpenTelemetry: %v", err)
		}
	}()

	store, err := storage.NewMeshStorage(storage.Options{
		Path:             cfg.Storage.Path,
		InMemory:         cfg.Storage.InMemory,
		CompressionLevel: cfg.Storage.CompressionLevel,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	bus, err := newEventBus(cfg.EventBus)
	if err != nil {
		return err
	}
	defer bus.Close()

	if _, err := eventbus.StartLoggingListener(ctx, bus); err != nil {
		logging.Warn("LoggingListener: %v", err)
	}
	busMetrics := eventbus.NewMetricsExporter(bus, nil)
	busMetrics.Start(time.Second)
	defer busMetrics.Stop()

	gen := world.NewGenerator(world.GeneratorConfig{
		Seed:          cfg.Terrain.Seed,
		NoiseScale:    cfg.Terrain.NoiseScale,
		BiomeScale:    cfg.Terrain.BiomeScale,
		CaveScale:     cfg.Terrain.CaveScale,
		CaveThreshold: cfg.Terrain.CaveThreshold,
		MaxHeight:     cfg.Terrain.MaxHeight,
		SeaLevel:      cfg.Terrain.SeaLevel,
	})

	svc := meshing.NewService(meshing.Options{
		Dims:      chunkDims(cfg.Chunk),
		Store:     store,
		Bus:       bus,
		Metrics:   metrics.NewRemeshMetrics("remesher", nil),
		Generator: gen,
	})

	errCh := make(chan error, 3)
	if cfg.Rebuild.IntervalSeconds > 0 {
		go func() {
			errCh <- svc.Run(ctx, time.Duration(cfg.Rebuild.IntervalSeconds)*time.Second)
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	rest := api.NewRestServer(api.Config{
		Port:    fmt.Sprintf(":%d", cfg.Server.GetHTTPPort()),
		Service: svc,
		Bus:     bus,
	})
	go func() {
		if err := rest.Start(); err != nil {
			errCh <- fmt.Errorf("REST API: %w", err)
		}
	}()

	var metricsSrv *http.Server
	if port := cfg.Server.GetMetricsPort(); port > 0 {
		metricsSrv = startMetricsServer(port, errCh)
	}

	logging.Info("🚀 Сервис запущен: REST http://localhost:%d, чанк %s, сид %d",
		cfg.Server.GetHTTPPort(), chunkDims(cfg.Chunk), cfg.Terrain.Seed)

	var runErr error
	select {
	case <-ctx.Done():
		logging.Info("Получен сигнал, завершение работы...")
	case runErr = <-errCh:
		if runErr != nil {
			logging.Error("Остановка из-за ошибки: %v", runErr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rest.Stop(shutdownCtx); err != nil {
		logging.Error("Остановка REST API: %v", err)
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	// Последний проход, чтобы правки не потерялись
	if n, err := svc.RebuildDirty(shutdownCtx); err != nil {
		logging.Warn("Финальное перестроение: %v", err)
	} else if n > 0 {
		logging.Info("Финальное перестроение: %d чанков", n)
	}

	logging.Info("Сервис остановлен")
	return runErr
}

// newEventBus выбирает JetStream при заданном URL, иначе шину в памяти
func newEventBus(c config.EventBusConfig) (eventbus.EventBus, error) {
	if c.URL == "" {
		logging.Info("EventBus: in-memory")
		return eventbus.NewMemoryBus(1024), nil
	}

	bus, err := eventbus.NewJetStreamBus(c.URL, c.Stream, time.Duration(c.Retention)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("eventbus: %w", err)
	}
	logging.Info("EventBus: JetStream %s, стрим %s", c.URL, c.Stream)
	return bus, nil
}

// startMetricsServer поднимает отдельный /metrics, если задан metrics_port
func startMetricsServer(port int, errCh chan<- error) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics: %w", err)
		}
	}()
	logging.Info("📊 Prometheus метрики на http://localhost:%d/metrics", port)
	return srv
}
