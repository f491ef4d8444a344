// Package meshing держит чанки мира и их актуальные сетки: помечает чанки
// грязными при правках, перестраивает сетки ремешером, сохраняет их и
// публикует события.
package meshing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/voxel-remesher/internal/eventbus"
	"github.com/annel0/voxel-remesher/internal/logging"
	"github.com/annel0/voxel-remesher/internal/mesher"
	"github.com/annel0/voxel-remesher/internal/metrics"
	"github.com/annel0/voxel-remesher/internal/storage"
	"github.com/annel0/voxel-remesher/internal/vec"
	"github.com/annel0/voxel-remesher/internal/world"
	"github.com/annel0/voxel-remesher/internal/world/block"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnknownChunk возвращается для чанка, который сервис не знает
// и не может сгенерировать
var ErrUnknownChunk = errors.New("неизвестный чанк")

// ErrChunkBusy возвращается, когда чанк меняется быстрее, чем строится сетка
var ErrChunkBusy = errors.New("чанк меняется во время построения сетки")

const (
	eventSource = "meshing"

	// snapshotAttempts - сколько раз MeshSnapshot пробует совместить ревизии
	snapshotAttempts = 3
)

// MeshStore - постоянное хранилище сеток (storage.MeshStorage)
type MeshStore interface {
	SaveMesh(rec *storage.MeshRecord) error
	LoadMesh(coords vec.Vec3) (*storage.MeshRecord, error)
	DeleteMesh(coords vec.Vec3) error
}

// Options - зависимости сервиса. Все поля, кроме Dims, необязательны.
type Options struct {
	Dims      vec.Vec3 // Размер новых чанков
	Store     MeshStore
	Bus       eventbus.EventBus
	Metrics   *metrics.RemeshMetrics
	Generator *world.Generator // Генерирует чанки по запросу
	Logger    *logging.Logger
}

// Stats - счётчики сервиса для /api/stats
type Stats struct {
	Chunks   int    `json:"chunks"`
	Dirty    int    `json:"dirty"`
	Rebuilds uint64 `json:"rebuilds"`
	Failures uint64 `json:"failures"`
	Quads    uint64 `json:"quads_built"`
}

// Service - владелец чанков и их сеток
type Service struct {
	mu     sync.RWMutex
	chunks map[vec.Vec3]*world.Chunk
	dirty  map[vec.Vec3]struct{}
	latest map[vec.Vec3]*storage.MeshRecord

	dims      vec.Vec3
	store     MeshStore
	bus       eventbus.EventBus
	metrics   *metrics.RemeshMetrics
	generator *world.Generator
	remesher  *mesher.Remesher
	logger    *logging.Logger
	tracer    trace.Tracer

	rebuilds atomic.Uint64
	failures atomic.Uint64
	quads    atomic.Uint64
}

// NewService создаёт сервис
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetComponentLogger("meshing")
	}

	mopts := []mesher.Option{mesher.WithLogger(logging.GetMesherLogger())}
	if opts.Metrics != nil {
		mopts = append(mopts, mesher.WithObserver(opts.Metrics))
	}

	return &Service{
		chunks:    make(map[vec.Vec3]*world.Chunk),
		dirty:     make(map[vec.Vec3]struct{}),
		latest:    make(map[vec.Vec3]*storage.MeshRecord),
		dims:      opts.Dims,
		store:     opts.Store,
		bus:       opts.Bus,
		metrics:   opts.Metrics,
		generator: opts.Generator,
		remesher:  mesher.New(mopts...),
		logger:    logger,
		tracer:    otel.Tracer("github.com/annel0/voxel-remesher/internal/meshing"),
	}
}

// Dims возвращает размер чанков сервиса
func (s *Service) Dims() vec.Vec3 { return s.dims }

// AddChunk регистрирует чанк (заменяя прежний) и помечает его грязным
func (s *Service) AddChunk(chunk *world.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks[chunk.Coords] = chunk
	s.dirty[chunk.Coords] = struct{}{}
	delete(s.latest, chunk.Coords)
}

// Chunk возвращает чанк, генерируя его при наличии генератора
func (s *Service) Chunk(coords vec.Vec3) (*world.Chunk, error) {
	s.mu.RLock()
	chunk, ok := s.chunks[coords]
	s.mu.RUnlock()
	if ok {
		return chunk, nil
	}

	if s.generator == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChunk, coords)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Проверяем еще раз на случай race condition
	if chunk, ok := s.chunks[coords]; ok {
		return chunk, nil
	}

	chunk = s.generator.GenerateChunk(coords, s.dims)
	s.chunks[coords] = chunk
	s.dirty[coords] = struct{}{}
	s.logger.Debug("Сгенерирован чанк %s", coords)
	return chunk, nil
}

// SetBlock меняет блок в чанке и помечает чанк грязным.
// Возвращает новую ревизию чанка.
func (s *Service) SetBlock(ctx context.Context, coords, local vec.Vec3, id block.BlockID) (uint64, error) {
	chunk, err := s.Chunk(coords)
	if err != nil {
		return 0, err
	}

	before := chunk.CurrentRevision()
	if err := chunk.SetBlock(local, id); err != nil {
		return 0, err
	}
	rev := chunk.CurrentRevision()
	if rev == before {
		return rev, nil
	}

	s.mu.Lock()
	s.dirty[coords] = struct{}{}
	s.mu.Unlock()

	s.publish(ctx, eventbus.EventBlockChanged, 1, eventbus.BlockChanged{
		Coords:   coords,
		Local:    local,
		BlockID:  uint16(id),
		Revision: rev,
	})
	return rev, nil
}

// Rebuild снимает занятость чанка, строит сетку, сохраняет её и публикует
// MeshRebuilt.
func (s *Service) Rebuild(ctx context.Context, coords vec.Vec3) (rec *storage.MeshRecord, err error) {
	ctx, span := s.tracer.Start(ctx, "meshing.Rebuild", trace.WithAttributes(
		attribute.Int("chunk.x", coords.X),
		attribute.Int("chunk.y", coords.Y),
		attribute.Int("chunk.z", coords.Z),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		if err != nil {
			s.failures.Add(1)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Error("Перестроение %s: %v", coords, err)
		}
		if s.metrics != nil {
			quads := 0
			if rec != nil {
				quads = len(rec.Quads)
			}
			s.metrics.ObserveRebuild(time.Since(start), quads, err)
		}
	}()

	chunk, err := s.Chunk(coords)
	if err != nil {
		return nil, err
	}

	snap := chunk.Snapshot()
	quads := s.remesher.Remesh(snap.Dims(), snap.Solid)
	elapsed := time.Since(start)

	rec = &storage.MeshRecord{
		Coords:   coords,
		Revision: snap.Revision(),
		Quads:    quads,
		BuiltAt:  time.Now().UTC(),
	}
	span.SetAttributes(
		attribute.Int64("chunk.revision", int64(snap.Revision())),
		attribute.Int("mesh.quads", len(quads)),
	)

	if s.store != nil {
		if err := s.store.SaveMesh(rec); err != nil {
			return nil, fmt.Errorf("сохранение сетки %s: %w", coords, err)
		}
	}

	s.mu.Lock()
	s.latest[coords] = rec
	if chunk.CurrentRevision() == snap.Revision() {
		delete(s.dirty, coords)
		chunk.ClearChanges()
	}
	s.mu.Unlock()

	s.rebuilds.Add(1)
	s.quads.Add(uint64(len(quads)))
	s.logger.Debug("Сетка %s: ревизия %d, %d квадов за %s", coords, rec.Revision, len(quads), elapsed)

	s.publish(ctx, eventbus.EventMeshRebuilt, 5, eventbus.MeshRebuilt{
		Coords:     coords,
		Revision:   rec.Revision,
		Quads:      len(quads),
		DurationMs: float64(elapsed.Microseconds()) / 1000,
	})
	return rec, nil
}

// RebuildDirty перестраивает все грязные чанки в порядке координат.
// Ошибки отдельных чанков не прерывают обход.
func (s *Service) RebuildDirty(ctx context.Context) (int, error) {
	s.mu.RLock()
	pending := make([]vec.Vec3, 0, len(s.dirty))
	for c := range s.dirty {
		pending = append(pending, c)
	}
	s.mu.RUnlock()

	sort.Slice(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})

	var errs []error
	built := 0
	for _, c := range pending {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.Rebuild(ctx, c); err != nil {
			errs = append(errs, err)
			continue
		}
		built++
	}
	return built, errors.Join(errs...)
}

// Mesh возвращает актуальную сетку чанка: из памяти или хранилища, если
// ревизия совпадает с текущей, иначе перестраивает.
func (s *Service) Mesh(ctx context.Context, coords vec.Vec3) (*storage.MeshRecord, error) {
	chunk, err := s.Chunk(coords)
	if err != nil {
		return nil, err
	}
	rev := chunk.CurrentRevision()

	s.mu.RLock()
	rec, ok := s.latest[coords]
	_, dirty := s.dirty[coords]
	s.mu.RUnlock()
	if ok && rec.Revision == rev && !dirty {
		return rec, nil
	}

	if s.store != nil {
		stored, err := s.store.LoadMesh(coords)
		if err != nil {
			s.logger.Warn("Чтение сетки %s из хранилища: %v", coords, err)
		} else if stored != nil && stored.Revision == rev && !dirty {
			s.mu.Lock()
			s.latest[coords] = stored
			s.mu.Unlock()
			return stored, nil
		}
	}

	return s.Rebuild(ctx, coords)
}

// MeshSnapshot возвращает сетку вместе со снимком занятости той же
// ревизии. По снимку ориентируют квады (Quad.Facing, Quad.Oriented):
// снимок новее сетки дал бы нормали чужой ревизии.
func (s *Service) MeshSnapshot(ctx context.Context, coords vec.Vec3) (*storage.MeshRecord, *world.Occupancy, error) {
	for attempt := 0; attempt < snapshotAttempts; attempt++ {
		rec, err := s.Mesh(ctx, coords)
		if err != nil {
			return nil, nil, err
		}
		chunk, err := s.Chunk(coords)
		if err != nil {
			return nil, nil, err
		}
		snap := chunk.Snapshot()
		if snap.Revision() == rec.Revision {
			return rec, snap, nil
		}
		s.logger.Debug("Чанк %s: сетка rev=%d, снимок rev=%d, повтор", coords, rec.Revision, snap.Revision())
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrChunkBusy, coords)
}

// Run перестраивает грязные чанки каждые interval до отмены ctx
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Фоновое перестроение запущено (интервал %s)", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Фоновое перестроение остановлено")
			return nil
		case <-ticker.C:
			n, err := s.RebuildDirty(ctx)
			if err != nil && ctx.Err() == nil {
				s.logger.Warn("Перестроено %d чанков с ошибками: %v", n, err)
			} else if n > 0 {
				s.logger.Debug("Перестроено %d чанков", n)
			}
		}
	}
}

// Stats возвращает счётчики сервиса
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Chunks:   len(s.chunks),
		Dirty:    len(s.dirty),
		Rebuilds: s.rebuilds.Load(),
		Failures: s.failures.Load(),
		Quads:    s.quads.Load(),
	}
}

func (s *Service) publish(ctx context.Context, eventType string, priority int, payload any) {
	if s.bus == nil {
		return
	}
	ev, err := eventbus.NewJSONEnvelope(eventSource, eventType, priority, payload)
	if err == nil {
		err = s.bus.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.Warn("Публикация %s: %v", eventType, err)
	}
}
