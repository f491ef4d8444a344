// Package mesher превращает поле занятости в минимальный (жадно) набор
// осевых квадов, описывающих только открытые грани между твёрдыми и
// пустыми вокселями.
//
// Обход: для каждой из трёх осей нормали перебираются срезы 0..dim
// включительно (последний - "крышка" за пределами объёма), для среза
// строится маска переходов твёрдое/пустое, а маска жадно режется на
// максимальные прямоугольники.
package mesher

import (
	"fmt"

	"github.com/annel0/voxel-remesher/internal/logging"
	"github.com/annel0/voxel-remesher/internal/vec"
)

// Oracle сообщает, занята ли ячейка решётки. Обязан возвращать false для
// любой координаты вне [0, dim) по любой оси: ремешер намеренно
// запрашивает ячейки на шаг до и на шаг после объёма по нормали.
type Oracle func(p vec.Vec3) bool

// FallibleOracle - оракул поверх хранилища, которое может вернуть ошибку.
type FallibleOracle func(p vec.Vec3) (bool, error)

// SliceStats описывает обработку одного среза.
type SliceStats struct {
	Axis  vec.Axis
	Slice int
	Cells int // установленные ячейки маски до слияния
	Quads int
	Area  int // суммарная площадь выпущенных квадов
}

// Observer получает статистику по каждому срезу.
type Observer interface {
	ObserveSlice(s SliceStats)
}

// Option настраивает Remesher
type Option func(*Remesher)

// WithObserver подключает наблюдателя за срезами (метрики, тесты).
func WithObserver(o Observer) Option {
	return func(r *Remesher) { r.observer = o }
}

// WithLogger задаёт логгер; по умолчанию используется логгер компонента "mesher".
func WithLogger(l *logging.Logger) Option {
	return func(r *Remesher) { r.logger = l }
}

// Remesher - короткоживущее значение без состояния между вызовами.
// Один вызов обрабатывает один снимок объёма целиком и последовательно.
type Remesher struct {
	observer Observer
	logger   *logging.Logger
}

// New создаёт Remesher с опциями
func New(opts ...Option) *Remesher {
	r := &Remesher{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.GetMesherLogger()
	}
	return r
}

// Remesh строит квады для объёма dims с оракулом занятости.
func Remesh(dims vec.Vec3, oracle Oracle) []Quad {
	return New().Remesh(dims, oracle)
}

// Remesh строит квады для объёма dims. Порядок результата: ось, срез,
// построчный обход маски; для одинаковых входов он всегда одинаков.
func (r *Remesher) Remesh(dims vec.Vec3, oracle Oracle) []Quad {
	quads, _ := r.RemeshFallible(dims, func(p vec.Vec3) (bool, error) {
		return oracle(p), nil
	})
	return quads
}

// RemeshFallible работает как Remesh, но прерывает обход на первой ошибке
// оракула. Срез, на котором произошла ошибка, не сливается.
func (r *Remesher) RemeshFallible(dims vec.Vec3, oracle FallibleOracle) ([]Quad, error) {
	dims = vec.Vec3{X: max(dims.X, 0), Y: max(dims.Y, 0), Z: max(dims.Z, 0)}

	var quads []Quad
	for _, norm := range vec.Axes {
		var err error
		quads, err = r.sweep(dims, norm, oracle, quads)
		if err != nil {
			return nil, err
		}
	}
	return quads, nil
}

// sweep обрабатывает все срезы одной оси. Маска выделяется на ось и к
// началу следующего среза всегда пуста.
func (r *Remesher) sweep(dims vec.Vec3, norm vec.Axis, oracle FallibleOracle, quads []Quad) ([]Quad, error) {
	mask := NewMask(dims.Get(norm.Tangent()), dims.Get(norm.Bitangent()))
	before := len(quads)

	for slice := 0; slice <= dims.Get(norm); slice++ {
		if err := mask.fill(norm, slice, oracle); err != nil {
			return nil, err
		}

		stats := SliceStats{Axis: norm, Slice: slice}
		if r.observer != nil {
			stats.Cells = mask.Count()
		}

		mask.Merge(func(rect Rect) {
			quads = append(quads, newQuad(norm, slice, rect))
			stats.Quads++
			stats.Area += rect.Area()
		})

		if r.observer != nil {
			r.observer.ObserveSlice(stats)
		}
	}

	r.logger.Trace("ось %s: %d срезов, %d квадов", norm, dims.Get(norm)+1, len(quads)-before)
	return quads, nil
}

func sampleError(p vec.Vec3, norm vec.Axis, slice int, err error) error {
	return fmt.Errorf("mesher: sample %s on axis %s slice %d: %w", p, norm, slice, err)
}
