package mesher

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/annel0/voxel-remesher/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testVolume - простое поле занятости, соблюдающее контракт оракула
type testVolume struct {
	dims  vec.Vec3
	solid map[vec.Vec3]bool
}

func newTestVolume(dims vec.Vec3) *testVolume {
	return &testVolume{dims: dims, solid: make(map[vec.Vec3]bool)}
}

func (tv *testVolume) set(x, y, z int) {
	tv.solid[vec.Vec3{X: x, Y: y, Z: z}] = true
}

func (tv *testVolume) fill() {
	for x := 0; x < tv.dims.X; x++ {
		for y := 0; y < tv.dims.Y; y++ {
			for z := 0; z < tv.dims.Z; z++ {
				tv.set(x, y, z)
			}
		}
	}
}

func (tv *testVolume) oracle(p vec.Vec3) bool {
	return tv.dims.Contains(p) && tv.solid[p]
}

func randomVolume(seed int64, dims vec.Vec3, density float64) *testVolume {
	rng := rand.New(rand.NewSource(seed))
	tv := newTestVolume(dims)
	for x := 0; x < dims.X; x++ {
		for y := 0; y < dims.Y; y++ {
			for z := 0; z < dims.Z; z++ {
				if rng.Float64() < density {
					tv.set(x, y, z)
				}
			}
		}
	}
	return tv
}

// recordingObserver запоминает статистику срезов
type recordingObserver struct {
	slices []SliceStats
}

func (o *recordingObserver) ObserveSlice(s SliceStats) {
	o.slices = append(o.slices, s)
}

func TestRemeshEmptyVolume(t *testing.T) {
	quads := Remesh(vec.Vec3{X: 4, Y: 4, Z: 4}, func(vec.Vec3) bool { return false })

	assert.Empty(t, quads, "пустой объём не должен давать граней")
}

func TestRemeshSingleVoxel(t *testing.T) {
	tv := newTestVolume(vec.Vec3{X: 1, Y: 1, Z: 1})
	tv.set(0, 0, 0)

	quads := Remesh(tv.dims, tv.oracle)

	require.Len(t, quads, 6, "единичный куб - шесть граней")
	// Порядок: ось X (срез 0, крышка), ось Y, ось Z
	assert.Equal(t, Quad{
		A: vec.Vec3{X: 0, Y: 0, Z: 0},
		B: vec.Vec3{X: 0, Y: 1, Z: 0},
		C: vec.Vec3{X: 0, Y: 1, Z: 1},
		D: vec.Vec3{X: 0, Y: 0, Z: 1},
	}, quads[0])
	assert.Equal(t, Quad{
		A: vec.Vec3{X: 1, Y: 0, Z: 0},
		B: vec.Vec3{X: 1, Y: 1, Z: 0},
		C: vec.Vec3{X: 1, Y: 1, Z: 1},
		D: vec.Vec3{X: 1, Y: 0, Z: 1},
	}, quads[1])
	// Ось Y: tangent = Z, bitangent = X
	assert.Equal(t, Quad{
		A: vec.Vec3{X: 0, Y: 0, Z: 0},
		B: vec.Vec3{X: 0, Y: 0, Z: 1},
		C: vec.Vec3{X: 1, Y: 0, Z: 1},
		D: vec.Vec3{X: 1, Y: 0, Z: 0},
	}, quads[2])
	// Ось Z: tangent = X, bitangent = Y
	assert.Equal(t, Quad{
		A: vec.Vec3{X: 0, Y: 0, Z: 1},
		B: vec.Vec3{X: 1, Y: 0, Z: 1},
		C: vec.Vec3{X: 1, Y: 1, Z: 1},
		D: vec.Vec3{X: 0, Y: 1, Z: 1},
	}, quads[5])

	for i, q := range quads {
		assert.Equal(t, vec.Axes[i/2], q.Normal())
		assert.Equal(t, 1, q.Area())
	}
}

func TestRemeshSolidBoxMergesFaces(t *testing.T) {
	tv := newTestVolume(vec.Vec3{X: 3, Y: 4, Z: 5})
	tv.fill()

	quads := Remesh(tv.dims, tv.oracle)

	require.Len(t, quads, 6, "сплошной параллелепипед - по одному кваду на грань")
	total := 0
	for _, q := range quads {
		total += q.Area()
	}
	assert.Equal(t, 2*(3*4+4*5+3*5), total)
}

func TestRemeshHollowShell(t *testing.T) {
	tv := newTestVolume(vec.Vec3{X: 3, Y: 3, Z: 3})
	tv.fill()
	delete(tv.solid, vec.Vec3{X: 1, Y: 1, Z: 1})

	quads := Remesh(tv.dims, tv.oracle)

	// Шесть внешних граней 3x3 и шесть граней полости 1x1
	require.Len(t, quads, 12)
	areas := map[int]int{}
	for _, q := range quads {
		areas[q.Area()]++
	}
	assert.Equal(t, map[int]int{9: 6, 1: 6}, areas)
}

func TestRemeshMaskCoverageAndAreaConservation(t *testing.T) {
	tv := randomVolume(7, vec.Vec3{X: 6, Y: 5, Z: 7}, 0.45)
	obs := &recordingObserver{}

	quads := New(WithObserver(obs)).Remesh(tv.dims, tv.oracle)

	type cell struct {
		axis  vec.Axis
		slice int
		pos   vec.Vec3
	}

	// Покрытие: каждая ячейка квада встречается ровно один раз
	covered := make(map[cell]bool)
	for _, q := range quads {
		n := q.Normal()
		size := q.Size()
		for du := 0; du < size.X; du++ {
			for dv := 0; dv < size.Y; dv++ {
				p := q.A.Add(vec.Vec3{}.With(n.Tangent(), du)).Add(vec.Vec3{}.With(n.Bitangent(), dv))
				c := cell{axis: n, slice: q.Slice(), pos: p}
				require.False(t, covered[c], "квады одного среза перекрываются в %s", p)
				covered[c] = true
			}
		}
	}

	// Ожидаемая маска, вычисленная независимо
	expected := make(map[cell]bool)
	for _, n := range vec.Axes {
		for slice := 0; slice <= tv.dims.Get(n); slice++ {
			for u := 0; u < tv.dims.Get(n.Tangent()); u++ {
				for v := 0; v < tv.dims.Get(n.Bitangent()); v++ {
					p := vec.Vec3{}.With(n, slice).With(n.Tangent(), u).With(n.Bitangent(), v)
					if tv.oracle(p) != tv.oracle(p.Sub(n.Unit())) {
						expected[cell{axis: n, slice: slice, pos: p}] = true
					}
				}
			}
		}
	}
	assert.Equal(t, expected, covered, "объединение квадов должно совпадать с масками")

	// Площадь каждого среза равна числу установленных ячеек маски
	require.Len(t, obs.slices, (tv.dims.X+1)+(tv.dims.Y+1)+(tv.dims.Z+1))
	emitted := 0
	for _, s := range obs.slices {
		assert.Equal(t, s.Cells, s.Area, "срез %d оси %s", s.Slice, s.Axis)
		emitted += s.Quads
	}
	assert.Equal(t, len(quads), emitted)
}

func TestRemeshDeterministic(t *testing.T) {
	tv := randomVolume(42, vec.Vec3{X: 8, Y: 8, Z: 8}, 0.5)

	first := Remesh(tv.dims, tv.oracle)
	second := Remesh(tv.dims, tv.oracle)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second, "одинаковый вход - одинаковые квады в одинаковом порядке")
}

func TestRemeshBoundaryContract(t *testing.T) {
	dims := vec.Vec3{X: 2, Y: 3, Z: 4}
	origin := vec.Vec3{}
	outside := map[vec.Vec3]bool{}

	oracle := func(p vec.Vec3) bool {
		if dims.Contains(p) {
			return p == origin
		}
		// Выход допустим только по одной оси и только на -1 или dim
		offAxes := 0
		for _, a := range vec.Axes {
			c := p.Get(a)
			if c < 0 || c >= dims.Get(a) {
				offAxes++
				if c != -1 && c != dims.Get(a) {
					t.Fatalf("запрос слишком далеко за границей: %s", p)
				}
			}
		}
		if offAxes != 1 {
			t.Fatalf("запрос вне объёма сразу по %d осям: %s", offAxes, p)
		}
		outside[p] = true
		return false
	}

	quads := Remesh(dims, oracle)

	require.Len(t, quads, 6)
	assert.True(t, outside[vec.Vec3{X: -1, Y: 0, Z: 0}], "должна запрашиваться ячейка перед объёмом")
	assert.True(t, outside[vec.Vec3{X: 2, Y: 0, Z: 0}], "должна запрашиваться ячейка крышки")
	assert.True(t, outside[vec.Vec3{X: 0, Y: -1, Z: 0}])
	assert.True(t, outside[vec.Vec3{X: 0, Y: 0, Z: 4}])
}

func TestRemeshDegenerateDimension(t *testing.T) {
	dims := vec.Vec3{X: 0, Y: 3, Z: 3}
	obs := &recordingObserver{}

	// Оракул "всё занято" в пределах объёма; при X = 0 объём пуст
	quads := New(WithObserver(obs)).Remesh(dims, dims.Contains)

	assert.Empty(t, quads)
	for _, s := range obs.slices {
		assert.Zero(t, s.Cells, "срез %d оси %s", s.Slice, s.Axis)
	}
}

func TestRemeshNegativeDimensionIsZero(t *testing.T) {
	assert.NotPanics(t, func() {
		quads := Remesh(vec.Vec3{X: -2, Y: 3, Z: 3}, func(vec.Vec3) bool { return true })
		assert.Empty(t, quads)
	})
}

var errStorage = errors.New("storage unavailable")

func TestRemeshFallibleStopsOnError(t *testing.T) {
	dims := vec.Vec3{X: 2, Y: 2, Z: 2}
	broken := vec.Vec3{X: 1, Y: 1, Z: 1}
	obs := &recordingObserver{}

	quads, err := New(WithObserver(obs)).RemeshFallible(dims, func(p vec.Vec3) (bool, error) {
		if p == broken {
			return false, errStorage
		}
		return dims.Contains(p), nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errStorage)
	assert.Contains(t, err.Error(), "axis x slice 1")
	assert.Nil(t, quads)
	// Срез с ошибкой не доходит до слияния
	assert.Len(t, obs.slices, 1)
}

func TestRemeshFallibleSuccess(t *testing.T) {
	tv := randomVolume(3, vec.Vec3{X: 4, Y: 4, Z: 4}, 0.5)

	quads, err := New().RemeshFallible(tv.dims, func(p vec.Vec3) (bool, error) {
		return tv.oracle(p), nil
	})

	require.NoError(t, err)
	assert.Equal(t, Remesh(tv.dims, tv.oracle), quads)
}

func TestQuadFacing(t *testing.T) {
	tv := newTestVolume(vec.Vec3{X: 1, Y: 1, Z: 1})
	tv.set(0, 0, 0)

	quads := Remesh(tv.dims, tv.oracle)
	require.Len(t, quads, 6)

	// Срез 0: твёрдое впереди - грань смотрит в -normal
	assert.Equal(t, -1, quads[0].Facing(tv.oracle))
	// Крышка: твёрдое позади - грань смотрит в +normal
	assert.Equal(t, 1, quads[1].Facing(tv.oracle))

	front := quads[0].Oriented(tv.oracle)
	assert.Equal(t, quads[0].A, front.A)
	assert.Equal(t, quads[0].D, front.B)
	assert.Equal(t, quads[0].B, front.D)
	assert.Equal(t, quads[1], quads[1].Oriented(tv.oracle))
}

func TestNewQuadGeometry(t *testing.T) {
	q := newQuad(vec.AxisZ, 3, Rect{U: 1, V: 2, W: 4, H: 5})

	assert.Equal(t, vec.Vec3{X: 1, Y: 2, Z: 3}, q.A)
	assert.Equal(t, vec.Vec3{X: 5, Y: 2, Z: 3}, q.B)
	assert.Equal(t, vec.Vec3{X: 5, Y: 7, Z: 3}, q.C)
	assert.Equal(t, vec.Vec3{X: 1, Y: 7, Z: 3}, q.D)
	assert.Equal(t, vec.AxisZ, q.Normal())
	assert.Equal(t, vec.Vec2{X: 4, Y: 5}, q.Size())
	assert.Equal(t, 20, q.Area())
	assert.Equal(t, 3, q.Slice())
}
