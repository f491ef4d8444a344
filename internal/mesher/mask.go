package mesher

import "github.com/annel0/voxel-remesher/internal/vec"

// Rect - прямоугольник в плоскости среза: угол (U,V) и размеры W x H.
type Rect struct {
	U, V int
	W, H int
}

// Area возвращает площадь прямоугольника
func (r Rect) Area() int {
	return r.W * r.H
}

// Mask - двумерная булева маска среза.
// u - координата по tangent, v - по bitangent, stride = width.
type Mask struct {
	width  int
	height int
	cells  []bool
}

// NewMask создаёт маску width x height. Отрицательные размеры считаются нулевыми.
func NewMask(width, height int) *Mask {
	width, height = max(width, 0), max(height, 0)
	return &Mask{
		width:  width,
		height: height,
		cells:  make([]bool, width*height),
	}
}

// index - единственный способ перевести (u, v) в индекс ячейки.
// Им пользуются и заполнение, и слияние.
func (m *Mask) index(u, v int) int {
	return v*m.width + u
}

// Width возвращает размер маски по tangent
func (m *Mask) Width() int { return m.width }

// Height возвращает размер маски по bitangent
func (m *Mask) Height() int { return m.height }

// Get возвращает значение ячейки
func (m *Mask) Get(u, v int) bool {
	return m.cells[m.index(u, v)]
}

// Set устанавливает значение ячейки
func (m *Mask) Set(u, v int, value bool) {
	m.cells[m.index(u, v)] = value
}

// Count возвращает количество установленных ячеек
func (m *Mask) Count() int {
	n := 0
	for _, c := range m.cells {
		if c {
			n++
		}
	}
	return n
}

// Empty сообщает, что в маске не осталось установленных ячеек
func (m *Mask) Empty() bool {
	for _, c := range m.cells {
		if c {
			return false
		}
	}
	return true
}

// Merge жадно разбивает установленные ячейки на максимальные прямоугольники.
// Обход построчный: v по возрастанию, внутри строки u по возрастанию.
// Сначала растёт ширина, затем высота; строка принимается только целиком.
// Покрытые ячейки сбрасываются, после Merge маска пуста.
func (m *Mask) Merge(emit func(Rect)) {
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; {
			if !m.cells[m.index(x, y)] {
				x++
				continue
			}

			w := 1
			for x+w < m.width && m.cells[m.index(x+w, y)] {
				w++
			}

			h := 1
			for y+h < m.height && m.rowFilled(x, y+h, w) {
				h++
			}

			r := Rect{U: x, V: y, W: w, H: h}
			emit(r)
			m.clear(r)

			x += w
		}
	}
}

// rowFilled проверяет, что в строке v установлены все ячейки [u, u+w).
func (m *Mask) rowFilled(u, v, w int) bool {
	for k := u; k < u+w; k++ {
		if !m.cells[m.index(k, v)] {
			return false
		}
	}
	return true
}

func (m *Mask) clear(r Rect) {
	for l := 0; l < r.H; l++ {
		for k := 0; k < r.W; k++ {
			m.cells[m.index(r.U+k, r.V+l)] = false
		}
	}
}

// fill строит маску для среза slice вдоль оси norm: ячейка установлена там,
// где занятость в срезе отличается от занятости на шаг назад по нормали.
// Выход за границы объёма обрабатывает сам оракул (вне объёма - пусто).
func (m *Mask) fill(norm vec.Axis, slice int, sample FallibleOracle) error {
	tan, biTan := norm.Tangent(), norm.Bitangent()
	normal := norm.Unit()

	var cursor vec.Vec3
	cursor = cursor.With(norm, slice)

	for v := 0; v < m.height; v++ {
		cursor = cursor.With(biTan, v)
		for u := 0; u < m.width; u++ {
			cursor = cursor.With(tan, u)

			inSlice, err := sample(cursor)
			if err != nil {
				return sampleError(cursor, norm, slice, err)
			}
			prev := cursor.Sub(normal)
			inPrevious, err := sample(prev)
			if err != nil {
				return sampleError(prev, norm, slice, err)
			}

			m.cells[m.index(u, v)] = inSlice != inPrevious
		}
	}
	return nil
}
