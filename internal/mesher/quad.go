package mesher

import "github.com/annel0/voxel-remesher/internal/vec"

// Quad - прямоугольная грань в решётке: A = base, B = base+du,
// C = base+du+dv, D = base+dv. du идёт вдоль tangent, dv - вдоль bitangent,
// поэтому du x dv всегда смотрит в +normal.
type Quad struct {
	A, B, C, D vec.Vec3
}

// newQuad строит квад для прямоугольника маски на срезе slice оси norm.
func newQuad(norm vec.Axis, slice int, r Rect) Quad {
	var base vec.Vec3
	base = base.With(norm, slice).
		With(norm.Tangent(), r.U).
		With(norm.Bitangent(), r.V)

	du := vec.Vec3{}.With(norm.Tangent(), r.W)
	dv := vec.Vec3{}.With(norm.Bitangent(), r.H)

	return Quad{
		A: base,
		B: base.Add(du),
		C: base.Add(du).Add(dv),
		D: base.Add(dv),
	}
}

// Normal возвращает ось, перпендикулярную плоскости квада
// (компоненту, одинаковую у всех четырёх углов).
func (q Quad) Normal() vec.Axis {
	for _, a := range vec.Axes {
		if q.A.Get(a) == q.B.Get(a) && q.A.Get(a) == q.C.Get(a) && q.A.Get(a) == q.D.Get(a) {
			return a
		}
	}
	return vec.AxisX
}

// Size возвращает размеры квада (ширина по tangent, высота по bitangent)
func (q Quad) Size() vec.Vec2 {
	d := q.C.Sub(q.A)
	n := q.Normal()
	w, h := d.Get(n.Tangent()), d.Get(n.Bitangent())
	if w < 0 {
		w = -w
	}
	if h < 0 {
		h = -h
	}
	return vec.Vec2{X: w, Y: h}
}

// Area возвращает площадь квада в единицах решётки
func (q Quad) Area() int {
	return q.Size().Area()
}

// Slice возвращает координату плоскости квада по нормали
func (q Quad) Slice() int {
	return q.A.Get(q.Normal())
}

// Facing определяет, куда смотрит грань: +1, если твёрдый воксель лежит
// позади квада (A - normal), иначе -1. Маска этого не различает,
// поэтому направление берётся повторной выборкой оракула. Если квад
// объединил грани разной ориентации, решает его первая ячейка.
func (q Quad) Facing(oracle Oracle) int {
	behind := q.A.Sub(q.Normal().Unit())
	if oracle(behind) {
		return 1
	}
	return -1
}

// Oriented возвращает квад с обходом против часовой стрелки, если смотреть
// со стороны пустого пространства.
func (q Quad) Oriented(oracle Oracle) Quad {
	if q.Facing(oracle) > 0 {
		return q
	}
	return Quad{A: q.A, B: q.D, C: q.C, D: q.B}
}

// Corners возвращает углы квада в порядке обхода
func (q Quad) Corners() [4]vec.Vec3 {
	return [4]vec.Vec3{q.A, q.B, q.C, q.D}
}
