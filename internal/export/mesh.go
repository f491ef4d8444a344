// Package export переводит квады ремешера в форматы для рендера:
// треугольную сетку и Wavefront OBJ.
package export

import (
	"github.com/annel0/voxel-remesher/internal/mesher"
	"github.com/annel0/voxel-remesher/internal/vec"
)

// Mesh - треугольная сетка в плоских массивах
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] треугольники
}

// VertexCount возвращает число вершин
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount возвращает число треугольников
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Triangulate разбивает каждый квад на два треугольника (A,B,C) и (A,C,D).
// Вершины не разделяются между квадами: у каждой грани своя нормаль.
// С оракулом квады ориентируются наружу, без него сохраняется обход по
// умолчанию (нормаль вдоль положительной оси).
func Triangulate(quads []mesher.Quad, oracle mesher.Oracle) *Mesh {
	m := &Mesh{
		Vertices: make([]float32, 0, len(quads)*12),
		Normals:  make([]float32, 0, len(quads)*12),
		Indices:  make([]uint32, 0, len(quads)*6),
	}

	for _, q := range quads {
		n := faceNormal(q, oracle)
		if oracle != nil {
			q = q.Oriented(oracle)
		}

		base := uint32(m.VertexCount())
		for _, c := range q.Corners() {
			m.Vertices = append(m.Vertices, float32(c.X), float32(c.Y), float32(c.Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
		}
		m.Indices = append(m.Indices,
			base, base+1, base+2,
			base, base+2, base+3,
		)
	}

	return m
}

// faceNormal возвращает единичную нормаль грани со знаком
func faceNormal(q mesher.Quad, oracle mesher.Oracle) vec.Vec3 {
	n := q.Normal().Unit()
	if oracle != nil && q.Facing(oracle) < 0 {
		return vec.Vec3{}.Sub(n)
	}
	return n
}
