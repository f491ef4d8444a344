package world

import (
	"math/bits"

	"github.com/annel0/voxel-remesher/internal/vec"
)

// Occupancy - плотный битовый снимок занятости с тем же порядком ячеек,
// что и Chunk.Blocks.
type Occupancy struct {
	dims     vec.Vec3
	bits     []uint64
	revision uint64
}

// NewOccupancy создаёт пустой снимок размером dims
func NewOccupancy(dims vec.Vec3) *Occupancy {
	return &Occupancy{
		dims: dims,
		bits: make([]uint64, (dims.Volume()+63)/64),
	}
}

// Dims возвращает размер снимка
func (o *Occupancy) Dims() vec.Vec3 { return o.dims }

// Revision возвращает ревизию чанка, с которой снят снимок
func (o *Occupancy) Revision() uint64 { return o.revision }

func (o *Occupancy) index(p vec.Vec3) int {
	return p.X + p.Y*o.dims.X + p.Z*o.dims.X*o.dims.Y
}

// Solid - оракул занятости: false для любой координаты вне [0, dims).
func (o *Occupancy) Solid(p vec.Vec3) bool {
	if !o.dims.Contains(p) {
		return false
	}
	i := o.index(p)
	return o.bits[i/64]&(1<<(uint(i)%64)) != 0
}

// Set помечает ячейку; вне объёма игнорируется
func (o *Occupancy) Set(p vec.Vec3, solid bool) {
	if !o.dims.Contains(p) {
		return
	}
	i := o.index(p)
	if solid {
		o.bits[i/64] |= 1 << (uint(i) % 64)
	} else {
		o.bits[i/64] &^= 1 << (uint(i) % 64)
	}
}

// Count возвращает количество занятых ячеек
func (o *Occupancy) Count() int {
	n := 0
	for _, w := range o.bits {
		n += bits.OnesCount64(w)
	}
	return n
}
