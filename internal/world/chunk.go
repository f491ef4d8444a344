package world

import (
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/voxel-remesher/internal/vec"
	"github.com/annel0/voxel-remesher/internal/world/block"
)

// ErrOutOfRange возвращается при обращении к ячейке вне чанка
var ErrOutOfRange = errors.New("координаты вне чанка")

// Chunk представляет прямоугольный участок мира размером Dims блоков
type Chunk struct {
	Coords vec.Vec3 // Координаты чанка в мире (в чанках)
	Dims   vec.Vec3 // Размер чанка в блоках

	// Blocks хранится плоско: x + y*Dims.X + z*Dims.X*Dims.Y
	Blocks []block.BlockID

	Changes       map[vec.Vec3]struct{} // Изменённые блоки с последнего сохранения
	ChangeCounter int                   // Счетчик изменений
	Revision      uint64                // Растёт при каждом изменении занятости или блоков

	Mu sync.RWMutex // Мьютекс для безопасного доступа
}

// NewChunk создаёт новый пустой (воздух) чанк
func NewChunk(coords, dims vec.Vec3) *Chunk {
	return &Chunk{
		Coords:  coords,
		Dims:    dims,
		Blocks:  make([]block.BlockID, dims.Volume()),
		Changes: make(map[vec.Vec3]struct{}),
	}
}

// Origin возвращает мировые координаты локальной точки (0,0,0)
func (c *Chunk) Origin() vec.Vec3 {
	return vec.Vec3{
		X: c.Coords.X * c.Dims.X,
		Y: c.Coords.Y * c.Dims.Y,
		Z: c.Coords.Z * c.Dims.Z,
	}
}

// index переводит локальные координаты в индекс Blocks
func (c *Chunk) index(local vec.Vec3) int {
	return local.X + local.Y*c.Dims.X + local.Z*c.Dims.X*c.Dims.Y
}

// GetBlock возвращает ID блока по локальным координатам.
// Вне чанка возвращается воздух.
func (c *Chunk) GetBlock(local vec.Vec3) block.BlockID {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	if !c.Dims.Contains(local) {
		return block.AirBlockID
	}
	return c.Blocks[c.index(local)]
}

// SetBlock устанавливает блок по локальным координатам
func (c *Chunk) SetBlock(local vec.Vec3, id block.BlockID) error {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	if !c.Dims.Contains(local) {
		return fmt.Errorf("%w: %s при размере %s", ErrOutOfRange, local, c.Dims)
	}

	i := c.index(local)
	if c.Blocks[i] == id {
		return nil
	}

	c.Blocks[i] = id
	c.Changes[local] = struct{}{}
	c.ChangeCounter++
	c.Revision++
	return nil
}

// Solid - оракул занятости чанка: false вне чанка.
func (c *Chunk) Solid(local vec.Vec3) bool {
	return block.IsSolid(c.GetBlock(local))
}

// CurrentRevision возвращает ревизию под блокировкой
func (c *Chunk) CurrentRevision() uint64 {
	c.Mu.RLock()
	defer c.Mu.RUnlock()
	return c.Revision
}

// HasChanges возвращает true, если в чанке есть изменения
func (c *Chunk) HasChanges() bool {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	return c.ChangeCounter > 0
}

// ClearChanges очищает список изменений (ревизия сохраняется)
func (c *Chunk) ClearChanges() {
	c.Mu.Lock()
	defer c.Mu.Unlock()

	c.Changes = make(map[vec.Vec3]struct{})
	c.ChangeCounter = 0
}

// Snapshot фиксирует занятость чанка. Снимок неизменяем и читается
// без блокировок.
func (c *Chunk) Snapshot() *Occupancy {
	c.Mu.RLock()
	defer c.Mu.RUnlock()

	occ := NewOccupancy(c.Dims)
	occ.revision = c.Revision
	for i, id := range c.Blocks {
		if block.IsSolid(id) {
			occ.bits[i/64] |= 1 << (uint(i) % 64)
		}
	}
	return occ
}
