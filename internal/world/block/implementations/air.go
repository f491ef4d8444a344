package implementations

import "github.com/annel0/voxel-remesher/internal/world/block"

// AirBehavior реализует поведение пустого блока (воздуха)
type AirBehavior struct{}

// ID возвращает идентификатор блока
func (b *AirBehavior) ID() block.BlockID {
	return block.AirBlockID
}

// Name возвращает имя блока
func (b *AirBehavior) Name() string {
	return "Air"
}

// Solid возвращает false: воздух не даёт граней
func (b *AirBehavior) Solid() bool {
	return false
}
