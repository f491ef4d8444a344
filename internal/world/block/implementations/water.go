package implementations

import "github.com/annel0/voxel-remesher/internal/world/block"

// WaterBehavior реализует поведение воды. Вода прозрачна для поля
// занятости: грани суши под водой строятся.
type WaterBehavior struct{}

// ID возвращает идентификатор блока
func (b *WaterBehavior) ID() block.BlockID {
	return block.WaterBlockID
}

// Name возвращает имя блока
func (b *WaterBehavior) Name() string {
	return "Water"
}

// Solid возвращает false
func (b *WaterBehavior) Solid() bool {
	return false
}
