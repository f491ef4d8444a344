package implementations

import "github.com/annel0/voxel-remesher/internal/world/block"

// Регистрируем все типы блоков при импорте пакета
func init() {
	block.Register(block.AirBlockID, &AirBehavior{})
	block.Register(block.StoneBlockID, &StoneBehavior{})
	block.Register(block.GrassBlockID, &GrassBehavior{})
	block.Register(block.WaterBlockID, &WaterBehavior{})
	block.Register(block.SandBlockID, &SandBehavior{})
	block.Register(block.DirtBlockID, &DirtBehavior{})
}
