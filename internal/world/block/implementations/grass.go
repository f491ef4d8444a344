package implementations

import "github.com/annel0/voxel-remesher/internal/world/block"

// GrassBehavior - верхний слой земли. Материал на слияние граней не влияет.
type GrassBehavior struct{}

func (b *GrassBehavior) ID() block.BlockID {
	return block.GrassBlockID
}

func (b *GrassBehavior) Name() string {
	return "Grass"
}

func (b *GrassBehavior) Solid() bool {
	return true
}

// SandBehavior реализует поведение блока песка
type SandBehavior struct{}

func (b *SandBehavior) ID() block.BlockID {
	return block.SandBlockID
}

func (b *SandBehavior) Name() string {
	return "Sand"
}

func (b *SandBehavior) Solid() bool {
	return true
}
