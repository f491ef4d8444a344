package implementations

import "github.com/annel0/voxel-remesher/internal/world/block"

// DirtBehavior реализует поведение блока земли
type DirtBehavior struct{}

func (b *DirtBehavior) ID() block.BlockID {
	return block.DirtBlockID
}

func (b *DirtBehavior) Name() string {
	return "Dirt"
}

func (b *DirtBehavior) Solid() bool {
	return true
}
