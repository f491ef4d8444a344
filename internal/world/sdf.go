package world

import (
	"fmt"

	"github.com/annel0/voxel-remesher/internal/vec"
	"github.com/annel0/voxel-remesher/internal/world/block"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// VoxelizeSDF заполняет чанк блоком id там, где поле расстояния в центре
// вокселя неположительно. scale - размер вокселя в единицах SDF;
// мировые координаты вокселя = Origin() + local.
func VoxelizeSDF(s sdf.SDF3, coords, dims vec.Vec3, scale float64, id block.BlockID) *Chunk {
	chunk := NewChunk(coords, dims)
	origin := chunk.Origin()

	for z := 0; z < dims.Z; z++ {
		for y := 0; y < dims.Y; y++ {
			for x := 0; x < dims.X; x++ {
				p := v3.Vec{
					X: (float64(origin.X+x) + 0.5) * scale,
					Y: (float64(origin.Y+y) + 0.5) * scale,
					Z: (float64(origin.Z+z) + 0.5) * scale,
				}
				if s.Evaluate(p) <= 0 {
					chunk.Blocks[chunk.index(vec.Vec3{X: x, Y: y, Z: z})] = id
				}
			}
		}
	}

	return chunk
}

// Shape строит одну из стандартных фигур размером size, с минимальным
// углом ограничивающего бокса в начале координат.
func Shape(name string, size float64) (sdf.SDF3, error) {
	var (
		s   sdf.SDF3
		err error
	)

	switch name {
	case "sphere":
		s, err = sdf.Sphere3D(size / 2)
	case "box":
		s, err = sdf.Box3D(v3.Vec{X: size, Y: size, Z: size}, 0)
	case "cylinder":
		s, err = sdf.Cylinder3D(size, size/2, 0)
	case "rounded-box":
		s, err = sdf.Box3D(v3.Vec{X: size, Y: size, Z: size}, size/4)
	default:
		return nil, fmt.Errorf("неизвестная фигура %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("sdfx %s: %w", name, err)
	}

	// Фигуры sdfx центрированы; сдвигаем к минимальному углу
	m := sdf.Translate3d(v3.Vec{X: size / 2, Y: size / 2, Z: size / 2})
	return sdf.Transform3D(s, m), nil
}
