package world

import (
	"github.com/annel0/voxel-remesher/internal/util"
	"github.com/annel0/voxel-remesher/internal/vec"
	"github.com/annel0/voxel-remesher/internal/world/block"
)

// BiomeType представляет тип биома
type BiomeType int

const (
	BiomePlains BiomeType = iota
	BiomeDesert
	BiomeMountains
)

// GeneratorConfig задаёт параметры ландшафта
type GeneratorConfig struct {
	Seed          int64   // Сид для генерации шума
	NoiseScale    float64 // Масштаб шума высот
	BiomeScale    float64 // Масштаб шума биомов
	CaveScale     float64 // Масштаб 3D шума пещер
	CaveThreshold float64 // Выше порога - пустота (0 отключает пещеры)
	MaxHeight     int     // Максимальная высота поверхности (мировой Y)
	SeaLevel      int     // Ниже уровня моря пустоты заполняются водой
}

// DefaultGeneratorConfig возвращает настройки по умолчанию
func DefaultGeneratorConfig(seed int64) GeneratorConfig {
	return GeneratorConfig{
		Seed:          seed,
		NoiseScale:    0.05, // Настройка сглаженности ландшафта
		BiomeScale:    0.02, // Настройка размера биомов
		CaveScale:     0.1,
		CaveThreshold: 0.72,
		MaxHeight:     48,
		SeaLevel:      12,
	}
}

// Generator генерирует чанки ландшафта. Результат зависит только от сида
// и координат чанка.
type Generator struct {
	cfg    GeneratorConfig
	height *util.Noise
	biome  *util.Noise
	caves  *util.Noise
}

// NewGenerator создаёт генератор
func NewGenerator(cfg GeneratorConfig) *Generator {
	return &Generator{
		cfg:    cfg,
		height: util.NewNoise(cfg.Seed),
		biome:  util.NewNoise(cfg.Seed + 42),
		caves:  util.NewNoise(cfg.Seed + 7919),
	}
}

// Config возвращает параметры генератора
func (g *Generator) Config() GeneratorConfig {
	return g.cfg
}

// SurfaceHeight возвращает мировую высоту поверхности в столбце (x, z)
func (g *Generator) SurfaceHeight(x, z int) int {
	h := g.height.Noise2D(float64(x)*g.cfg.NoiseScale, float64(z)*g.cfg.NoiseScale)
	return int(h * float64(g.cfg.MaxHeight))
}

// GenerateChunk генерирует чанк по его координатам
func (g *Generator) GenerateChunk(coords, dims vec.Vec3) *Chunk {
	chunk := NewChunk(coords, dims)
	origin := chunk.Origin()

	for z := 0; z < dims.Z; z++ {
		for x := 0; x < dims.X; x++ {
			wx, wz := origin.X+x, origin.Z+z
			surface := g.SurfaceHeight(wx, wz)
			biome := g.biomeAt(wx, wz, surface)

			for y := 0; y < dims.Y; y++ {
				wy := origin.Y + y
				id := g.blockAt(wx, wy, wz, surface, biome)
				if id == block.AirBlockID {
					continue
				}
				chunk.Blocks[chunk.index(vec.Vec3{X: x, Y: y, Z: z})] = id
			}
		}
	}

	return chunk
}

// blockAt определяет блок в мировой точке
func (g *Generator) blockAt(wx, wy, wz, surface int, biome BiomeType) block.BlockID {
	if wy >= surface {
		if wy < g.cfg.SeaLevel {
			return block.WaterBlockID
		}
		return block.AirBlockID
	}

	// Пещеры не выходят на поверхность и не прорезают дно мира
	if g.cfg.CaveThreshold > 0 && wy > 0 && wy < surface-2 {
		d := g.caves.Noise3D(float64(wx)*g.cfg.CaveScale, float64(wy)*g.cfg.CaveScale, float64(wz)*g.cfg.CaveScale)
		if d > g.cfg.CaveThreshold {
			return block.AirBlockID
		}
	}

	depth := surface - 1 - wy
	switch {
	case depth == 0:
		return g.surfaceBlock(biome, surface)
	case depth < 3 && biome != BiomeMountains:
		return block.DirtBlockID
	default:
		return block.StoneBlockID
	}
}

func (g *Generator) surfaceBlock(biome BiomeType, surface int) block.BlockID {
	if surface <= g.cfg.SeaLevel+1 {
		return block.SandBlockID
	}
	switch biome {
	case BiomeDesert:
		return block.SandBlockID
	case BiomeMountains:
		return block.StoneBlockID
	default:
		return block.GrassBlockID
	}
}

// biomeAt определяет тип биома на основе высоты и шума биомов
func (g *Generator) biomeAt(wx, wz, surface int) BiomeType {
	if surface > g.cfg.MaxHeight*4/5 {
		return BiomeMountains
	}
	v := g.biome.Noise2D(float64(wx)*g.cfg.BiomeScale, float64(wz)*g.cfg.BiomeScale)
	if v < 0.35 {
		return BiomeDesert
	}
	return BiomePlains
}
