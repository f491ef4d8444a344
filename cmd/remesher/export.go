package main

import (
	"fmt"
	"io"
	"os"

	"github.com/annel0/voxel-remesher/internal/config"
	"github.com/annel0/voxel-remesher/internal/export"
	"github.com/annel0/voxel-remesher/internal/logging"
	"github.com/annel0/voxel-remesher/internal/mesher"
	"github.com/annel0/voxel-remesher/internal/vec"
	"github.com/annel0/voxel-remesher/internal/world"
	"github.com/annel0/voxel-remesher/internal/world/block"
)

type exportOptions struct {
	Coords vec.Vec3
	Out    string
	Shape  string
	Size   float64
}

// runExport настраивает логи на stderr и выполняет экспорт: без -out
// stdout занят потоком OBJ.
func runExport(cfg *config.Config, o exportOptions, stdout, stderr io.Writer) error {
	opts := logging.Options{ConsoleLevel: logging.INFO, FileLevel: logging.ERROR, ConsoleOverride: stderr}
	if err := logging.InitDefaultLogger("export", opts); err != nil {
		return err
	}
	defer logging.CloseDefaultLogger()
	logging.GetLoggerManager().Configure(opts)

	return exportChunk(cfg, o, stdout)
}

// exportChunk строит один чанк (ландшафт или фигуру SDF) и пишет OBJ
// в файл o.Out или, если он не задан, в stdout
func exportChunk(cfg *config.Config, o exportOptions, stdout io.Writer) (err error) {
	dims := chunkDims(cfg.Chunk)

	var chunk *world.Chunk
	if o.Shape != "" {
		s, err := world.Shape(o.Shape, o.Size)
		if err != nil {
			return err
		}
		// Фигура помещается в чанк, выровненный по её габаритам
		side := int(o.Size + 0.5)
		dims = vec.Vec3{X: side, Y: side, Z: side}
		chunk = world.VoxelizeSDF(s, vec.Vec3{}, dims, 1, block.StoneBlockID)
	} else {
		gen := world.NewGenerator(world.GeneratorConfig{
			Seed:          cfg.Terrain.Seed,
			NoiseScale:    cfg.Terrain.NoiseScale,
			BiomeScale:    cfg.Terrain.BiomeScale,
			CaveScale:     cfg.Terrain.CaveScale,
			CaveThreshold: cfg.Terrain.CaveThreshold,
			MaxHeight:     cfg.Terrain.MaxHeight,
			SeaLevel:      cfg.Terrain.SeaLevel,
		})
		chunk = gen.GenerateChunk(o.Coords, dims)
	}

	snap := chunk.Snapshot()
	quads := mesher.New().Remesh(snap.Dims(), snap.Solid)
	logging.Info("Чанк %s: %d вокселей, %d квадов", chunk.Coords, snap.Count(), len(quads))

	w := stdout
	if o.Out != "" {
		f, err := os.Create(o.Out)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("закрытие %s: %w", o.Out, cerr)
			}
		}()
		w = f
	}

	name := "terrain"
	if o.Shape != "" {
		name = o.Shape
	}
	return export.WriteOBJ(w, quads, export.OBJOptions{
		Oracle:  snap.Solid,
		Offset:  chunk.Origin(),
		Comment: fmt.Sprintf("%s chunk %s", name, chunk.Coords),
	})
}
