package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/annel0/voxel-remesher/internal/config"
	"github.com/annel0/voxel-remesher/internal/logging"
	"github.com/annel0/voxel-remesher/internal/vec"
	_ "github.com/annel0/voxel-remesher/internal/world/block/implementations"
)

const version = "0.3.0"

func main() {
	var (
		configPath = flag.String("config", "", "YAML config (по умолчанию $REMESH_CONFIG)")
		command    = flag.String("cmd", "serve", "Command: serve, export")
		out        = flag.String("out", "", "export: файл OBJ (по умолчанию stdout)")
		chunkArg   = flag.String("chunk", "0,0,0", "export: координаты чанка x,y,z")
		shape      = flag.String("shape", "", "export: sphere, box, cylinder, rounded-box вместо ландшафта")
		size       = flag.Float64("size", 12, "export: размер фигуры в вокселях")
		seed       = flag.Int64("seed", 0, "export: сид ландшафта (0 - из конфига)")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Ошибка конфигурации: %v", err)
	}

	switch *command {
	case "serve":
		if err := serve(cfg); err != nil {
			log.Fatalf("Сервер остановлен с ошибкой: %v", err)
		}

	case "export":
		coords, err := parseVec3(*chunkArg)
		if err != nil {
			log.Fatalf("Неверный -chunk: %v", err)
		}
		if *seed != 0 {
			cfg.Terrain.Seed = *seed
		}
		if err := runExport(cfg, exportOptions{
			Coords: coords,
			Out:    *out,
			Shape:  *shape,
			Size:   *size,
		}, os.Stdout, os.Stderr); err != nil {
			log.Fatalf("Экспорт не удался: %v", err)
		}

	default:
		flag.Usage()
		log.Fatalf("Неизвестная команда %q", *command)
	}
}

// loadConfig читает конфиг; без файла используются значения по умолчанию
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

// loggingOptions переводит секцию logging в настройки логгера
func loggingOptions(c config.LoggingConfig) (logging.Options, error) {
	opts := logging.DefaultOptions()
	opts.Dir = c.Dir

	if c.ConsoleLevel != "" {
		lvl, err := logging.ParseLevel(c.ConsoleLevel)
		if err != nil {
			return opts, err
		}
		opts.ConsoleLevel = lvl
	}
	if c.FileLevel != "" {
		lvl, err := logging.ParseLevel(c.FileLevel)
		if err != nil {
			return opts, err
		}
		opts.FileLevel = lvl
	}
	if c.MaxSizeMB > 0 {
		opts.MaxSizeMB = c.MaxSizeMB
	}
	if c.MaxBackups > 0 {
		opts.MaxBackups = c.MaxBackups
	}
	return opts, nil
}

func chunkDims(c config.ChunkConfig) vec.Vec3 {
	return vec.Vec3{X: c.SizeX, Y: c.SizeY, Z: c.SizeZ}
}

// parseVec3 разбирает строку вида "x,y,z"
func parseVec3(s string) (vec.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return vec.Vec3{}, fmt.Errorf("ожидалось x,y,z, получено %q", s)
	}
	var xyz [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return vec.Vec3{}, fmt.Errorf("компонента %d: %w", i, err)
		}
		xyz[i] = n
	}
	return vec.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}
