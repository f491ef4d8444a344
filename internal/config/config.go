package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервиса перестроения сеток.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Chunk     ChunkConfig     `yaml:"chunk"`
	Terrain   TerrainConfig   `yaml:"terrain"`
	Storage   StorageConfig   `yaml:"storage"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Rebuild   RebuildConfig   `yaml:"rebuild"`
}

type ServerConfig struct {
	HTTPPort    int `yaml:"http_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type ChunkConfig struct {
	SizeX int `yaml:"size_x"`
	SizeY int `yaml:"size_y"`
	SizeZ int `yaml:"size_z"`
}

type TerrainConfig struct {
	Seed          int64   `yaml:"seed"`
	NoiseScale    float64 `yaml:"noise_scale"`
	BiomeScale    float64 `yaml:"biome_scale"`
	CaveScale     float64 `yaml:"cave_scale"`
	CaveThreshold float64 `yaml:"cave_threshold"`
	MaxHeight     int     `yaml:"max_height"`
	SeaLevel      int     `yaml:"sea_level"`
}

type StorageConfig struct {
	Path             string `yaml:"path"`
	InMemory         bool   `yaml:"in_memory"`
	CompressionLevel int    `yaml:"compression_level"` // 1..4, см. zstd.EncoderLevel
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // пусто - шина в памяти
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
	MaxSizeMB    int    `yaml:"max_size_mb"`
	MaxBackups   int    `yaml:"max_backups"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type RebuildConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// GetHTTPPort возвращает порт REST API с поддержкой fallback значений
func (s *ServerConfig) GetHTTPPort() int {
	return getPortWithEnvFallback(s.HTTPPort, "REMESH_HTTP_PORT", 8088)
}

// GetMetricsPort возвращает порт метрик; 0 - метрики отдаются REST сервером
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "REMESH_METRICS_PORT", 0)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Default возвращает полную конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Chunk: ChunkConfig{SizeX: 16, SizeY: 64, SizeZ: 16},
		Terrain: TerrainConfig{
			Seed:          1,
			NoiseScale:    0.05,
			BiomeScale:    0.02,
			CaveScale:     0.1,
			CaveThreshold: 0.72,
			MaxHeight:     48,
			SeaLevel:      12,
		},
		Storage: StorageConfig{
			Path:             "data/meshes",
			CompressionLevel: 2,
		},
		EventBus: EventBusConfig{
			Stream:    "REMESH",
			Retention: 24,
		},
		Logging: LoggingConfig{
			Dir:          "logs",
			ConsoleLevel: "INFO",
			FileLevel:    "DEBUG",
			MaxSizeMB:    50,
			MaxBackups:   5,
		},
		Telemetry: TelemetryConfig{ServiceName: "voxel-remesher"},
		Rebuild:   RebuildConfig{IntervalSeconds: 2},
	}
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV REMESH_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("REMESH_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан, использовать Default()
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет значения, без которых сервис не запустится
func (c *Config) Validate() error {
	if c.Chunk.SizeX <= 0 || c.Chunk.SizeY <= 0 || c.Chunk.SizeZ <= 0 {
		return fmt.Errorf("chunk: размеры должны быть положительными, получено %dx%dx%d",
			c.Chunk.SizeX, c.Chunk.SizeY, c.Chunk.SizeZ)
	}
	if c.Storage.CompressionLevel < 1 || c.Storage.CompressionLevel > 4 {
		return fmt.Errorf("storage: compression_level %d вне диапазона 1..4", c.Storage.CompressionLevel)
	}
	if c.Rebuild.IntervalSeconds < 0 {
		return fmt.Errorf("rebuild: отрицательный interval_seconds %d", c.Rebuild.IntervalSeconds)
	}
	return nil
}
