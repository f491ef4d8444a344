package util

import (
	"github.com/aquilax/go-perlin"
)

// Параметры шума Перлина
const (
	noiseAlpha   = 2.0      // Сглаживание шума
	noiseBeta    = 2.0      // Частота шума
	noiseOctaves = int32(3) // Количество октав
)

// Noise - детерминированный генератор шума Перлина для одного сида.
// Значения нормализованы в диапазон [0, 1].
type Noise struct {
	seed int64
	p    *perlin.Perlin
}

// NewNoise создаёт генератор шума с указанным сидом
func NewNoise(seed int64) *Noise {
	return &Noise{
		seed: seed,
		p:    perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed),
	}
}

// Seed возвращает сид генератора
func (n *Noise) Seed() int64 { return n.seed }

// Noise2D возвращает значение шума для указанных координат (от 0 до 1)
func (n *Noise) Noise2D(x, y float64) float64 {
	return normalize(n.p.Noise2D(x, y))
}

// Noise3D возвращает трёхмерный шум (от 0 до 1)
func (n *Noise) Noise3D(x, y, z float64) float64 {
	return normalize(n.p.Noise3D(x, y, z))
}

// normalize переводит шум из [-1, 1] в [0, 1]
func normalize(v float64) float64 {
	v = (v + 1.0) / 2.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
