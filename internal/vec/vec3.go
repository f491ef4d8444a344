package vec

import "fmt"

// Vec3 представляет трехмерный вектор с целочисленными координатами
type Vec3 struct {
	X int
	Y int
	Z int
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub вычитает вектор other
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Get возвращает компоненту вектора по оси
func (v Vec3) Get(a Axis) int {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// With возвращает копию вектора с заменённой компонентой
func (v Vec3) With(a Axis, value int) Vec3 {
	switch a {
	case AxisX:
		v.X = value
	case AxisY:
		v.Y = value
	default:
		v.Z = value
	}
	return v
}

// Volume возвращает количество ячеек в объёме с такими размерами.
// Отрицательные размеры считаются нулевыми.
func (v Vec3) Volume() int {
	if v.X <= 0 || v.Y <= 0 || v.Z <= 0 {
		return 0
	}
	return v.X * v.Y * v.Z
}

// Contains проверяет, что точка лежит в [0, v) по всем осям
func (v Vec3) Contains(p Vec3) bool {
	return p.X >= 0 && p.X < v.X &&
		p.Y >= 0 && p.Y < v.Y &&
		p.Z >= 0 && p.Z < v.Z
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z)
}
