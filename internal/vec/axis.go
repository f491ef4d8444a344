package vec

// Axis выбирает компоненту [x, y, z] вектора Vec3.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ

	AxisCount // всегда последний: количество осей
)

// Axes перечисляет оси в порядке обхода.
var Axes = [AxisCount]Axis{AxisX, AxisY, AxisZ}

// Tangent возвращает "правую" ось плоскости среза: (a+1) mod 3
func (a Axis) Tangent() Axis {
	return (a + 1) % AxisCount
}

// Bitangent возвращает "нижнюю" ось плоскости среза: (a+2) mod 3
func (a Axis) Bitangent() Axis {
	return (a + 2) % AxisCount
}

// Unit возвращает единичный вектор вдоль оси
func (a Axis) Unit() Vec3 {
	return Vec3{}.With(a, 1)
}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "unknown"
	}
}
