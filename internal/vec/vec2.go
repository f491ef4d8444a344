package vec

// Vec2 представляет 2D координаты в плоскости среза (u - tangent, v - bitangent)
type Vec2 struct {
	X, Y int
}

// Area возвращает площадь прямоугольника размером v
func (v Vec2) Area() int {
	return v.X * v.Y
}
