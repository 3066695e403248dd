package collision

import "github.com/go-gl/mathgl/mgl64"

// AABB - выровненный по осям ограничивающий объем
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// NewAABBFromCenter создает объем по центру и полным размерам
func NewAABBFromCenter(center, size mgl64.Vec3) AABB {
	half := size.Mul(0.5)
	return AABB{
		Min: center.Sub(half),
		Max: center.Add(half),
	}
}

// Center возвращает центр объема
func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Size возвращает полные размеры объема
func (a AABB) Size() mgl64.Vec3 {
	return a.Max.Sub(a.Min)
}

// Intersects проверяет пересечение двух объемов. Касание гранями считается пересечением.
func (a AABB) Intersects(b AABB) bool {
	return a.Min.X() <= b.Max.X() && a.Max.X() >= b.Min.X() &&
		a.Min.Y() <= b.Max.Y() && a.Max.Y() >= b.Min.Y() &&
		a.Min.Z() <= b.Max.Z() && a.Max.Z() >= b.Min.Z()
}

// Translate возвращает объем, сдвинутый на offset
func (a AABB) Translate(offset mgl64.Vec3) AABB {
	return AABB{Min: a.Min.Add(offset), Max: a.Max.Add(offset)}
}
