package game

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"timberland/backend/internal/collision"
)

// Player - единственный игрок сессии
type Player struct {
	Position mgl64.Vec3
	Yaw      float64 // Поворот вокруг оси Y, радианы
	Forward  float64 // Ось вперед/назад в [-1, 1]
	Strafe   float64 // Ось влево/вправо в [-1, 1]
	Speed    float64 // Единиц в секунду
	BodySize mgl64.Vec3
}

// NewPlayer создает игрока в точке появления рядом с верстаком
func NewPlayer(speed float64) *Player {
	return &Player{
		Position: mgl64.Vec3{0, 1, -1},
		Speed:    speed,
		BodySize: mgl64.Vec3{1, 2, 1},
	}
}

// BodyAt возвращает объем тела игрока в точке
func (p *Player) BodyAt(pos mgl64.Vec3) collision.AABB {
	return collision.NewAABBFromCenter(pos, p.BodySize)
}

// Body возвращает объем тела игрока в текущей позиции
func (p *Player) Body() collision.AABB {
	return p.BodyAt(p.Position)
}

// Direction возвращает единичное направление движения в мире с учетом поворота.
// Вперед - это -Z при нулевом повороте.
func (p *Player) Direction() mgl64.Vec3 {
	dir := mgl64.Vec3{p.Strafe, 0, -p.Forward}
	if dir.Len() == 0 {
		return mgl64.Vec3{}
	}
	dir = dir.Normalize()

	sin, cos := math.Sincos(p.Yaw)
	return mgl64.Vec3{
		dir.X()*cos + dir.Z()*sin,
		0,
		-dir.X()*sin + dir.Z()*cos,
	}
}

// Facing возвращает точку на земле на расстоянии dist перед игроком
func (p *Player) Facing(dist float64) mgl64.Vec2 {
	sin, cos := math.Sincos(p.Yaw)
	// Вектор (0, 0, -1), повернутый на Yaw
	return mgl64.Vec2{p.Position.X() - sin*dist, p.Position.Z() - cos*dist}
}

func (p *Player) view() PlayerView {
	return PlayerView{X: p.Position.X(), Y: p.Position.Y(), Z: p.Position.Z(), Yaw: p.Yaw}
}

func clampAxis(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
