package building

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"timberland/backend/internal/collision"
	"timberland/backend/internal/inventory"
)

// GridStep шаг сетки размещения
const GridStep = 2.0

var ErrBlocked = errors.New("место занято")

// Shape размеры постройки
type Shape struct {
	Size    mgl64.Vec3
	CenterY float64
}

// DefaultShapes формы построек по предметам
func DefaultShapes() map[string]Shape {
	wall := Shape{Size: mgl64.Vec3{2, 2, 0.5}, CenterY: 1}
	return map[string]Shape{
		"wall":  wall,
		"fence": {Size: mgl64.Vec3{2, 1, 0.25}, CenterY: 0.5},
		"door":  wall,
	}
}

// Structure размещенная постройка
type Structure struct {
	ID        int              `json:"id"`
	Key       string           `json:"key"`
	Item      string           `json:"item"`
	X         float64          `json:"x"`
	Y         float64          `json:"y"`
	Z         float64          `json:"z"`
	Size      mgl64.Vec3       `json:"size"`
	Collision collision.Handle `json:"-"`
}

// Box возвращает объем постройки
func (s Structure) Box() collision.AABB {
	return collision.NewAABBFromCenter(mgl64.Vec3{s.X, s.Y, s.Z}, s.Size)
}

// Items - часть инвентаря, из которой берутся предметы
type Items interface {
	Count(name string) int
	TakeItem(name string) error
}

// Builder размещает постройки на сетке
// Reserver сообщает объемы, которые освободились временно и будут заняты снова
type Reserver interface {
	Reserved() []collision.AABB
}

type Builder struct {
	set        *collision.Set
	reserver   Reserver
	items      Items
	shapes     map[string]Shape
	structures []Structure
	logger     *log.Logger
}

// NewBuilder создает новый строитель
func NewBuilder(set *collision.Set, items Items, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}

	return &Builder{
		set:    set,
		items:  items,
		shapes: DefaultShapes(),
		logger: logger,
	}
}

// SetReserver задает источник занятых объемов (пни до респавна)
func (b *Builder) SetReserver(reserver Reserver) {
	b.reserver = reserver
}

// Snap привязывает координату к сетке размещения
func Snap(v float64) float64 {
	return math.Round(v/GridStep) * GridStep
}

// Preview возвращает постройку, которая появилась бы в точке, без проверок
func (b *Builder) Preview(item string, target mgl64.Vec2) (Structure, bool) {
	shape, ok := b.shapes[item]
	if !ok {
		return Structure{}, false
	}

	return Structure{
		Item: item,
		X:    Snap(target.X()),
		Y:    shape.CenterY,
		Z:    Snap(target.Y()),
		Size: shape.Size,
	}, true
}

// Place ставит предмет из инвентаря в ближайший узел сетки.
// Постройка не может пересекать твердые объекты и тело актора.
func (b *Builder) Place(item string, target mgl64.Vec2, actorBox collision.AABB) (Structure, error) {
	structure, ok := b.Preview(item, target)
	if !ok {
		return Structure{}, fmt.Errorf("предмет %q нельзя построить", item)
	}

	if b.items.Count(item) <= 0 {
		return Structure{}, fmt.Errorf("постройка %s: %w", item, inventory.ErrNoItem)
	}

	box := structure.Box()
	if box.Intersects(actorBox) {
		return Structure{}, fmt.Errorf("пересечение с игроком: %w", ErrBlocked)
	}
	if b.set.Intersects(box) {
		return Structure{}, fmt.Errorf("(%.0f, %.0f): %w", structure.X, structure.Z, ErrBlocked)
	}
	if b.reserver != nil {
		for _, reserved := range b.reserver.Reserved() {
			if box.Intersects(reserved) {
				return Structure{}, fmt.Errorf("(%.0f, %.0f) занято пнем: %w", structure.X, structure.Z, ErrBlocked)
			}
		}
	}

	if err := b.items.TakeItem(item); err != nil {
		return Structure{}, fmt.Errorf("постройка: %w", err)
	}

	structure.ID = len(b.structures) + 1
	structure.Key = fmt.Sprintf("%s_%d", item, structure.ID)
	structure.Collision = b.set.Insert(structure.Key, collision.KindWall, box)
	b.structures = append(b.structures, structure)

	b.logger.Printf("[Builder] Построено %s в (%.0f, %.0f)", structure.Key, structure.X, structure.Z)
	return structure, nil
}

// Structures возвращает копию списка построек
func (b *Builder) Structures() []Structure {
	result := make([]Structure, len(b.structures))
	copy(result, b.structures)
	return result
}
