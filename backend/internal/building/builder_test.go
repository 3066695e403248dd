package building

import (
	"errors"
	"io"
	"log"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"timberland/backend/internal/collision"
	"timberland/backend/internal/inventory"
)

func createTestBuilder(walls int) (*Builder, *inventory.Inventory, *collision.Set) {
	set := collision.NewSet(collision.DefaultCellSize)
	inv := inventory.New()
	for i := 0; i < walls; i++ {
		inv.AddItem("wall")
	}
	return NewBuilder(set, inv, log.New(io.Discard, "", 0)), inv, set
}

// MockReserver для тестирования
type MockReserver []collision.AABB

func (mr MockReserver) Reserved() []collision.AABB { return mr }

func farActor() collision.AABB {
	return collision.NewAABBFromCenter(mgl64.Vec3{50, 1, 50}, mgl64.Vec3{1, 2, 1})
}

func TestSnap(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{0.9, 0},
		{1.1, 2},
		{2.9, 2},
		{3.2, 4},
		{-1.1, -2},
		{-0.4, 0},
	}

	for _, tt := range tests {
		if got := Snap(tt.in); got != tt.want {
			t.Errorf("Snap(%.1f) = %.1f, want %.1f", tt.in, got, tt.want)
		}
	}
}

func TestBuilder_PlaceWall(t *testing.T) {
	builder, inv, set := createTestBuilder(1)

	structure, err := builder.Place("wall", mgl64.Vec2{3.2, -0.7}, farActor())
	if err != nil {
		t.Fatalf("Place: %v", err)
	}

	if structure.X != 4 || structure.Z != 0 || structure.Y != 1 {
		t.Errorf("Ожидали стену в (4, 1, 0), получили (%.1f, %.1f, %.1f)", structure.X, structure.Y, structure.Z)
	}
	if inv.Count("wall") != 0 {
		t.Error("Стена должна уйти из инвентаря")
	}
	if !set.Contains(structure.Collision) {
		t.Error("Стена должна попасть в набор коллизий")
	}
	if len(builder.Structures()) != 1 {
		t.Errorf("Ожидали 1 постройку, получили %d", len(builder.Structures()))
	}

	// Стена блокирует движение
	body := collision.NewAABBFromCenter(mgl64.Vec3{4, 1, 0}, mgl64.Vec3{1, 2, 1})
	if !set.Intersects(body) {
		t.Error("Стена должна быть твердой")
	}
}

func TestBuilder_PlaceErrors(t *testing.T) {
	t.Run("нет предмета", func(t *testing.T) {
		builder, _, set := createTestBuilder(0)

		_, err := builder.Place("wall", mgl64.Vec2{4, 4}, farActor())
		if !errors.Is(err, inventory.ErrNoItem) {
			t.Errorf("Ожидали ErrNoItem, получили %v", err)
		}
		if set.Len() != 0 {
			t.Error("Набор коллизий не должен меняться")
		}
	})

	t.Run("занято деревом", func(t *testing.T) {
		builder, inv, set := createTestBuilder(1)
		set.Insert("tree_0", collision.KindTree, collision.NewAABBFromCenter(mgl64.Vec3{4, 2, 0}, mgl64.Vec3{1, 4, 1}))

		_, err := builder.Place("wall", mgl64.Vec2{4, 0}, farActor())
		if !errors.Is(err, ErrBlocked) {
			t.Errorf("Ожидали ErrBlocked, получили %v", err)
		}
		if inv.Count("wall") != 1 {
			t.Error("Предмет не должен списываться при отказе")
		}
	})

	t.Run("занято пнем", func(t *testing.T) {
		builder, inv, set := createTestBuilder(1)
		builder.SetReserver(MockReserver{
			collision.NewAABBFromCenter(mgl64.Vec3{5, 2, 0}, mgl64.Vec3{1, 4, 1}),
		})

		_, err := builder.Place("wall", mgl64.Vec2{4.6, 0.2}, farActor())
		if !errors.Is(err, ErrBlocked) {
			t.Errorf("Ожидали ErrBlocked, получили %v", err)
		}
		if inv.Count("wall") != 1 || set.Len() != 0 {
			t.Error("Отказ не должен менять инвентарь и набор коллизий")
		}

		// Рядом с пнем строить можно
		if _, err := builder.Place("wall", mgl64.Vec2{0, 4}, farActor()); err != nil {
			t.Errorf("Свободная клетка: %v", err)
		}
	})

	t.Run("пересечение с игроком", func(t *testing.T) {
		builder, inv, _ := createTestBuilder(1)
		actor := collision.NewAABBFromCenter(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{1, 2, 1})

		_, err := builder.Place("wall", mgl64.Vec2{0.3, 0.2}, actor)
		if !errors.Is(err, ErrBlocked) {
			t.Errorf("Ожидали ErrBlocked, получили %v", err)
		}
		if inv.Count("wall") != 1 {
			t.Error("Предмет не должен списываться при отказе")
		}
	})

	t.Run("две стены в одной клетке", func(t *testing.T) {
		builder, inv, _ := createTestBuilder(2)

		if _, err := builder.Place("wall", mgl64.Vec2{6, 6}, farActor()); err != nil {
			t.Fatalf("Первая стена: %v", err)
		}
		if _, err := builder.Place("wall", mgl64.Vec2{6.4, 5.8}, farActor()); !errors.Is(err, ErrBlocked) {
			t.Errorf("Ожидали ErrBlocked, получили %v", err)
		}
		if inv.Count("wall") != 1 {
			t.Errorf("Должна остаться 1 стена, осталось %d", inv.Count("wall"))
		}
	})

	t.Run("неизвестный предмет", func(t *testing.T) {
		builder, _, _ := createTestBuilder(0)
		if _, err := builder.Place("castle", mgl64.Vec2{0, 0}, farActor()); err == nil {
			t.Error("Ожидали ошибку")
		}
	})
}
