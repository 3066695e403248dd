package collision

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func trunkBox(x, z float64) AABB {
	return NewAABBFromCenter(mgl64.Vec3{x, 2, z}, mgl64.Vec3{1, 4, 1})
}

func TestSet_InsertRemove(t *testing.T) {
	set := NewSet(DefaultCellSize)

	h := set.Insert("tree_0", KindTree, trunkBox(5, 0))
	if h == 0 {
		t.Fatal("Ожидали ненулевой handle")
	}
	if !set.Contains(h) {
		t.Error("Запись должна быть в наборе")
	}
	if set.Len() != 1 {
		t.Errorf("Ожидали 1 запись, получили %d", set.Len())
	}

	if !set.Remove(h) {
		t.Error("Первое удаление должно вернуть true")
	}
	if set.Remove(h) {
		t.Error("Повторное удаление должно быть no-op")
	}
	if set.Contains(h) {
		t.Error("Запись не должна остаться в наборе")
	}
	if set.Intersects(trunkBox(5, 0)) {
		t.Error("После удаления пересечений быть не должно")
	}
}

func TestSet_InsertSameOwnerTwice(t *testing.T) {
	set := NewSet(DefaultCellSize)

	first := set.Insert("tree_0", KindTree, trunkBox(5, 0))
	second := set.Insert("tree_0", KindTree, trunkBox(5, 0))

	if first != second {
		t.Errorf("Повторная вставка должна вернуть тот же handle: %d != %d", first, second)
	}
	if set.Len() != 1 {
		t.Errorf("Ожидали 1 запись после двойной вставки, получили %d", set.Len())
	}

	// После удаления владелец может получить новую запись
	set.Remove(first)
	third := set.Insert("tree_0", KindTree, trunkBox(5, 0))
	if third == first {
		t.Error("После удаления должна создаваться новая запись")
	}
	if h, ok := set.HandleOf("tree_0"); !ok || h != third {
		t.Errorf("HandleOf вернул %d, %v", h, ok)
	}
}

func TestSet_Intersects(t *testing.T) {
	set := NewSet(DefaultCellSize)
	set.Insert("tree_0", KindTree, trunkBox(5, 0))
	set.Insert("workbench", KindWorkbench, NewAABBFromCenter(mgl64.Vec3{0, 0.5, 1}, mgl64.Vec3{2, 1, 1}))

	tests := []struct {
		name   string
		box    AABB
		ignore []Kind
		want   bool
	}{
		{"далеко", NewAABBFromCenter(mgl64.Vec3{20, 1, 20}, mgl64.Vec3{1, 2, 1}), nil, false},
		{"внутри ствола", NewAABBFromCenter(mgl64.Vec3{5, 1, 0}, mgl64.Vec3{1, 2, 1}), nil, true},
		{"касание гранью", NewAABBFromCenter(mgl64.Vec3{6, 1, 0}, mgl64.Vec3{1, 2, 1}), nil, true},
		{"чуть дальше грани", NewAABBFromCenter(mgl64.Vec3{6.01, 1, 0}, mgl64.Vec3{1, 2, 1}), nil, false},
		{"верстак", NewAABBFromCenter(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{1, 2, 1}), nil, true},
		{"верстак игнорируется", NewAABBFromCenter(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{1, 2, 1}), []Kind{KindWorkbench}, false},
		{"отрицательные координаты", NewAABBFromCenter(mgl64.Vec3{-5, 1, -5}, mgl64.Vec3{1, 2, 1}), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := set.IntersectsExcept(tt.box, tt.ignore...); got != tt.want {
				t.Errorf("IntersectsExcept() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSet_QueryMatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	set := NewSet(3.0)

	var boxes []AABB
	for i := 0; i < 200; i++ {
		center := mgl64.Vec3{rng.Float64()*80 - 40, 1, rng.Float64()*80 - 40}
		size := mgl64.Vec3{0.5 + rng.Float64()*6, 2, 0.5 + rng.Float64()*6}
		box := NewAABBFromCenter(center, size)
		boxes = append(boxes, box)
		set.Insert(fmt.Sprintf("box_%d", i), KindWall, box)
	}

	// Удаляем часть записей, чтобы проверить очистку ячеек
	for _, entry := range set.Entries() {
		if entry.Handle%3 == 0 {
			set.Remove(entry.Handle)
		}
	}

	for i := 0; i < 300; i++ {
		probe := NewAABBFromCenter(
			mgl64.Vec3{rng.Float64()*90 - 45, 1, rng.Float64()*90 - 45},
			mgl64.Vec3{rng.Float64() * 5, 2, rng.Float64() * 5},
		)

		expected := 0
		for _, entry := range set.Entries() {
			if entry.Box.Intersects(probe) {
				expected++
			}
		}

		got := set.Query(probe)
		if len(got) != expected {
			t.Fatalf("Проба %d: сетка нашла %d, перебор %d", i, len(got), expected)
		}
		if set.Intersects(probe) != (expected > 0) {
			t.Fatalf("Проба %d: Intersects расходится с перебором", i)
		}
	}
}

func TestSet_CountByKind(t *testing.T) {
	set := NewSet(DefaultCellSize)
	set.Insert("tree_0", KindTree, trunkBox(5, 0))
	set.Insert("tree_1", KindTree, trunkBox(-5, 5))
	set.Insert("wall_1", KindWall, NewAABBFromCenter(mgl64.Vec3{2, 1, 2}, mgl64.Vec3{2, 2, 0.5}))

	if n := set.CountByKind(KindTree); n != 2 {
		t.Errorf("Ожидали 2 дерева, получили %d", n)
	}
	if n := set.CountByKind(KindWall); n != 1 {
		t.Errorf("Ожидали 1 стену, получили %d", n)
	}
}

func BenchmarkSet_Intersects(b *testing.B) {
	set := NewSet(DefaultCellSize)
	for i := 0; i < 1000; i++ {
		set.Insert(fmt.Sprintf("tree_%d", i), KindTree, trunkBox(float64(i%40)*3, float64(i/40)*3))
	}
	probe := NewAABBFromCenter(mgl64.Vec3{30, 1, 30}, mgl64.Vec3{1, 2, 1})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		set.Intersects(probe)
	}
}
