package worldgen

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestDefaultGrove(t *testing.T) {
	grove := DefaultGrove()

	if len(grove) != 5 {
		t.Fatalf("Ожидали 5 деревьев, получили %d", len(grove))
	}
	if grove[0] != (mgl64.Vec2{5, 0}) {
		t.Errorf("Первое дерево должно стоять в (5, 0), получили %v", grove[0])
	}
}

func TestForest_Deterministic(t *testing.T) {
	forest := DefaultForest(7, 30)

	first := forest.Generate(nil)
	second := forest.Generate(nil)

	if len(first) == 0 {
		t.Fatal("Лес не должен быть пустым")
	}
	if len(first) != len(second) {
		t.Fatalf("Разное количество деревьев: %d и %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Дерево %d отличается: %v и %v", i, first[i], second[i])
		}
	}
}

func TestForest_Constraints(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 42} {
		forest := DefaultForest(seed, 50)
		forest.Threshold = 0.3
		grove := DefaultGrove()

		trees := forest.Generate(grove)
		if len(trees) > forest.Count {
			t.Errorf("Seed %d: деревьев %d больше лимита %d", seed, len(trees), forest.Count)
		}

		for i, p := range trees {
			if p.Len() < forest.ClearRadius {
				t.Errorf("Seed %d: дерево %v в зоне появления", seed, p)
			}
			if p.Len() > forest.Radius {
				t.Errorf("Seed %d: дерево %v за пределами леса", seed, p)
			}
			for _, q := range grove {
				if p.Sub(q).Len() < forest.MinSpacing {
					t.Errorf("Seed %d: дерево %v слишком близко к %v", seed, p, q)
				}
			}
			for j := i + 1; j < len(trees); j++ {
				if p.Sub(trees[j]).Len() < forest.MinSpacing {
					t.Errorf("Seed %d: деревья %v и %v слишком близко", seed, p, trees[j])
				}
			}
		}
	}
}

func TestForest_ThresholdAboveOneIsEmpty(t *testing.T) {
	forest := DefaultForest(5, 100)
	forest.Threshold = 1.01

	if trees := forest.Generate(nil); len(trees) != 0 {
		t.Errorf("При пороге выше 1 деревьев быть не должно, получили %d", len(trees))
	}
}

func TestForest_ZeroCount(t *testing.T) {
	if trees := DefaultForest(5, 0).Generate(nil); trees != nil {
		t.Errorf("Ожидали nil, получили %v", trees)
	}
}
