package worldgen

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ojrac/opensimplex-go"
)

// DefaultGrove возвращает стандартные точки деревьев вокруг точки появления
func DefaultGrove() []mgl64.Vec2 {
	return []mgl64.Vec2{
		{5, 0},
		{-5, 5},
		{8, -3},
		{-8, -6},
		{0, -8},
	}
}

// Forest параметры процедурного леса
type Forest struct {
	Seed        int64
	Count       int     // Максимальное количество деревьев
	Radius      float64 // Радиус области вокруг начала координат
	MinSpacing  float64 // Минимальное расстояние между деревьями
	ClearRadius float64 // Свободная зона вокруг точки появления
	Threshold   float64 // Порог плотности шума в [0, 1]

	// Параметры фрактального шума
	Scale       float64
	Octaves     int
	Lacunarity  float64
	Persistence float64
}

// DefaultForest возвращает параметры леса по умолчанию
func DefaultForest(seed int64, count int) Forest {
	return Forest{
		Seed:        seed,
		Count:       count,
		Radius:      40,
		MinSpacing:  3,
		ClearRadius: 4,
		Threshold:   0.45,
		Scale:       18,
		Octaves:     3,
		Lacunarity:  2,
		Persistence: 0.5,
	}
}

// Generate расставляет деревья по решетке с дрожанием, оставляя точки с плотностью шума выше порога.
// Результат детерминирован для одного Seed. Точки exclude учитываются при проверке расстояний.
func (f Forest) Generate(exclude []mgl64.Vec2) []mgl64.Vec2 {
	if f.Count <= 0 || f.Radius <= 0 {
		return nil
	}

	spacing := f.MinSpacing
	if spacing <= 0 {
		spacing = 1
	}

	noise := opensimplex.New(f.Seed)
	rng := rand.New(rand.NewSource(f.Seed))

	accepted := make([]mgl64.Vec2, 0, f.Count)
	occupied := append([]mgl64.Vec2(nil), exclude...)

	steps := int(math.Ceil(f.Radius / spacing))
	for gz := -steps; gz <= steps; gz++ {
		for gx := -steps; gx <= steps; gx++ {
			// Дрожание берем всегда, чтобы последовательность не зависела от отбраковки
			jx := (rng.Float64() - 0.5) * spacing * 0.7
			jz := (rng.Float64() - 0.5) * spacing * 0.7

			p := mgl64.Vec2{float64(gx)*spacing + jx, float64(gz)*spacing + jz}

			dist := p.Len()
			if dist > f.Radius || dist < f.ClearRadius {
				continue
			}
			if f.density(noise, p) < f.Threshold {
				continue
			}
			if tooClose(p, occupied, f.MinSpacing) {
				continue
			}

			accepted = append(accepted, p)
			occupied = append(occupied, p)
			if len(accepted) >= f.Count {
				return accepted
			}
		}
	}

	return accepted
}

// density возвращает фрактальный шум, приведенный к [0, 1]
func (f Forest) density(noise opensimplex.Noise, p mgl64.Vec2) float64 {
	scale := f.Scale
	if scale <= 0 {
		scale = 1
	}
	octaves := f.Octaves
	if octaves <= 0 {
		octaves = 1
	}

	x, z := p.X()/scale, p.Y()/scale
	amplitude := 1.0
	total, norm := 0.0, 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x, z) * amplitude
		norm += amplitude
		x *= f.Lacunarity
		z *= f.Lacunarity
		amplitude *= f.Persistence
	}

	if norm == 0 {
		return 0
	}
	return (total/norm + 1) / 2
}

func tooClose(p mgl64.Vec2, points []mgl64.Vec2, spacing float64) bool {
	for _, q := range points {
		if p.Sub(q).Len() < spacing {
			return true
		}
	}
	return false
}
