package game

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// growDuration длительность анимации роста дерева после респавна, секунды
const growDuration = 0.6

// Growth анимирует масштаб деревьев, выросших заново
type Growth struct {
	tweens map[string]*gween.Tween
	scales map[string]float64
}

// NewGrowth создает пустой набор анимаций
func NewGrowth() *Growth {
	return &Growth{
		tweens: make(map[string]*gween.Tween),
		scales: make(map[string]float64),
	}
}

// Start запускает рост дерева с нуля
func (g *Growth) Start(key string) {
	g.tweens[key] = gween.New(0, 1, growDuration, ease.OutBack)
	g.scales[key] = 0
}

// Update продвигает все анимации на dt секунд
func (g *Growth) Update(dt float64) {
	for key, tween := range g.tweens {
		value, finished := tween.Update(float32(dt))
		if finished {
			delete(g.tweens, key)
			delete(g.scales, key)
			continue
		}
		g.scales[key] = float64(value)
	}
}

// Scale возвращает текущий масштаб дерева; 1, если анимации нет
func (g *Growth) Scale(key string) float64 {
	if scale, ok := g.scales[key]; ok {
		return scale
	}
	return 1
}

// Active возвращает количество идущих анимаций
func (g *Growth) Active() int {
	return len(g.tweens)
}
