package crafting

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"timberland/backend/internal/collision"
	"timberland/backend/internal/inventory"
)

var (
	ErrNotNearWorkbench = errors.New("слишком далеко от верстака")
	ErrUnknownRecipe    = errors.New("неизвестный рецепт")
)

// DefaultReach расстояние, с которого можно работать за верстаком
const DefaultReach = 2.5

// Recipe рецепт предмета
type Recipe struct {
	Name     string `json:"name"`
	WoodCost int    `json:"wood_cost"`
}

// DefaultRecipes возвращает стандартную книгу рецептов
func DefaultRecipes() []Recipe {
	return []Recipe{
		{Name: "wall", WoodCost: 3},
		{Name: "fence", WoodCost: 2},
		{Name: "door", WoodCost: 4},
	}
}

// Workbench - верстак, статичный твердый объект
type Workbench struct {
	Position mgl64.Vec3
	Size     mgl64.Vec3
}

// DefaultWorkbench верстак 2x1x1 рядом с точкой появления
func DefaultWorkbench() Workbench {
	return Workbench{
		Position: mgl64.Vec3{0, 0.5, 1},
		Size:     mgl64.Vec3{2, 1, 1},
	}
}

// Box возвращает объем верстака
func (w Workbench) Box() collision.AABB {
	return collision.NewAABBFromCenter(w.Position, w.Size)
}

// Stock - часть инвентаря, нужная для крафта
type Stock interface {
	SpendWood(amount int) error
	AddItem(name string)
}

// Crafter изготавливает предметы за верстаком
type Crafter struct {
	workbench Workbench
	reach     float64
	recipes   map[string]Recipe
	stock     Stock
	logger    *log.Logger
}

// NewCrafter создает крафтер и регистрирует верстак в наборе коллизий
func NewCrafter(set *collision.Set, workbench Workbench, recipes []Recipe, stock Stock, logger *log.Logger) *Crafter {
	if logger == nil {
		logger = log.Default()
	}
	if len(recipes) == 0 {
		recipes = DefaultRecipes()
	}

	book := make(map[string]Recipe, len(recipes))
	for _, r := range recipes {
		book[r.Name] = r
	}

	if set != nil {
		set.Insert("workbench", collision.KindWorkbench, workbench.Box())
	}

	return &Crafter{
		workbench: workbench,
		reach:     DefaultReach,
		recipes:   book,
		stock:     stock,
		logger:    logger,
	}
}

// NearWorkbench сообщает, может ли актор работать за верстаком
func (c *Crafter) NearWorkbench(actor mgl64.Vec3) bool {
	return actor.Sub(c.workbench.Position).Len() <= c.reach
}

// Craft изготавливает предмет. При любой ошибке инвентарь не меняется.
func (c *Crafter) Craft(actor mgl64.Vec3, item string) error {
	if !c.NearWorkbench(actor) {
		return ErrNotNearWorkbench
	}

	recipe, ok := c.recipes[item]
	if !ok {
		return fmt.Errorf("%q: %w", item, ErrUnknownRecipe)
	}

	if err := c.stock.SpendWood(recipe.WoodCost); err != nil {
		return fmt.Errorf("крафт %s: %w", item, err)
	}
	c.stock.AddItem(recipe.Name)

	c.logger.Printf("[Crafter] Изготовлен предмет %s за %d дерева", recipe.Name, recipe.WoodCost)
	return nil
}

// Recipes возвращает рецепты, упорядоченные по имени
func (c *Crafter) Recipes() []Recipe {
	result := make([]Recipe, 0, len(c.recipes))
	for _, r := range c.recipes {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func (c *Crafter) Workbench() Workbench {
	return c.workbench
}

// Инвентарь сессии служит складом крафтера
var _ Stock = (*inventory.Inventory)(nil)
