package inventory

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Wood - основной ресурс, добываемый рубкой деревьев
const Wood = "wood"

var (
	ErrInsufficient = errors.New("недостаточно ресурсов")
	ErrNoItem       = errors.New("предмета нет в инвентаре")
)

// Inventory запасы сессии: счетчик дерева и изготовленные предметы.
// Пишет игровой цикл, читают транспорт и /stats.
type Inventory struct {
	wood  int
	items map[string]int
	mu    sync.RWMutex
}

// Snapshot копия инвентаря для отправки клиентам
type Snapshot struct {
	Wood  int            `json:"wood"`
	Items map[string]int `json:"items"`
}

// New создает пустой инвентарь
func New() *Inventory {
	return &Inventory{
		items: make(map[string]int),
	}
}

// Credit зачисляет добытый ресурс. Неположительное количество игнорируется.
func (inv *Inventory) Credit(resource string, amount int) {
	if amount <= 0 {
		return
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	if resource == Wood {
		inv.wood += amount
		return
	}
	inv.items[resource] += amount
}

// Wood возвращает количество дерева
func (inv *Inventory) Wood() int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.wood
}

// SpendWood списывает дерево. При нехватке инвентарь не меняется.
func (inv *Inventory) SpendWood(amount int) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if amount < 0 {
		return fmt.Errorf("некорректное количество %d: %w", amount, ErrInsufficient)
	}
	if inv.wood < amount {
		return fmt.Errorf("нужно %d дерева, есть %d: %w", amount, inv.wood, ErrInsufficient)
	}

	inv.wood -= amount
	return nil
}

// AddItem добавляет изготовленный предмет
func (inv *Inventory) AddItem(name string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.items[name]++
}

// TakeItem забирает один предмет
func (inv *Inventory) TakeItem(name string) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	if inv.items[name] <= 0 {
		return fmt.Errorf("%s: %w", name, ErrNoItem)
	}

	inv.items[name]--
	if inv.items[name] == 0 {
		delete(inv.items, name)
	}
	return nil
}

// Count возвращает количество предметов с таким именем
func (inv *Inventory) Count(name string) int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	if name == Wood {
		return inv.wood
	}
	return inv.items[name]
}

// ItemNames возвращает имена предметов в алфавитном порядке
func (inv *Inventory) ItemNames() []string {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	names := make([]string, 0, len(inv.items))
	for name := range inv.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (inv *Inventory) Snapshot() Snapshot {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	items := make(map[string]int, len(inv.items))
	for name, count := range inv.items {
		items[name] = count
	}

	return Snapshot{Wood: inv.wood, Items: items}
}
