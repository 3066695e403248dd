package collision

import (
	"math"
	"sort"
	"sync"
)

// DefaultCellSize размер ячейки сетки по умолчанию (ствол 1x1, стена 2x0.5, верстак 2x1)
const DefaultCellSize = 4.0

// Handle идентификатор записи в наборе коллизий. Ноль означает "нет записи".
type Handle uint64

// Kind тип твердого объекта
type Kind string

const (
	KindTree      Kind = "tree"
	KindWorkbench Kind = "workbench"
	KindWall      Kind = "wall"
)

// Entry запись набора коллизий
type Entry struct {
	Handle Handle
	Owner  string // Владелец записи (ключ узла, постройки и т.д.)
	Kind   Kind
	Box    AABB

	cells []cellKey
}

type cellKey struct {
	x, z int
}

// Set - общий изменяемый набор твердых объемов.
// Пространственная сетка по XZ ограничивает проверку соседними ячейками,
// результат совпадает с линейным перебором.
type Set struct {
	cellSize   float64
	cells      map[cellKey][]*Entry
	entries    map[Handle]*Entry
	owners     map[string]Handle
	nextHandle Handle
	mu         sync.RWMutex
}

// NewSet создает новый набор коллизий
func NewSet(cellSize float64) *Set {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}

	return &Set{
		cellSize:   cellSize,
		cells:      make(map[cellKey][]*Entry),
		entries:    make(map[Handle]*Entry),
		owners:     make(map[string]Handle),
		nextHandle: 1,
	}
}

// Insert добавляет объем. Если у владельца уже есть запись, возвращается существующий handle.
func (s *Set) Insert(owner string, kind Kind, box AABB) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, exists := s.owners[owner]; exists && owner != "" {
		return h
	}

	entry := &Entry{
		Handle: s.nextHandle,
		Owner:  owner,
		Kind:   kind,
		Box:    box,
		cells:  s.coveredCells(box),
	}
	s.nextHandle++

	for _, key := range entry.cells {
		s.cells[key] = append(s.cells[key], entry)
	}

	s.entries[entry.Handle] = entry
	if owner != "" {
		s.owners[owner] = entry.Handle
	}

	return entry.Handle
}

// Remove удаляет запись. Отсутствующий handle игнорируется.
func (s *Set) Remove(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[h]
	if !exists {
		return false
	}

	for _, key := range entry.cells {
		cell := s.cells[key]
		for i, cellEntry := range cell {
			if cellEntry.Handle == h {
				s.cells[key] = append(cell[:i], cell[i+1:]...)
				break
			}
		}
		// Удаляем пустые ячейки
		if len(s.cells[key]) == 0 {
			delete(s.cells, key)
		}
	}

	delete(s.entries, h)
	if s.owners[entry.Owner] == h {
		delete(s.owners, entry.Owner)
	}

	return true
}

// Contains проверяет наличие записи
func (s *Set) Contains(h Handle) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.entries[h]
	return exists
}

// HandleOf возвращает handle записи владельца
func (s *Set) HandleOf(owner string) (Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.owners[owner]
	return h, exists
}

// Len возвращает количество записей
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// CountByKind возвращает количество записей заданного типа
func (s *Set) CountByKind(kind Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, entry := range s.entries {
		if entry.Kind == kind {
			count++
		}
	}
	return count
}

// Entries возвращает копии всех записей, упорядоченные по handle
func (s *Set) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		result = append(result, Entry{Handle: entry.Handle, Owner: entry.Owner, Kind: entry.Kind, Box: entry.Box})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Handle < result[j].Handle })
	return result
}

// Intersects проверяет, пересекает ли объем хоть одну запись
func (s *Set) Intersects(box AABB) bool {
	return s.IntersectsExcept(box)
}

// IntersectsExcept то же, что Intersects, но пропускает записи указанных типов
func (s *Set) IntersectsExcept(box AABB, ignore ...Kind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, key := range s.coveredCells(box) {
		for _, entry := range s.cells[key] {
			if skipKind(entry.Kind, ignore) {
				continue
			}
			if entry.Box.Intersects(box) {
				return true
			}
		}
	}
	return false
}

// Query возвращает все записи, пересекающие объем, упорядоченные по handle
func (s *Set) Query(box AABB) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[Handle]bool) // Запись может лежать в нескольких ячейках
	var result []Entry

	for _, key := range s.coveredCells(box) {
		for _, entry := range s.cells[key] {
			if seen[entry.Handle] || !entry.Box.Intersects(box) {
				continue
			}
			seen[entry.Handle] = true
			result = append(result, Entry{Handle: entry.Handle, Owner: entry.Owner, Kind: entry.Kind, Box: entry.Box})
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Handle < result[j].Handle })
	return result
}

// coveredCells возвращает ячейки сетки, которые покрывает объем
func (s *Set) coveredCells(box AABB) []cellKey {
	minX, minZ := s.gridCoords(box.Min.X(), box.Min.Z())
	maxX, maxZ := s.gridCoords(box.Max.X(), box.Max.Z())

	keys := make([]cellKey, 0, (maxX-minX+1)*(maxZ-minZ+1))
	for x := minX; x <= maxX; x++ {
		for z := minZ; z <= maxZ; z++ {
			keys = append(keys, cellKey{x: x, z: z})
		}
	}
	return keys
}

// gridCoords возвращает координаты ячейки для точки
func (s *Set) gridCoords(x, z float64) (int, int) {
	return int(math.Floor(x / s.cellSize)), int(math.Floor(z / s.cellSize))
}

func skipKind(kind Kind, ignore []Kind) bool {
	for _, k := range ignore {
		if k == kind {
			return true
		}
	}
	return false
}
