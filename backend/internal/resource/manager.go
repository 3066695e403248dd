package resource

import (
	"log"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"timberland/backend/internal/collision"
)

// Погрешность сравнения накопленного времени кадров
const timeEpsilon = 1e-9

// CollisionSet - часть набора коллизий, которую изменяет менеджер
type CollisionSet interface {
	Insert(owner string, kind collision.Kind, box collision.AABB) collision.Handle
	Remove(h collision.Handle) bool
	Contains(h collision.Handle) bool
}

// Ledger принимает добытые ресурсы
type Ledger interface {
	Credit(resource string, amount int)
}

// Listener получает уведомления об изменениях узлов. Вызывается синхронно из Tick/AttemptHarvest.
type Listener interface {
	NodeDamaged(node Node)
	NodeDestroyed(node Node)
	NodeRespawned(node Node)
}

// Config настройки менеджера ресурсных узлов
type Config struct {
	MaxHealth        int
	InteractionRange float64
	HarvestCooldown  time.Duration
	RespawnDuration  time.Duration
	TrunkSize        mgl64.Vec3 // Размеры ствола для записи в наборе коллизий
	Yield            string
	YieldAmount      int
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		MaxHealth:        5,
		InteractionRange: 2.5,
		HarvestCooldown:  1000 * time.Millisecond,
		RespawnDuration:  20 * time.Second,
		TrunkSize:        mgl64.Vec3{1, 4, 1},
		Yield:            "wood",
		YieldAmount:      1,
	}
}

// HarvestResult результат попытки рубки
type HarvestResult struct {
	Harvested bool
	Destroyed bool
	NodeID    int
	Key       string
	Health    int
}

// Manager владеет ресурсными узлами: урон, откат рубки, истощение и респавн.
// Методы вызываются строго последовательно из игрового цикла.
type Manager struct {
	cfg      Config
	nodes    []*Node
	set      CollisionSet
	ledger   Ledger
	listener Listener
	logger   *log.Logger

	// Часы кадров: сумма delta всех вызовов Tick
	now           float64
	cooldownUntil float64
}

// NewManager создает новый менеджер ресурсных узлов
func NewManager(set CollisionSet, ledger Ledger, cfg Config, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}

	defaults := DefaultConfig()
	if cfg.MaxHealth <= 0 {
		cfg.MaxHealth = defaults.MaxHealth
	}
	if !validRange(cfg.InteractionRange) {
		cfg.InteractionRange = defaults.InteractionRange
	}
	if cfg.HarvestCooldown < 0 {
		cfg.HarvestCooldown = defaults.HarvestCooldown
	}
	if cfg.RespawnDuration < 0 {
		cfg.RespawnDuration = defaults.RespawnDuration
	}
	if cfg.TrunkSize == (mgl64.Vec3{}) {
		cfg.TrunkSize = defaults.TrunkSize
	}
	if cfg.Yield == "" {
		cfg.Yield = defaults.Yield
	}
	if cfg.YieldAmount <= 0 {
		cfg.YieldAmount = defaults.YieldAmount
	}

	return &Manager{
		cfg:    cfg,
		nodes:  make([]*Node, 0),
		set:    set,
		ledger: ledger,
		logger: logger,
	}
}

// SetListener устанавливает получателя событий узлов
func (m *Manager) SetListener(listener Listener) {
	m.listener = listener
}

// Config возвращает действующую конфигурацию
func (m *Manager) Config() Config {
	return m.cfg
}

// TrySpawn создает по одному активному узлу на каждую координату (x, z)
func (m *Manager) TrySpawn(positions []mgl64.Vec2) {
	for _, pos := range positions {
		id := len(m.nodes)
		node := &Node{
			ID:       id,
			Key:      NodeKey(id),
			Position: pos,
			Health:   m.cfg.MaxHealth,
			State:    StateActive,
			Yield:    m.cfg.Yield,
		}
		node.Collision = m.set.Insert(node.Key, collision.KindTree, m.NodeBox(*node))
		m.nodes = append(m.nodes, node)
	}

	m.logger.Printf("[ResourceManager] Создано узлов: %d (всего %d)", len(positions), len(m.nodes))
}

// AttemptHarvest рубит первый активный узел в радиусе досягаемости, если откат прошел.
// За вызов урон получает не больше одного узла. rng <= 0 означает радиус из конфигурации.
func (m *Manager) AttemptHarvest(actor mgl64.Vec3, rng float64) HarvestResult {
	if !m.CooldownReady() {
		return HarvestResult{}
	}
	if !validRange(rng) {
		rng = m.cfg.InteractionRange
	}

	actorXZ := mgl64.Vec2{actor.X(), actor.Z()}

	for _, node := range m.nodes {
		if node.State != StateActive {
			continue
		}
		if actorXZ.Sub(node.Position).Len() > rng {
			continue
		}

		node.Health--
		m.cooldownUntil = m.now + m.cfg.HarvestCooldown.Seconds()

		result := HarvestResult{
			Harvested: true,
			NodeID:    node.ID,
			Key:       node.Key,
			Health:    node.Health,
		}

		if node.Health <= 0 {
			m.destroy(node)
			result.Destroyed = true
			result.Health = 0
		} else if m.listener != nil {
			m.listener.NodeDamaged(*node)
		}

		return result
	}

	return HarvestResult{}
}

// destroy переводит узел в StateDestroyed и убирает его из набора коллизий
func (m *Manager) destroy(node *Node) {
	node.Health = 0
	node.State = StateDestroyed
	node.RespawnRemaining = m.cfg.RespawnDuration.Seconds()

	if node.Collision != 0 {
		m.set.Remove(node.Collision)
		node.Collision = 0
	}

	if m.ledger != nil {
		m.ledger.Credit(node.Yield, m.cfg.YieldAmount)
	}

	m.logger.Printf("[ResourceManager] Узел %s срублен, респавн через %.1fс", node.Key, node.RespawnRemaining)

	if m.listener != nil {
		m.listener.NodeDestroyed(*node)
	}
}

// Tick продвигает часы кадров и таймеры респавна. delta - реальное время с прошлого вызова в секундах.
func (m *Manager) Tick(delta float64) {
	if delta <= 0 || math.IsNaN(delta) || math.IsInf(delta, 0) {
		return
	}

	m.now += delta

	for _, node := range m.nodes {
		if node.State != StateDestroyed {
			continue
		}

		node.RespawnRemaining -= delta
		if node.RespawnRemaining > timeEpsilon {
			continue
		}

		m.respawn(node)
	}
}

// respawn возвращает узел в StateActive с полным здоровьем
func (m *Manager) respawn(node *Node) {
	node.Health = m.cfg.MaxHealth
	node.State = StateActive
	node.RespawnRemaining = 0

	// Не добавляем запись повторно, если она уже есть
	if node.Collision == 0 || !m.set.Contains(node.Collision) {
		node.Collision = m.set.Insert(node.Key, collision.KindTree, m.NodeBox(*node))
	}

	m.logger.Printf("[ResourceManager] Узел %s вырос заново", node.Key)

	if m.listener != nil {
		m.listener.NodeRespawned(*node)
	}
}

// validRange: радиус положительный и конечный
func validRange(r float64) bool {
	return r > 0 && !math.IsInf(r, 0)
}

// CooldownReady сообщает, прошел ли откат рубки
func (m *Manager) CooldownReady() bool {
	return m.now+timeEpsilon >= m.cooldownUntil
}

// Now возвращает время часов кадров в секундах
func (m *Manager) Now() float64 {
	return m.now
}

// NodeBox возвращает объем ствола узла
func (m *Manager) NodeBox(node Node) collision.AABB {
	center := mgl64.Vec3{node.Position.X(), m.cfg.TrunkSize.Y() / 2, node.Position.Y()}
	return collision.NewAABBFromCenter(center, m.cfg.TrunkSize)
}

// Reserved возвращает объемы срубленных узлов: после респавна они снова станут твердыми
func (m *Manager) Reserved() []collision.AABB {
	var boxes []collision.AABB
	for _, node := range m.nodes {
		if node.State == StateDestroyed {
			boxes = append(boxes, m.NodeBox(*node))
		}
	}
	return boxes
}

// Nodes возвращает копии всех узлов в порядке создания
func (m *Manager) Nodes() []Node {
	result := make([]Node, len(m.nodes))
	for i, node := range m.nodes {
		result[i] = *node
	}
	return result
}

// Node возвращает копию узла по индексу
func (m *Manager) Node(id int) (Node, bool) {
	if id < 0 || id >= len(m.nodes) {
		return Node{}, false
	}
	return *m.nodes[id], true
}

// ActiveCount возвращает количество стоящих узлов
func (m *Manager) ActiveCount() int {
	count := 0
	for _, node := range m.nodes {
		if node.State == StateActive {
			count++
		}
	}
	return count
}

// Len возвращает общее количество узлов
func (m *Manager) Len() int {
	return len(m.nodes)
}
