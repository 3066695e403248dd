package game

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"timberland/backend/internal/building"
	"timberland/backend/internal/collision"
	"timberland/backend/internal/config"
	"timberland/backend/internal/crafting"
	"timberland/backend/internal/inventory"
	"timberland/backend/internal/resource"
	"timberland/backend/internal/telemetry"
	"timberland/backend/internal/worldgen"
)

var ErrQueueFull = errors.New("очередь команд переполнена")

// buildDistance расстояние перед игроком, куда ставится постройка без явной цели
const buildDistance = 2.0

// Command - команда, применяемая к сессии внутри игрового цикла
type Command interface {
	apply(s *Session)
}

// MoveCommand задает оси движения и поворот игрока
type MoveCommand struct {
	Forward float64
	Strafe  float64
	Yaw     float64
}

// HarvestCommand - ручной удар по ближайшему дереву
type HarvestCommand struct{}

// CraftCommand изготавливает предмет за верстаком
type CraftCommand struct {
	Item string
}

// BuildCommand ставит предмет в точку (X, Z). Без цели - перед игроком.
type BuildCommand struct {
	Item      string
	X, Z      float64
	HasTarget bool
}

// Session - единственный игровой мир: игрок, деревья, инвентарь, постройки.
// Состояние меняется только в горутине GameTicker; другие горутины шлют команды и читают снимки.
type Session struct {
	cfg    config.Config
	logger *log.Logger

	player    *Player
	set       *collision.Set
	resources *resource.Manager
	inventory *inventory.Inventory
	crafter   *crafting.Crafter
	builder   *building.Builder
	growth    *Growth
	telemetry *telemetry.Recorder

	commands       chan Command
	pendingHarvest bool
	autoHarvest    bool

	broadcaster      Broadcaster
	broadcasterMutex sync.RWMutex

	latest atomic.Pointer[Snapshot]
	tick   uint64
}

// NewSession создает мир: стандартная роща, процедурный лес (если задан), верстак
func NewSession(cfg config.Config, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.Game.CommandBuffer <= 0 {
		cfg.Game.CommandBuffer = config.Default().Game.CommandBuffer
	}
	if cfg.Game.PlayerSpeed <= 0 {
		cfg.Game.PlayerSpeed = config.Default().Game.PlayerSpeed
	}

	set := collision.NewSet(collision.DefaultCellSize)
	inv := inventory.New()

	s := &Session{
		cfg:         cfg,
		logger:      logger,
		player:      NewPlayer(cfg.Game.PlayerSpeed),
		set:         set,
		inventory:   inv,
		growth:      NewGrowth(),
		telemetry:   telemetry.NewRecorder(logger),
		commands:    make(chan Command, cfg.Game.CommandBuffer),
		autoHarvest: cfg.Game.AutoHarvest,
	}

	s.crafter = crafting.NewCrafter(set, crafting.DefaultWorkbench(), nil, inv, logger)
	s.builder = building.NewBuilder(set, inv, logger)
	s.resources = resource.NewManager(set, inv, cfg.Resource, logger)
	s.resources.SetListener(s)
	s.builder.SetReserver(s.resources)

	positions := worldgen.DefaultGrove()
	if cfg.World.ForestCount > 0 {
		forest := worldgen.DefaultForest(cfg.World.ForestSeed, cfg.World.ForestCount)
		positions = append(positions, forest.Generate(positions)...)
	}
	s.resources.TrySpawn(positions)

	s.publish(s.buildSnapshot())

	logger.Printf("[Session] Мир создан: деревьев %d, твердых объектов %d, авторубка %v",
		s.resources.Len(), set.Len(), s.autoHarvest)

	return s
}

// SetBroadcaster устанавливает получателя обновлений
func (s *Session) SetBroadcaster(broadcaster Broadcaster) {
	s.broadcasterMutex.Lock()
	defer s.broadcasterMutex.Unlock()
	s.broadcaster = broadcaster
}

func (s *Session) getBroadcaster() Broadcaster {
	s.broadcasterMutex.RLock()
	defer s.broadcasterMutex.RUnlock()
	return s.broadcaster
}

// Submit ставит команду в очередь. Безопасен для вызова из любой горутины.
func (s *Session) Submit(cmd Command) error {
	select {
	case s.commands <- cmd:
		return nil
	default:
		return fmt.Errorf("%T: %w", cmd, ErrQueueFull)
	}
}

// RegisterSystems регистрирует системы сессии в игровом цикле
func (s *Session) RegisterSystems(ticker *GameTicker) {
	ticker.RegisterSystem(NewCommandSystem(s, s.logger))
	ticker.RegisterSystem(NewMovementSystem(s, s.logger))
	ticker.RegisterSystem(NewResourceSystem(s, s.logger))
	ticker.RegisterSystem(NewGrowthSystem(s))
	ticker.RegisterSystem(NewSnapshotSystem(s, ticker, s.cfg.Game.SnapshotInterval, s.logger))
}

// Latest возвращает последний опубликованный снимок
func (s *Session) Latest() Snapshot {
	if snap := s.latest.Load(); snap != nil {
		return *snap
	}
	return Snapshot{}
}

// CollisionEntries возвращает количество записей в наборе коллизий
func (s *Session) CollisionEntries() int {
	return s.set.Len()
}

// Telemetry возвращает регистратор событий сессии
func (s *Session) Telemetry() *telemetry.Recorder {
	return s.telemetry
}

// Recipes возвращает книгу рецептов
func (s *Session) Recipes() []crafting.Recipe {
	return s.crafter.Recipes()
}

// NodeDamaged реализует resource.Listener
func (s *Session) NodeDamaged(node resource.Node) {
	wood := s.inventory.Wood()
	s.telemetry.Record(telemetry.Event{
		Kind:     telemetry.KindHarvest,
		Subject:  node.Key,
		Health:   node.Health,
		Wood:     wood,
		GameTime: s.resources.Now(),
	})
	s.emitNodeEvent(NodeEventDamaged, node, wood)
}

// NodeDestroyed реализует resource.Listener
func (s *Session) NodeDestroyed(node resource.Node) {
	wood := s.inventory.Wood()
	s.telemetry.Record(telemetry.Event{
		Kind:     telemetry.KindFell,
		Subject:  node.Key,
		Wood:     wood,
		GameTime: s.resources.Now(),
	})
	s.emitNodeEvent(NodeEventDestroyed, node, wood)
}

// NodeRespawned реализует resource.Listener
func (s *Session) NodeRespawned(node resource.Node) {
	s.growth.Start(node.Key)

	wood := s.inventory.Wood()
	s.telemetry.Record(telemetry.Event{
		Kind:     telemetry.KindRespawn,
		Subject:  node.Key,
		Health:   node.Health,
		Wood:     wood,
		GameTime: s.resources.Now(),
	})
	s.emitNodeEvent(NodeEventRespawned, node, wood)
}

func (s *Session) emitNodeEvent(kind string, node resource.Node, wood int) {
	broadcaster := s.getBroadcaster()
	if broadcaster == nil {
		return
	}

	broadcaster.BroadcastNodeEvent(NodeEvent{
		Kind: kind,
		Node: nodeView(node, s.resources.Config().MaxHealth, s.growth.Scale(node.Key)),
		Wood: wood,
	})
}

func (s *Session) emitResult(result ActionResult) {
	result.Wood = s.inventory.Wood()

	kind := telemetry.KindCraft
	if result.Action == "build" {
		kind = telemetry.KindBuild
	}
	if !result.OK {
		kind = telemetry.KindReject
	}
	s.telemetry.Record(telemetry.Event{
		Kind:     kind,
		Subject:  result.Item,
		Wood:     result.Wood,
		GameTime: s.resources.Now(),
		Detail:   result.Error,
	})

	if broadcaster := s.getBroadcaster(); broadcaster != nil {
		broadcaster.BroadcastResult(result)
	}
}

func (c MoveCommand) apply(s *Session) {
	s.player.Forward = clampAxis(c.Forward)
	s.player.Strafe = clampAxis(c.Strafe)
	if !math.IsNaN(c.Yaw) && !math.IsInf(c.Yaw, 0) {
		s.player.Yaw = c.Yaw
	}
}

func (HarvestCommand) apply(s *Session) {
	s.pendingHarvest = true
}

func (c CraftCommand) apply(s *Session) {
	result := ActionResult{Action: "craft", Item: c.Item, OK: true}
	if err := s.crafter.Craft(s.player.Position, c.Item); err != nil {
		result.OK = false
		result.Error = err.Error()
		s.logger.Printf("[Session] Крафт %s отклонен: %v", c.Item, err)
	}
	s.emitResult(result)
}

func (c BuildCommand) apply(s *Session) {
	target := s.player.Facing(buildDistance)
	if c.HasTarget {
		target = mgl64.Vec2{c.X, c.Z}
	}

	result := ActionResult{Action: "build", Item: c.Item, OK: true}
	structure, err := s.builder.Place(c.Item, target, s.player.Body())
	if err != nil {
		result.OK = false
		result.Error = err.Error()
		s.logger.Printf("[Session] Постройка %s отклонена: %v", c.Item, err)
	} else {
		result.Structure = &structure
	}
	s.emitResult(result)
}

// buildSnapshot собирает снимок. Вызывается только из игрового цикла.
func (s *Session) buildSnapshot() Snapshot {
	maxHealth := s.resources.Config().MaxHealth
	nodes := s.resources.Nodes()

	views := make([]NodeView, len(nodes))
	for i, node := range nodes {
		views[i] = nodeView(node, maxHealth, s.growth.Scale(node.Key))
	}

	inv := s.inventory.Snapshot()

	return Snapshot{
		Tick:          s.tick,
		ServerTime:    time.Now().UnixMilli(),
		GameTime:      s.resources.Now(),
		Player:        s.player.view(),
		Nodes:         views,
		Wood:          inv.Wood,
		Items:         inv.Items,
		Structures:    s.builder.Structures(),
		NearWorkbench: s.crafter.NearWorkbench(s.player.Position),
		CooldownReady: s.resources.CooldownReady(),
	}
}

func (s *Session) publish(snapshot Snapshot) {
	s.latest.Store(&snapshot)
}
