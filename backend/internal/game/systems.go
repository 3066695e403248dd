package game

import (
	"log"
	"time"

	"timberland/backend/internal/collision"
)

// CommandSystem применяет команды из очереди сессии
type CommandSystem struct {
	name     string
	priority int
	session  *Session
	logger   *log.Logger
}

// NewCommandSystem создает систему команд
func NewCommandSystem(session *Session, logger *log.Logger) *CommandSystem {
	return &CommandSystem{
		name:     "CommandSystem",
		priority: 5, // Ввод применяется до движения
		session:  session,
		logger:   logger,
	}
}

// Update забирает команды, накопившиеся к началу тика
func (cs *CommandSystem) Update(deltaTime time.Duration) error {
	pending := len(cs.session.commands)
	for i := 0; i < pending; i++ {
		cmd := <-cs.session.commands
		cmd.apply(cs.session)
	}
	return nil
}

func (cs *CommandSystem) GetName() string  { return cs.name }
func (cs *CommandSystem) GetPriority() int { return cs.priority }

// MovementSystem двигает игрока, отбрасывая шаги в твердые объекты
type MovementSystem struct {
	name     string
	priority int
	session  *Session
	logger   *log.Logger
	blocked  uint64
}

// NewMovementSystem создает систему движения
func NewMovementSystem(session *Session, logger *log.Logger) *MovementSystem {
	return &MovementSystem{
		name:     "MovementSystem",
		priority: 10,
		session:  session,
		logger:   logger,
	}
}

// Update сдвигает игрока на speed*dt в направлении ввода, если новое положение свободно
func (ms *MovementSystem) Update(deltaTime time.Duration) error {
	player := ms.session.player

	dir := player.Direction()
	if dir.Len() == 0 || deltaTime <= 0 {
		return nil
	}

	next := player.Position.Add(dir.Mul(player.Speed * deltaTime.Seconds()))
	if ms.blocks(player.Body(), player.BodyAt(next)) {
		ms.blocked++
		return nil
	}

	player.Position = next
	return nil
}

// blocks сообщает, упирается ли шаг в твердый объект. Объекты, в которых игрок уже стоит
// (дерево выросло под ним), не мешают выйти.
func (ms *MovementSystem) blocks(current, next collision.AABB) bool {
	hits := ms.session.set.Query(next)
	if len(hits) == 0 {
		return false
	}

	inside := make(map[collision.Handle]bool)
	for _, e := range ms.session.set.Query(current) {
		inside[e.Handle] = true
	}
	for _, e := range hits {
		if !inside[e.Handle] {
			return true
		}
	}
	return false
}

// Blocked возвращает количество отброшенных шагов
func (ms *MovementSystem) Blocked() uint64 {
	return ms.blocked
}

func (ms *MovementSystem) GetName() string  { return ms.name }
func (ms *MovementSystem) GetPriority() int { return ms.priority }

// ResourceSystem продвигает менеджер ресурсов и выполняет рубку
type ResourceSystem struct {
	name     string
	priority int
	session  *Session
	logger   *log.Logger
}

// NewResourceSystem создает систему ресурсов
func NewResourceSystem(session *Session, logger *log.Logger) *ResourceSystem {
	return &ResourceSystem{
		name:     "ResourceSystem",
		priority: 20, // После движения: рубим из новой позиции
		session:  session,
		logger:   logger,
	}
}

// Update вызывает Tick с реальным временем кадра, затем пробует рубку.
// Ручной удар не копится: если откат не прошел, он пропадает.
func (rs *ResourceSystem) Update(deltaTime time.Duration) error {
	s := rs.session
	s.resources.Tick(deltaTime.Seconds())

	if s.autoHarvest || s.pendingHarvest {
		s.resources.AttemptHarvest(s.player.Position, 0)
	}
	s.pendingHarvest = false

	return nil
}

func (rs *ResourceSystem) GetName() string  { return rs.name }
func (rs *ResourceSystem) GetPriority() int { return rs.priority }

// GrowthSystem продвигает анимации роста деревьев
type GrowthSystem struct {
	name     string
	priority int
	session  *Session
}

// NewGrowthSystem создает систему роста
func NewGrowthSystem(session *Session) *GrowthSystem {
	return &GrowthSystem{
		name:     "GrowthSystem",
		priority: 15, // До ResourceSystem: рост начинается со следующего кадра после респавна
		session:  session,
	}
}

func (gs *GrowthSystem) Update(deltaTime time.Duration) error {
	gs.session.growth.Update(deltaTime.Seconds())
	return nil
}

func (gs *GrowthSystem) GetName() string  { return gs.name }
func (gs *GrowthSystem) GetPriority() int { return gs.priority }

// SnapshotSystem публикует снимки сессии с заданным периодом
type SnapshotSystem struct {
	name       string
	priority   int
	session    *Session
	gameTicker *GameTicker
	interval   time.Duration
	elapsed    time.Duration
	logger     *log.Logger
}

// NewSnapshotSystem создает систему снимков
func NewSnapshotSystem(session *Session, gameTicker *GameTicker, interval time.Duration, logger *log.Logger) *SnapshotSystem {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	return &SnapshotSystem{
		name:       "SnapshotSystem",
		priority:   50, // Последней: снимок отражает результат всего тика
		session:    session,
		gameTicker: gameTicker,
		interval:   interval,
		logger:     logger,
	}
}

// Update собирает снимок раз в interval и рассылает его
func (ss *SnapshotSystem) Update(deltaTime time.Duration) error {
	ss.elapsed += deltaTime
	if ss.elapsed < ss.interval {
		return nil
	}
	ss.elapsed = 0

	ss.session.tick = ss.gameTicker.GetTickCount()
	snapshot := ss.session.buildSnapshot()
	ss.session.publish(snapshot)

	if broadcaster := ss.session.getBroadcaster(); broadcaster != nil {
		broadcaster.BroadcastSnapshot(snapshot)
	}

	ss.session.telemetry.MaybeLog(time.Now())
	return nil
}

func (ss *SnapshotSystem) GetName() string  { return ss.name }
func (ss *SnapshotSystem) GetPriority() int { return ss.priority }
