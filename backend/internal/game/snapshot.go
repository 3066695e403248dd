package game

import (
	"timberland/backend/internal/building"
	"timberland/backend/internal/resource"
)

// Типы событий узлов
const (
	NodeEventDamaged   = "damaged"
	NodeEventDestroyed = "destroyed"
	NodeEventRespawned = "respawned"
)

// Broadcaster интерфейс для отправки состояния сессии клиентам
type Broadcaster interface {
	BroadcastSnapshot(snapshot Snapshot)
	BroadcastNodeEvent(event NodeEvent)
	BroadcastResult(result ActionResult)
}

// PlayerView положение игрока для клиентов
type PlayerView struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Z   float64 `json:"z"`
	Yaw float64 `json:"yaw"`
}

// NodeView состояние дерева для отрисовки
type NodeView struct {
	ID               int     `json:"id"`
	Key              string  `json:"key"`
	X                float64 `json:"x"`
	Z                float64 `json:"z"`
	Health           int     `json:"health"`
	MaxHealth        int     `json:"max_health"`
	Visible          bool    `json:"visible"`
	Scale            float64 `json:"scale"` // Масштаб модели при росте после респавна
	RespawnRemaining float64 `json:"respawn_remaining,omitempty"`
}

// Snapshot полное состояние сессии на момент тика
type Snapshot struct {
	Tick          uint64               `json:"tick"`
	ServerTime    int64                `json:"server_time"`
	GameTime      float64              `json:"game_time"`
	Player        PlayerView           `json:"player"`
	Nodes         []NodeView           `json:"nodes"`
	Wood          int                  `json:"wood"`
	Items         map[string]int       `json:"items"`
	Structures    []building.Structure `json:"structures"`
	NearWorkbench bool                 `json:"near_workbench"`
	CooldownReady bool                 `json:"cooldown_ready"`
}

// NodeEvent изменение одного дерева
type NodeEvent struct {
	Kind string   `json:"kind"`
	Node NodeView `json:"node"`
	Wood int      `json:"wood"`
}

// ActionResult итог крафта или постройки
type ActionResult struct {
	Action    string              `json:"action"` // craft, build
	Item      string              `json:"item"`
	OK        bool                `json:"ok"`
	Error     string              `json:"error,omitempty"`
	Wood      int                 `json:"wood"`
	Structure *building.Structure `json:"structure,omitempty"`
}

// Node возвращает дерево из снимка по ключу
func (s Snapshot) Node(key string) (NodeView, bool) {
	for _, n := range s.Nodes {
		if n.Key == key {
			return n, true
		}
	}
	return NodeView{}, false
}

func nodeView(node resource.Node, maxHealth int, scale float64) NodeView {
	view := NodeView{
		ID:        node.ID,
		Key:       node.Key,
		X:         node.Position.X(),
		Z:         node.Position.Y(),
		Health:    node.Health,
		MaxHealth: maxHealth,
		Visible:   node.Active(),
		Scale:     scale,
	}
	if !node.Active() {
		view.Scale = 0
		view.RespawnRemaining = node.RespawnRemaining
	}
	return view
}
