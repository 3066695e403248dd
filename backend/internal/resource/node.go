package resource

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"timberland/backend/internal/collision"
)

// State состояние ресурсного узла
type State int

const (
	StateActive    State = iota // Узел стоит, участвует в коллизиях, его можно рубить
	StateDestroyed              // Узел срублен и ждет респавна
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Node - ресурсный узел (дерево)
type Node struct {
	ID               int
	Key              string
	Position         mgl64.Vec2 // (x, z), y неявный
	Health           int
	State            State
	RespawnRemaining float64          // Секунды до респавна, имеет смысл только в StateDestroyed
	Collision        collision.Handle // Не ноль тогда и только тогда, когда узел активен
	Yield            string
}

// Active сообщает, стоит ли узел
func (n Node) Active() bool {
	return n.State == StateActive
}

// NodeKey возвращает ключ узла по его индексу
func NodeKey(id int) string {
	return fmt.Sprintf("tree_%d", id)
}
