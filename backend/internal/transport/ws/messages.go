package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"timberland/backend/internal/crafting"
	"timberland/backend/internal/game"
)

// Типы сообщений
const (
	// От клиента
	MessageTypePing    = "ping"
	MessageTypeInput   = "input"
	MessageTypeHarvest = "harvest"
	MessageTypeCraft   = "craft"
	MessageTypeBuild   = "build"

	// От сервера
	MessageTypePong      = "pong"
	MessageTypeInfo      = "info"
	MessageTypeSnapshot  = "snapshot"
	MessageTypeNodeEvent = "node_event"
	MessageTypeResult    = "result"
	MessageTypeError     = "error"
)

var (
	ErrInvalidMessage     = errors.New("некорректное сообщение")
	ErrUnknownMessageType = errors.New("неизвестный тип сообщения")
)

// PingMessage пинг для измерения задержки
type PingMessage struct {
	Type       string  `json:"type"`
	ClientTime float64 `json:"client_time"`
}

// InputMessage оси движения и поворот камеры
type InputMessage struct {
	Type    string  `json:"type"`
	Forward float64 `json:"forward"`
	Strafe  float64 `json:"strafe"`
	Yaw     float64 `json:"yaw"`
}

// HarvestMessage удар по ближайшему дереву
type HarvestMessage struct {
	Type string `json:"type"`
}

// CraftMessage крафт за верстаком
type CraftMessage struct {
	Type string `json:"type"`
	Item string `json:"item"`
}

// BuildMessage постройка. Без координат предмет ставится перед игроком.
type BuildMessage struct {
	Type string   `json:"type"`
	Item string   `json:"item"`
	X    *float64 `json:"x,omitempty"`
	Z    *float64 `json:"z,omitempty"`
}

// PongMessage ответ на пинг
type PongMessage struct {
	Type       string  `json:"type"`
	ClientTime float64 `json:"client_time"`
	ServerTime int64   `json:"server_time"`
}

// InfoMessage приветствие с книгой рецептов
type InfoMessage struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Recipes []crafting.Recipe `json:"recipes,omitempty"`
}

// SnapshotMessage состояние сессии
type SnapshotMessage struct {
	Type  string        `json:"type"`
	State game.Snapshot `json:"state"`
}

// NodeEventMessage изменение дерева
type NodeEventMessage struct {
	Type  string         `json:"type"`
	Event game.NodeEvent `json:"event"`
}

// ResultMessage итог крафта или постройки
type ResultMessage struct {
	Type   string            `json:"type"`
	Result game.ActionResult `json:"result"`
}

// ErrorMessage ошибка обработки сообщения клиента
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// GetCurrentServerTime возвращает текущее серверное время в миллисекундах
func GetCurrentServerTime() int64 {
	return time.Now().UnixMilli()
}

// ParseMessage разбирает входящее сообщение в соответствующий тип
func ParseMessage(data []byte) (interface{}, error) {
	var baseMessage struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &baseMessage); err != nil {
		return nil, fmt.Errorf("error parsing message: %w", ErrInvalidMessage)
	}

	var msg interface{}
	switch baseMessage.Type {
	case MessageTypePing:
		msg = &PingMessage{}
	case MessageTypeInput:
		msg = &InputMessage{}
	case MessageTypeHarvest:
		msg = &HarvestMessage{}
	case MessageTypeCraft:
		msg = &CraftMessage{}
	case MessageTypeBuild:
		msg = &BuildMessage{}
	default:
		return nil, fmt.Errorf("%q: %w", baseMessage.Type, ErrUnknownMessageType)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("error parsing %s message: %v: %w", baseMessage.Type, err, ErrInvalidMessage)
	}

	return msg, nil
}

// NewPongMessage создает ответ на пинг
func NewPongMessage(clientTime float64) *PongMessage {
	return &PongMessage{
		Type:       MessageTypePong,
		ClientTime: clientTime,
		ServerTime: GetCurrentServerTime(),
	}
}

// NewInfoMessage создает новое информационное сообщение
func NewInfoMessage(message string, recipes []crafting.Recipe) *InfoMessage {
	return &InfoMessage{
		Type:    MessageTypeInfo,
		Message: message,
		Recipes: recipes,
	}
}

// NewErrorMessage создает сообщение об ошибке
func NewErrorMessage(err error) *ErrorMessage {
	return &ErrorMessage{
		Type:    MessageTypeError,
		Message: err.Error(),
	}
}
