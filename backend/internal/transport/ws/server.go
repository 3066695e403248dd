package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"timberland/backend/internal/crafting"
	"timberland/backend/internal/game"
)

// SessionPort то, что сервер использует от игровой сессии
type SessionPort interface {
	Submit(cmd game.Command) error
	Latest() game.Snapshot
	Recipes() []crafting.Recipe
}

// MessageHandler обработчик входящего сообщения определенного типа
type MessageHandler func(conn *SafeWriter, msg interface{}) error

// Server мост между сессией и WebSocket клиентами.
// Реализует game.Broadcaster.
type Server struct {
	upgrader websocket.Upgrader
	session  SessionPort
	handlers map[string]MessageHandler
	logger   *log.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
}

var _ game.Broadcaster = (*Server)(nil)

// NewServer создает WebSocket сервер для сессии
func NewServer(session SessionPort, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		session:  session,
		handlers: make(map[string]MessageHandler),
		logger:   logger,
		clients:  make(map[*client]struct{}),
	}

	s.RegisterHandler(MessageTypePing, s.handlePing)
	s.RegisterHandler(MessageTypeInput, s.handleInput)
	s.RegisterHandler(MessageTypeHarvest, s.handleHarvest)
	s.RegisterHandler(MessageTypeCraft, s.handleCraft)
	s.RegisterHandler(MessageTypeBuild, s.handleBuild)

	return s
}

// RegisterHandler регистрирует обработчик для типа сообщения
func (s *Server) RegisterHandler(msgType string, handler MessageHandler) {
	s.handlers[msgType] = handler
}

// HandleWS обрабатывает WebSocket соединение
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("[WS] Ошибка при установке WebSocket соединения: %v", err)
		return
	}

	writer := NewSafeWriter(conn)
	c := newClient(writer, sendBuffer)
	defer s.disconnect(c)

	s.logger.Printf("[WS] Новое подключение: %s", writer.RemoteAddr())

	if err := writer.WriteJSON(NewInfoMessage("connected", s.session.Recipes())); err != nil {
		s.logger.Printf("[WS] Ошибка отправки приветствия: %v", err)
		return
	}
	if err := writer.WriteJSON(SnapshotMessage{Type: MessageTypeSnapshot, State: s.session.Latest()}); err != nil {
		s.logger.Printf("[WS] Ошибка отправки начального снимка: %v", err)
		return
	}

	s.register(c)
	go func() {
		if err := c.writePump(); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				s.logger.Printf("[WS] Ошибка рассылки %s: %v", writer.RemoteAddr(), err)
			}
			s.disconnect(c)
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Printf("[WS] Ошибка чтения: %v", err)
			}
			return
		}

		msg, err := ParseMessage(data)
		if err != nil {
			// Соединение не рвем: клиент получает ошибку и может продолжить
			s.logger.Printf("[WS] Отклонено сообщение от %s: %v", writer.RemoteAddr(), err)
			if werr := writer.WriteJSON(NewErrorMessage(err)); werr != nil {
				return
			}
			continue
		}

		handler, ok := s.handlers[messageType(msg)]
		if !ok {
			s.logger.Printf("[WS] Нет обработчика для %T", msg)
			continue
		}

		if err := handler(writer, msg); err != nil {
			s.logger.Printf("[WS] Ошибка обработки %s: %v", messageType(msg), err)
			if werr := writer.WriteJSON(NewErrorMessage(err)); werr != nil {
				return
			}
		}
	}
}

// ClientCount возвращает количество подключенных клиентов
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// BroadcastSnapshot рассылает снимок всем клиентам
func (s *Server) BroadcastSnapshot(snapshot game.Snapshot) {
	s.broadcast(SnapshotMessage{Type: MessageTypeSnapshot, State: snapshot})
}

// BroadcastNodeEvent рассылает изменение дерева
func (s *Server) BroadcastNodeEvent(event game.NodeEvent) {
	s.broadcast(NodeEventMessage{Type: MessageTypeNodeEvent, Event: event})
}

// BroadcastResult рассылает итог крафта или постройки
func (s *Server) BroadcastResult(result game.ActionResult) {
	s.broadcast(ResultMessage{Type: MessageTypeResult, Result: result})
}

// Close закрывает все соединения
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.stop()
		_ = c.writer.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"))
		c.writer.Close()
		delete(s.clients, c)
	}
}

// broadcast сериализует сообщение один раз и раскладывает по очередям клиентов.
// Не ждет сокетов: медленный клиент теряет сообщения, а не тормозит игровой цикл.
func (s *Server) broadcast(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Printf("[WS] Ошибка сериализации %T: %v", msg, err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.clients {
		if !c.enqueue(data) {
			if n := c.Dropped(); n == 1 || n%100 == 0 {
				s.logger.Printf("[WS] Очередь %s переполнена, отброшено %d сообщений", c.writer.RemoteAddr(), n)
			}
		}
	}
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) disconnect(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()

	c.stop()
	c.writer.Close()
	if ok {
		s.logger.Printf("[WS] Клиент отключен: %s", c.writer.RemoteAddr())
	}
}

func messageType(msg interface{}) string {
	switch msg.(type) {
	case *PingMessage:
		return MessageTypePing
	case *InputMessage:
		return MessageTypeInput
	case *HarvestMessage:
		return MessageTypeHarvest
	case *CraftMessage:
		return MessageTypeCraft
	case *BuildMessage:
		return MessageTypeBuild
	default:
		return ""
	}
}
