package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait ограничивает одну запись в сокет
const writeWait = time.Second

// SafeWriter обеспечивает потокобезопасную запись в WebSocket
type SafeWriter struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

// NewSafeWriter создает новый экземпляр SafeWriter
func NewSafeWriter(conn *websocket.Conn) *SafeWriter {
	return &SafeWriter{
		conn: conn,
	}
}

// WriteJSON потокобезопасно отправляет JSON данные через WebSocket
func (w *SafeWriter) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.WriteMessage(data)
}

// WriteMessage отправляет уже сериализованное текстовое сообщение
func (w *SafeWriter) WriteMessage(data []byte) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// WriteControl отправляет управляющий кадр (ping, close)
func (w *SafeWriter) WriteControl(messageType int, data []byte) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.conn.WriteControl(messageType, data, time.Now().Add(writeWait))
}

// Close закрывает соединение WebSocket
func (w *SafeWriter) Close() error {
	return w.conn.Close()
}

// RemoteAddr возвращает адрес клиента
func (w *SafeWriter) RemoteAddr() string {
	return w.conn.RemoteAddr().String()
}
