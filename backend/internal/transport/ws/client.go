package ws

import (
	"sync"
	"sync/atomic"
)

// sendBuffer размер очереди исходящих сообщений одного клиента
const sendBuffer = 64

// client подключенный клиент с собственной очередью рассылки.
// Пишет в сокет только горутина writePump; рассылка лишь кладет сообщения в очередь.
type client struct {
	writer *SafeWriter
	send   chan []byte
	done   chan struct{}
	once   sync.Once

	dropped atomic.Int64
}

func newClient(writer *SafeWriter, buffer int) *client {
	return &client{
		writer: writer,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

// enqueue кладет сообщение в очередь. Если очередь полна, сообщение отбрасывается.
func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

// writePump пишет очередь в сокет до остановки клиента или ошибки записи
func (c *client) writePump() error {
	for {
		select {
		case data := <-c.send:
			if err := c.writer.WriteMessage(data); err != nil {
				return err
			}
		case <-c.done:
			return nil
		}
	}
}

// stop останавливает writePump; повторные вызовы безопасны
func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

// Dropped возвращает число отброшенных сообщений
func (c *client) Dropped() int64 {
	return c.dropped.Load()
}
