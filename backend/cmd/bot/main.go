package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"timberland/backend/internal/crafting"
	"timberland/backend/internal/game"
	"timberland/backend/internal/transport/health"
	"timberland/backend/internal/transport/ws"
)

// Bot подключается к серверу и рубит ближайшие деревья.
// При накоплении дерева крафтит предмет у верстака и ставит его перед собой.
type Bot struct {
	ID          string
	ServerURL   string
	Conn        *websocket.Conn
	Stats       BotStats
	Duration    time.Duration
	CommandRate time.Duration
	CraftItem   string

	mu       sync.RWMutex
	writeMu  sync.Mutex // Мьютекс для синхронизации записи в WebSocket
	running  bool
	snapshot game.Snapshot
	hasState bool
	recipes  map[string]int
}

// BotStats содержит статистику работы бота
type BotStats struct {
	CommandsSent int
	Snapshots    int
	Damaged      int
	Felled       int
	Crafted      int
	Built        int
	Rejected     int
	Errors       int
	StartTime    time.Time
	mu           sync.RWMutex
}

// NewBot создает нового бота
func NewBot(id, serverURL, craftItem string, duration, commandRate time.Duration) *Bot {
	return &Bot{
		ID:          id,
		ServerURL:   serverURL,
		Duration:    duration,
		CommandRate: commandRate,
		CraftItem:   craftItem,
		recipes:     make(map[string]int),
		Stats: BotStats{
			StartTime: time.Now(),
		},
	}
}

// Connect подключается к серверу
func (b *Bot) Connect() error {
	u, err := url.Parse(b.ServerURL)
	if err != nil {
		return fmt.Errorf("неверный URL: %w", err)
	}

	log.Printf("[Bot %s] Подключение к %s", b.ID, u.String())

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}

	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("ошибка подключения: %w", err)
	}

	b.mu.Lock()
	b.Conn = conn
	b.running = true
	b.mu.Unlock()

	log.Printf("[Bot %s] Успешно подключен", b.ID)
	return nil
}

// Disconnect отключается от сервера
func (b *Bot) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Conn != nil && b.running {
		b.running = false
		b.Conn.Close()
		log.Printf("[Bot %s] Отключен", b.ID)
	}
}

func (b *Bot) isRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

func (b *Bot) send(msg interface{}) error {
	b.mu.RLock()
	conn := b.Conn
	b.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("соединение не установлено")
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if err := conn.WriteJSON(msg); err != nil {
		b.countError()
		return fmt.Errorf("ошибка отправки: %w", err)
	}

	b.Stats.mu.Lock()
	b.Stats.CommandsSent++
	b.Stats.mu.Unlock()
	return nil
}

func (b *Bot) countError() {
	b.Stats.mu.Lock()
	b.Stats.Errors++
	b.Stats.mu.Unlock()
}

// step принимает одно решение по последнему снимку
func (b *Bot) step() error {
	b.mu.RLock()
	snapshot, ok := b.snapshot, b.hasState
	cost, craftable := b.recipes[b.CraftItem]
	b.mu.RUnlock()

	if !ok {
		return nil
	}

	// Готовый предмет ставим сразу
	if b.CraftItem != "" && snapshot.Items[b.CraftItem] > 0 {
		return b.send(ws.BuildMessage{Type: ws.MessageTypeBuild, Item: b.CraftItem})
	}

	if craftable && snapshot.Wood >= cost {
		bench := crafting.DefaultWorkbench().Position
		input, arrived := approach(snapshot, bench.X(), bench.Z(), workbenchStopDistance)
		if err := b.sendInput(input); err != nil {
			return err
		}
		if arrived && snapshot.NearWorkbench {
			return b.send(ws.CraftMessage{Type: ws.MessageTypeCraft, Item: b.CraftItem})
		}
		return nil
	}

	node, _, found := nearestVisible(snapshot)
	if !found {
		// Все деревья срублены: ждем респавна на месте
		return b.sendInput(inputAxes{Yaw: snapshot.Player.Yaw})
	}

	input, arrived := approach(snapshot, node.X, node.Z, treeStopDistance)
	if err := b.sendInput(input); err != nil {
		return err
	}
	if arrived && snapshot.CooldownReady {
		return b.send(ws.HarvestMessage{Type: ws.MessageTypeHarvest})
	}
	return nil
}

func (b *Bot) sendInput(input inputAxes) error {
	return b.send(ws.InputMessage{
		Type:    ws.MessageTypeInput,
		Forward: input.Forward,
		Strafe:  input.Strafe,
		Yaw:     input.Yaw,
	})
}

// handleMessage обрабатывает входящие сообщения
func (b *Bot) handleMessage(messageType int, data []byte) {
	if messageType != websocket.TextMessage {
		return
	}

	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		log.Printf("[Bot %s] Ошибка разбора сообщения: %v", b.ID, err)
		return
	}

	switch base.Type {
	case ws.MessageTypeInfo:
		var info ws.InfoMessage
		if err := json.Unmarshal(data, &info); err != nil {
			return
		}
		b.mu.Lock()
		for _, recipe := range info.Recipes {
			b.recipes[recipe.Name] = recipe.WoodCost
		}
		b.mu.Unlock()
		log.Printf("[Bot %s] Информация: %s, рецептов %d", b.ID, info.Message, len(info.Recipes))

	case ws.MessageTypeSnapshot:
		var msg ws.SnapshotMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		b.mu.Lock()
		b.snapshot = msg.State
		b.hasState = true
		b.mu.Unlock()
		b.Stats.mu.Lock()
		b.Stats.Snapshots++
		b.Stats.mu.Unlock()

	case ws.MessageTypeNodeEvent:
		var msg ws.NodeEventMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		b.Stats.mu.Lock()
		switch msg.Event.Kind {
		case game.NodeEventDamaged:
			b.Stats.Damaged++
		case game.NodeEventDestroyed:
			b.Stats.Felled++
			log.Printf("[Bot %s] Срублено %s, дерева: %d", b.ID, msg.Event.Node.Key, msg.Event.Wood)
		}
		b.Stats.mu.Unlock()

	case ws.MessageTypeResult:
		var msg ws.ResultMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		b.Stats.mu.Lock()
		switch {
		case !msg.Result.OK:
			b.Stats.Rejected++
		case msg.Result.Action == "craft":
			b.Stats.Crafted++
		case msg.Result.Action == "build":
			b.Stats.Built++
		}
		b.Stats.mu.Unlock()
		log.Printf("[Bot %s] %s %s: ok=%v %s", b.ID, msg.Result.Action, msg.Result.Item, msg.Result.OK, msg.Result.Error)

	case ws.MessageTypePong:
		var pong ws.PongMessage
		if err := json.Unmarshal(data, &pong); err == nil {
			rtt := float64(time.Now().UnixMilli()) - pong.ClientTime
			log.Printf("[Bot %s] Получен pong, RTT %.0f мс", b.ID, rtt)
		}

	case ws.MessageTypeError:
		b.countError()
		log.Printf("[Bot %s] Ошибка сервера: %s", b.ID, data)

	default:
		log.Printf("[Bot %s] Неизвестный тип сообщения: %s", b.ID, base.Type)
	}
}

// Run запускает бота
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Connect(); err != nil {
		return err
	}
	defer b.Disconnect()

	go func() {
		for b.isRunning() {
			messageType, data, err := b.Conn.ReadMessage()
			if err != nil {
				if b.isRunning() {
					log.Printf("[Bot %s] Ошибка чтения сообщения: %v", b.ID, err)
					b.countError()
					b.Disconnect()
				}
				return
			}
			b.handleMessage(messageType, data)
		}
	}()

	pingTicker := time.NewTicker(5 * time.Second)
	defer pingTicker.Stop()

	commandTicker := time.NewTicker(b.CommandRate)
	defer commandTicker.Stop()

	timeout := time.After(b.Duration)

	for b.isRunning() {
		select {
		case <-ctx.Done():
			log.Printf("[Bot %s] Получен сигнал прерывания", b.ID)
			return nil
		case <-timeout:
			log.Printf("[Bot %s] Завершение работы", b.ID)
			return nil
		case <-pingTicker.C:
			ping := ws.PingMessage{Type: ws.MessageTypePing, ClientTime: float64(time.Now().UnixMilli())}
			if err := b.send(ping); err != nil {
				log.Printf("[Bot %s] Ошибка отправки ping: %v", b.ID, err)
			}
		case <-commandTicker.C:
			if err := b.step(); err != nil {
				log.Printf("[Bot %s] Ошибка отправки команды: %v", b.ID, err)
			}
		}
	}

	return nil
}

// PrintStats выводит статистику бота
func (b *Bot) PrintStats() {
	b.Stats.mu.RLock()
	defer b.Stats.mu.RUnlock()

	duration := time.Since(b.Stats.StartTime)
	log.Printf("[Bot %s] Статистика:", b.ID)
	log.Printf("  Время работы: %v", duration)
	log.Printf("  Команд отправлено: %d", b.Stats.CommandsSent)
	log.Printf("  Снимков получено: %d", b.Stats.Snapshots)
	log.Printf("  Ударов: %d, срублено: %d", b.Stats.Damaged, b.Stats.Felled)
	log.Printf("  Скрафчено: %d, построено: %d, отказов: %d", b.Stats.Crafted, b.Stats.Built, b.Stats.Rejected)
	log.Printf("  Ошибок: %d", b.Stats.Errors)
}

// waitHealthy ждет SERVING от gRPC health-сервиса
func waitHealthy(ctx context.Context, addr string, timeout time.Duration) error {
	client, err := health.NewClient(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		status, err := client.Status(ctx)
		if err == nil && status == healthpb.HealthCheckResponse_SERVING {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("сервер не готов (%v): %w", status, ctx.Err())
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func main() {
	var (
		serverURL   = flag.String("url", "ws://localhost:8080/ws", "URL WebSocket сервера")
		grpcAddr    = flag.String("grpc", "", "адрес gRPC health сервиса для ожидания готовности")
		botID       = flag.String("id", "bot1", "ID бота")
		craftItem   = flag.String("craft", "wall", "предмет для крафта и постройки, пустой - только рубка")
		duration    = flag.Duration("duration", 60*time.Second, "Длительность работы бота")
		commandRate = flag.Duration("rate", 100*time.Millisecond, "Частота отправки команд")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *grpcAddr != "" {
		if err := waitHealthy(ctx, *grpcAddr, 10*time.Second); err != nil {
			log.Fatalf("[Bot %s] %v", *botID, err)
		}
	}

	bot := NewBot(*botID, *serverURL, *craftItem, *duration, *commandRate)

	if err := bot.Run(ctx); err != nil {
		log.Printf("[Bot %s] Ошибка: %v", bot.ID, err)
		os.Exit(1)
	}

	bot.PrintStats()
}
