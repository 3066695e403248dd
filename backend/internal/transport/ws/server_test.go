package ws

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"timberland/backend/internal/config"
	"timberland/backend/internal/game"
)

type envelope struct {
	Type string `json:"type"`
}

// Поднимаем сессию без запуска цикла: тест сам продвигает тики
func createTestServer(t *testing.T) (*Server, *game.GameTicker, *websocket.Conn, <-chan []byte) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)

	cfg := config.Default()
	cfg.Game.AutoHarvest = false
	cfg.World.ForestCount = 0
	cfg.Resource.InteractionRange = 6 // tree_0 в (5,0) достижимо с точки появления

	session := game.NewSession(cfg, logger)
	ticker := game.NewGameTicker(cfg.Game.TPS, logger)
	session.RegisterSystems(ticker)

	server := NewServer(session, logger)
	session.SetBroadcaster(server)

	httpServer := httptest.NewServer(http.HandlerFunc(server.HandleWS))
	t.Cleanup(httpServer.Close)

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Не удалось подключиться: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	messages := make(chan []byte, 256)
	go func() {
		defer close(messages)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			messages <- data
		}
	}()

	return server, ticker, conn, messages
}

// waitFor продвигает тики, пока не придет сообщение нужного типа
func waitFor(t *testing.T, ticker *game.GameTicker, messages <-chan []byte, msgType string) []byte {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case data, ok := <-messages:
			if !ok {
				t.Fatalf("Соединение закрыто до получения %s", msgType)
			}
			var env envelope
			if err := json.Unmarshal(data, &env); err != nil {
				t.Fatalf("Некорректный JSON от сервера: %v", err)
			}
			if env.Type == msgType {
				return data
			}
		case <-deadline:
			t.Fatalf("Не дождались сообщения %s", msgType)
		case <-time.After(5 * time.Millisecond):
			if ticker != nil {
				ticker.Step(16 * time.Millisecond)
			}
		}
	}
}

func TestServer_Handshake(t *testing.T) {
	_, _, _, messages := createTestServer(t)

	var info InfoMessage
	if err := json.Unmarshal(waitFor(t, nil, messages, MessageTypeInfo), &info); err != nil {
		t.Fatal(err)
	}
	if len(info.Recipes) != 3 {
		t.Errorf("Ожидали 3 рецепта в приветствии, получили %d", len(info.Recipes))
	}

	var snap SnapshotMessage
	if err := json.Unmarshal(waitFor(t, nil, messages, MessageTypeSnapshot), &snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.State.Nodes) != 5 {
		t.Errorf("Ожидали 5 деревьев в начальном снимке, получили %d", len(snap.State.Nodes))
	}
}

func TestServer_HarvestOverWebSocket(t *testing.T) {
	server, ticker, conn, messages := createTestServer(t)
	waitFor(t, nil, messages, MessageTypeSnapshot)

	if err := conn.WriteJSON(HarvestMessage{Type: MessageTypeHarvest}); err != nil {
		t.Fatalf("Ошибка отправки: %v", err)
	}

	var event NodeEventMessage
	if err := json.Unmarshal(waitFor(t, ticker, messages, MessageTypeNodeEvent), &event); err != nil {
		t.Fatal(err)
	}
	if event.Event.Kind != game.NodeEventDamaged {
		t.Errorf("Ожидали событие %s, получили %s", game.NodeEventDamaged, event.Event.Kind)
	}
	if event.Event.Node.Key != "tree_0" || event.Event.Node.Health != 4 {
		t.Errorf("Ожидали tree_0 со здоровьем 4, получили %s/%d", event.Event.Node.Key, event.Event.Node.Health)
	}
	if server.ClientCount() != 1 {
		t.Errorf("Ожидали 1 клиента, получили %d", server.ClientCount())
	}
}

func TestServer_CraftWithoutWoodFails(t *testing.T) {
	_, ticker, conn, messages := createTestServer(t)
	waitFor(t, nil, messages, MessageTypeSnapshot)

	if err := conn.WriteJSON(CraftMessage{Type: MessageTypeCraft, Item: "wall"}); err != nil {
		t.Fatalf("Ошибка отправки: %v", err)
	}

	var result ResultMessage
	if err := json.Unmarshal(waitFor(t, ticker, messages, MessageTypeResult), &result); err != nil {
		t.Fatal(err)
	}
	if result.Result.OK || result.Result.Error == "" {
		t.Errorf("Крафт без дерева должен провалиться: %+v", result.Result)
	}
}

func TestServer_UnknownMessageKeepsConnection(t *testing.T) {
	_, _, conn, messages := createTestServer(t)
	waitFor(t, nil, messages, MessageTypeSnapshot)

	if err := conn.WriteJSON(map[string]string{"type": "teleport"}); err != nil {
		t.Fatal(err)
	}
	var errMsg ErrorMessage
	if err := json.Unmarshal(waitFor(t, nil, messages, MessageTypeError), &errMsg); err != nil {
		t.Fatal(err)
	}
	if errMsg.Message == "" {
		t.Error("Сообщение об ошибке не должно быть пустым")
	}

	// Соединение живо: пинг получает ответ
	if err := conn.WriteJSON(PingMessage{Type: MessageTypePing, ClientTime: 7}); err != nil {
		t.Fatal(err)
	}
	var pong PongMessage
	if err := json.Unmarshal(waitFor(t, nil, messages, MessageTypePong), &pong); err != nil {
		t.Fatal(err)
	}
	if pong.ClientTime != 7 {
		t.Errorf("Ожидали client_time 7, получили %f", pong.ClientTime)
	}
}

func TestServer_StalledClientDoesNotBlockBroadcast(t *testing.T) {
	server, _, _, messages := createTestServer(t)
	waitFor(t, nil, messages, MessageTypeSnapshot)
	for deadline := time.Now().Add(time.Second); server.ClientCount() != 1; {
		if time.Now().After(deadline) {
			t.Fatal("Клиент не зарегистрирован")
		}
		time.Sleep(time.Millisecond)
	}

	// Клиент, чью очередь никто не разбирает
	echo, _ := echoServer(t, 1)
	defer echo.Close()
	stalledConn := dial(t, echo)
	defer stalledConn.Close()
	stalled := newClient(NewSafeWriter(stalledConn), 1)
	server.register(stalled)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			server.BroadcastResult(game.ActionResult{Action: "craft", OK: true})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Рассылка зависла на медленном клиенте")
	}

	for i := 0; i < 10; i++ {
		waitFor(t, nil, messages, MessageTypeResult)
	}
	if stalled.Dropped() != 9 {
		t.Errorf("Ожидали 9 отброшенных сообщений, получили %d", stalled.Dropped())
	}
	if server.ClientCount() != 2 {
		t.Errorf("Медленный клиент не должен отключаться, клиентов %d", server.ClientCount())
	}
}
