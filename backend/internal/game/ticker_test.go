package game

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"
)

// RecordingSystem записывает порядок вызовов
type RecordingSystem struct {
	name     string
	priority int
	calls    *[]string
	deltas   []time.Duration
	err      error
	panics   bool
}

func (rs *RecordingSystem) Update(deltaTime time.Duration) error {
	*rs.calls = append(*rs.calls, rs.name)
	rs.deltas = append(rs.deltas, deltaTime)
	if rs.panics {
		panic("сбой системы")
	}
	return rs.err
}

func (rs *RecordingSystem) GetName() string  { return rs.name }
func (rs *RecordingSystem) GetPriority() int { return rs.priority }

func createQuietTicker(tps int) *GameTicker {
	return NewGameTicker(tps, log.New(io.Discard, "", 0))
}

func TestGameTicker_PriorityOrder(t *testing.T) {
	ticker := createQuietTicker(60)
	var calls []string

	ticker.RegisterSystem(&RecordingSystem{name: "snapshot", priority: 50, calls: &calls})
	ticker.RegisterSystem(&RecordingSystem{name: "command", priority: 5, calls: &calls})
	ticker.RegisterSystem(&RecordingSystem{name: "resource", priority: 20, calls: &calls})
	ticker.RegisterSystem(&RecordingSystem{name: "movement", priority: 10, calls: &calls})

	ticker.Step(time.Second / 60)

	expected := []string{"command", "movement", "resource", "snapshot"}
	if len(calls) != len(expected) {
		t.Fatalf("Ожидали %d вызовов, получили %d", len(expected), len(calls))
	}
	for i := range expected {
		if calls[i] != expected[i] {
			t.Errorf("Позиция %d: ожидали %s, получили %s", i, expected[i], calls[i])
		}
	}

	if ticker.GetTickCount() != 1 {
		t.Errorf("Ожидали 1 тик, получили %d", ticker.GetTickCount())
	}
}

func TestGameTicker_StepPassesDelta(t *testing.T) {
	ticker := createQuietTicker(60)
	var calls []string
	system := &RecordingSystem{name: "s", priority: 1, calls: &calls}
	ticker.RegisterSystem(system)

	ticker.Step(33 * time.Millisecond)
	ticker.Step(0)

	if system.deltas[0] != 33*time.Millisecond || system.deltas[1] != 0 {
		t.Errorf("Системы получили неверное время кадра: %v", system.deltas)
	}
}

func TestGameTicker_RecoversPanicsAndCountsErrors(t *testing.T) {
	ticker := createQuietTicker(60)
	var calls []string

	ticker.RegisterSystem(&RecordingSystem{name: "broken", priority: 1, calls: &calls, panics: true})
	ticker.RegisterSystem(&RecordingSystem{name: "failing", priority: 2, calls: &calls, err: errors.New("ошибка")})
	ticker.RegisterSystem(&RecordingSystem{name: "healthy", priority: 3, calls: &calls})

	ticker.Step(time.Second / 60)
	ticker.Step(time.Second / 60)

	if len(calls) != 6 {
		t.Fatalf("Паника не должна останавливать тик, вызовов %d", len(calls))
	}

	stats := ticker.Stats()
	if stats.Systems["broken"].Errors != 2 {
		t.Errorf("broken: ошибок %d", stats.Systems["broken"].Errors)
	}
	if stats.Systems["failing"].Errors != 2 {
		t.Errorf("failing: ошибок %d", stats.Systems["failing"].Errors)
	}
	if stats.Systems["healthy"].Errors != 0 || stats.Systems["healthy"].TotalExecutions != 2 {
		t.Errorf("healthy: %+v", stats.Systems["healthy"])
	}
}

func TestGameTicker_StartStop(t *testing.T) {
	ticker := createQuietTicker(200)
	var calls []string
	ticker.RegisterSystem(&RecordingSystem{name: "s", priority: 1, calls: &calls})

	if err := ticker.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !ticker.Running() {
		t.Fatal("Тикер должен работать после Start")
	}

	deadline := time.Now().Add(2 * time.Second)
	for ticker.GetTickCount() < 5 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	ticker.Stop()

	if ticker.Running() {
		t.Error("Тикер должен остановиться")
	}
	if ticker.GetTickCount() < 5 {
		t.Errorf("Ожидали хотя бы 5 тиков, получили %d", ticker.GetTickCount())
	}

	// После Stop тики не идут
	count := ticker.GetTickCount()
	time.Sleep(30 * time.Millisecond)
	if ticker.GetTickCount() != count {
		t.Error("Тики продолжаются после Stop")
	}
}

func TestGameTicker_StopsOnContextCancel(t *testing.T) {
	ticker := createQuietTicker(100)
	ctx, cancel := context.WithCancel(context.Background())

	ticker.Start(ctx)
	cancel()

	deadline := time.Now().Add(time.Second)
	for ticker.Running() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if ticker.Running() {
		t.Error("Тикер должен остановиться при отмене контекста")
	}

	// Stop после отмены не блокируется
	ticker.Stop()
}

func TestNewGameTicker_DefaultTPS(t *testing.T) {
	ticker := NewGameTicker(0, nil)

	if ticker.TickDuration() != time.Second/60 {
		t.Errorf("Ожидали тик 1/60с, получили %v", ticker.TickDuration())
	}
}
