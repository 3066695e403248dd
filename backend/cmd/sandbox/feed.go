package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"timberland/backend/internal/game"
)

const (
	sampleRate = beep.SampleRate(44100)
	maxPlayed  = 16
)

// tone короткий звуковой сигнал
type tone struct {
	freq     float64
	duration time.Duration
}

var (
	toneChop    = tone{440, 60 * time.Millisecond}
	toneFell    = tone{196, 220 * time.Millisecond}
	toneRespawn = tone{660, 120 * time.Millisecond}
	toneOK      = tone{880, 80 * time.Millisecond}
	toneFail    = tone{140, 150 * time.Millisecond}
)

// feed получает события сессии: озвучивает их и хранит строку статуса для HUD.
// Реализует game.Broadcaster.
type feed struct {
	mu        sync.Mutex
	audioInit bool
	status    string
	played    []tone
}

var _ game.Broadcaster = (*feed)(nil)

func newFeed() *feed {
	return &feed{}
}

// initAudio включает звук. Без звука песочница работает как обычно.
func (f *feed) initAudio() error {
	err := speaker.Init(sampleRate, sampleRate.N(time.Second/10))
	if err == nil {
		f.mu.Lock()
		f.audioInit = true
		f.mu.Unlock()
	}
	return err
}

func (f *feed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.audioInit {
		speaker.Close()
		f.audioInit = false
	}
}

func (f *feed) play(t tone) {
	f.mu.Lock()
	f.played = append(f.played, t)
	if len(f.played) > maxPlayed {
		f.played = f.played[len(f.played)-maxPlayed:]
	}
	enabled := f.audioInit
	f.mu.Unlock()

	if !enabled {
		return
	}

	sine, err := generators.SineTone(sampleRate, t.freq)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(t.duration), sine))
}

func (f *feed) setStatus(format string, args ...interface{}) {
	f.mu.Lock()
	f.status = fmt.Sprintf(format, args...)
	f.mu.Unlock()
}

// Status возвращает последнее событие
func (f *feed) Status() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *feed) BroadcastSnapshot(game.Snapshot) {}

func (f *feed) BroadcastNodeEvent(event game.NodeEvent) {
	switch event.Kind {
	case game.NodeEventDamaged:
		f.setStatus("Удар по %s: %d/%d", event.Node.Key, event.Node.Health, event.Node.MaxHealth)
		f.play(toneChop)
	case game.NodeEventDestroyed:
		f.setStatus("%s срублено, дерева: %d", event.Node.Key, event.Wood)
		f.play(toneFell)
	case game.NodeEventRespawned:
		f.setStatus("%s выросло снова", event.Node.Key)
		f.play(toneRespawn)
	}
}

func (f *feed) BroadcastResult(result game.ActionResult) {
	if result.OK {
		f.setStatus("%s %s: готово", result.Action, result.Item)
		f.play(toneOK)
		return
	}
	f.setStatus("%s %s: %s", result.Action, result.Item, result.Error)
	f.play(toneFail)
}
