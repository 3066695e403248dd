package telemetry

import (
	"bytes"
	"encoding/json"
	"log"
	"strings"
	"testing"
	"time"
)

func TestRecorder_RingBuffer(t *testing.T) {
	r := NewRecorder(log.New(&bytes.Buffer{}, "", 0))

	for i := 0; i < 250; i++ {
		r.Record(Event{Kind: KindHarvest, Health: i})
	}

	recent := r.Recent(0)
	if len(recent) != 200 {
		t.Fatalf("Ожидали 200 событий, получили %d", len(recent))
	}
	if recent[0].Health != 50 || recent[199].Health != 249 {
		t.Errorf("Неверное окно буфера: первое %d, последнее %d", recent[0].Health, recent[199].Health)
	}

	last := r.Recent(3)
	if len(last) != 3 || last[2].Health != 249 {
		t.Errorf("Recent(3) = %+v", last)
	}

	if r.Totals()[KindHarvest] != 250 {
		t.Errorf("Всего рубок %d", r.Totals()[KindHarvest])
	}
}

func TestRecorder_TimestampFilled(t *testing.T) {
	r := NewRecorder(log.New(&bytes.Buffer{}, "", 0))
	r.Record(Event{Kind: KindFell, Subject: "tree_0"})

	if r.Recent(1)[0].Timestamp == 0 {
		t.Error("Временная метка должна заполняться")
	}
}

func TestRecorder_MaybeLog(t *testing.T) {
	var buf bytes.Buffer
	r := NewRecorder(log.New(&buf, "", 0))
	r.SetPrintInterval(time.Second)

	start := time.Now()
	r.Record(Event{Kind: KindFell})
	r.Record(Event{Kind: KindHarvest})

	if r.MaybeLog(start) {
		t.Error("Сводка не должна выводиться раньше интервала")
	}
	if !r.MaybeLog(start.Add(2 * time.Second)) {
		t.Fatal("Сводка должна выводиться после интервала")
	}
	if !strings.Contains(buf.String(), "fell: 1") {
		t.Errorf("В сводке нет счетчика fell: %q", buf.String())
	}

	// Счетчики интервала сброшены, всего - нет
	if r.MaybeLog(start.Add(4 * time.Second)) {
		t.Error("Пустая сводка не выводится")
	}
	if r.Totals()[KindFell] != 1 {
		t.Error("Общие счетчики не должны сбрасываться")
	}
}

func TestRecorder_Disabled(t *testing.T) {
	r := NewRecorder(log.New(&bytes.Buffer{}, "", 0))
	r.SetEnabled(false)
	r.Record(Event{Kind: KindCraft})

	if len(r.Recent(0)) != 0 {
		t.Error("Выключенная телеметрия не должна записывать")
	}
}

func TestRecorder_JSON(t *testing.T) {
	r := NewRecorder(log.New(&bytes.Buffer{}, "", 0))
	r.Record(Event{Kind: KindBuild, Subject: "wall_1", Wood: 2})

	data, err := r.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(events) != 1 || events[0].Subject != "wall_1" {
		t.Errorf("Получили %+v", events)
	}

	r.Clear()
	if len(r.Recent(0)) != 0 || len(r.Totals()) != 0 {
		t.Error("Clear должен очищать буфер и счетчики")
	}
}
