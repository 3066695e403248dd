package telemetry

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"
)

// Kind тип игрового события
type Kind string

const (
	KindHarvest Kind = "harvest"
	KindFell    Kind = "fell"
	KindRespawn Kind = "respawn"
	KindCraft   Kind = "craft"
	KindBuild   Kind = "build"
	KindReject  Kind = "reject"
)

// Event запись телеметрии
type Event struct {
	Timestamp int64   `json:"timestamp"` // Время в миллисекундах
	Kind      Kind    `json:"kind"`
	Subject   string  `json:"subject"`          // Ключ узла, предмет или постройка
	Health    int     `json:"health,omitempty"` // Здоровье узла после события
	Wood      int     `json:"wood"`             // Дерево в инвентаре после события
	GameTime  float64 `json:"game_time"`        // Часы кадров менеджера ресурсов
	Detail    string  `json:"detail,omitempty"`
}

// Recorder хранит последние события и счетчики по типам
type Recorder struct {
	enabled    bool
	data       []Event
	mutex      sync.RWMutex
	maxEntries int
	logger     *log.Logger

	totals        map[Kind]int
	counters      map[Kind]int // Сбрасываются после каждой сводки
	lastPrint     time.Time
	printInterval time.Duration
}

// NewRecorder создает новый регистратор телеметрии
func NewRecorder(logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}

	return &Recorder{
		enabled:       true,
		data:          make([]Event, 0),
		maxEntries:    200, // Храним последние 200 записей
		logger:        logger,
		totals:        make(map[Kind]int),
		counters:      make(map[Kind]int),
		lastPrint:     time.Now(),
		printInterval: 10 * time.Second,
	}
}

// Record записывает событие
func (r *Recorder) Record(event Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.enabled {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	r.data = append(r.data, event)

	// Ограничиваем размер буфера
	if len(r.data) > r.maxEntries {
		r.data = r.data[len(r.data)-r.maxEntries:]
	}

	r.totals[event.Kind]++
	r.counters[event.Kind]++
}

// Recent возвращает до n последних событий, от старых к новым
func (r *Recorder) Recent(n int) []Event {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if n <= 0 || n > len(r.data) {
		n = len(r.data)
	}

	result := make([]Event, n)
	copy(result, r.data[len(r.data)-n:])
	return result
}

// Totals возвращает счетчики событий за все время
func (r *Recorder) Totals() map[Kind]int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make(map[Kind]int, len(r.totals))
	for k, v := range r.totals {
		result[k] = v
	}
	return result
}

// MaybeLog выводит сводку, если с прошлой прошло printInterval
func (r *Recorder) MaybeLog(now time.Time) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.enabled || now.Sub(r.lastPrint) < r.printInterval {
		return false
	}

	r.lastPrint = now
	if len(r.counters) == 0 {
		return false
	}

	kinds := make([]string, 0, len(r.counters))
	for kind := range r.counters {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	r.logger.Printf("📊 [Telemetry] Событий в буфере: %d", len(r.data))
	for _, kind := range kinds {
		r.logger.Printf("📈 [Telemetry] %s: %d (всего %d)", kind, r.counters[Kind(kind)], r.totals[Kind(kind)])
	}

	// Сброс счетчиков
	r.counters = make(map[Kind]int)
	return true
}

// SetPrintInterval задает период сводок
func (r *Recorder) SetPrintInterval(interval time.Duration) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.printInterval = interval
}

// SetEnabled включает/выключает телеметрию
func (r *Recorder) SetEnabled(enabled bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.enabled = enabled
	r.logger.Printf("🔬 [Telemetry] Телеметрия %s", map[bool]string{true: "включена", false: "выключена"}[enabled])
}

// JSON возвращает буфер событий в JSON формате
func (r *Recorder) JSON() ([]byte, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return json.Marshal(r.data)
}

// Clear очищает все данные телеметрии
func (r *Recorder) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.data = make([]Event, 0)
	r.totals = make(map[Kind]int)
	r.counters = make(map[Kind]int)
}
