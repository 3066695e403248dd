package game

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// TickSystem интерфейс для всех игровых систем
type TickSystem interface {
	Update(deltaTime time.Duration) error
	GetName() string
	GetPriority() int // Приоритет выполнения (меньше = раньше)
}

// GameTicker основной менеджер игрового цикла. Все системы выполняются в одной горутине.
type GameTicker struct {
	// Конфигурация
	targetTPS    int           // Целевая частота тиков в секунду
	tickDuration time.Duration // Длительность одного тика
	maxTickTime  time.Duration // Максимальное время на один тик

	// Состояние
	running      atomic.Bool
	tickCount    atomic.Uint64
	startTime    time.Time
	lastTickTime time.Time
	stepMutex    sync.Mutex // Тик выполняется целиком, без пересечений

	// Системы
	systems      []TickSystem
	systemsMutex sync.RWMutex

	// Мониторинг производительности
	perfMonitor *PerformanceMonitor

	// Управление
	cancel context.CancelFunc
	done   chan struct{}

	// Метрики
	metricsMutex    sync.RWMutex
	averageTickTime time.Duration
	maxObservedTick time.Duration
	skippedTicks    uint64

	// Логирование
	logger           *log.Logger
	warningThreshold time.Duration
}

// PerformanceMonitor отслеживает производительность каждой системы
type PerformanceMonitor struct {
	systemMetrics map[string]*SystemMetrics
	mutex         sync.RWMutex

	// Настройки мониторинга
	metricsWindow     int           // Количество последних тиков для усреднения
	warningThreshold  time.Duration // Порог предупреждения для системы
	criticalThreshold time.Duration // Критический порог
}

// SystemMetrics метрики производительности системы
type SystemMetrics struct {
	Name              string
	LastExecutionTime time.Duration
	AverageTime       time.Duration
	MaxTime           time.Duration
	TotalExecutions   uint64
	Errors            uint64

	// Скользящее окно для вычисления среднего
	recentTimes  []time.Duration
	recentIndex  int
	windowFilled bool
}

// NewGameTicker создает новый игровой тикер
func NewGameTicker(targetTPS int, logger *log.Logger) *GameTicker {
	if targetTPS <= 0 {
		targetTPS = 60 // Частота кадров браузерного прототипа
	}

	if logger == nil {
		logger = log.Default()
	}

	tickDuration := time.Second / time.Duration(targetTPS)

	return &GameTicker{
		targetTPS:        targetTPS,
		tickDuration:     tickDuration,
		maxTickTime:      tickDuration * 2, // Максимум в 2 раза больше целевого времени
		systems:          make([]TickSystem, 0),
		perfMonitor:      NewPerformanceMonitor(50, tickDuration/4), // Предупреждение при 25% от тика
		logger:           logger,
		warningThreshold: tickDuration / 2,
	}
}

// NewPerformanceMonitor создает новый монитор производительности
func NewPerformanceMonitor(windowSize int, warningThreshold time.Duration) *PerformanceMonitor {
	if windowSize <= 0 {
		windowSize = 1
	}

	return &PerformanceMonitor{
		systemMetrics:     make(map[string]*SystemMetrics),
		metricsWindow:     windowSize,
		warningThreshold:  warningThreshold,
		criticalThreshold: warningThreshold * 2,
	}
}

// Start запускает игровой цикл. Цикл останавливается при отмене ctx или вызове Stop.
func (gt *GameTicker) Start(ctx context.Context) error {
	if !gt.running.CompareAndSwap(false, true) {
		return nil // Уже запущен
	}

	loopCtx, cancel := context.WithCancel(ctx)
	gt.cancel = cancel
	gt.done = make(chan struct{})
	gt.startTime = time.Now()
	gt.lastTickTime = gt.startTime

	gt.logger.Printf("[GameTicker] Запуск игрового цикла: %d TPS (тик каждые %v)",
		gt.targetTPS, gt.tickDuration)

	go gt.gameLoop(loopCtx)

	return nil
}

// Stop останавливает игровой цикл и ждет завершения текущего тика
func (gt *GameTicker) Stop() {
	if !gt.running.Load() {
		return
	}

	gt.cancel()
	<-gt.done

	gt.logger.Printf("[GameTicker] Остановка игрового цикла (выполнено тиков: %d)", gt.tickCount.Load())
}

// Running сообщает, работает ли игровой цикл
func (gt *GameTicker) Running() bool {
	return gt.running.Load()
}

// RegisterSystem добавляет систему в игровой цикл
func (gt *GameTicker) RegisterSystem(system TickSystem) {
	gt.systemsMutex.Lock()
	defer gt.systemsMutex.Unlock()

	gt.systems = append(gt.systems, system)

	// Сортируем по приоритету (меньше = выше приоритет)
	for i := len(gt.systems) - 1; i > 0; i-- {
		if gt.systems[i].GetPriority() < gt.systems[i-1].GetPriority() {
			gt.systems[i], gt.systems[i-1] = gt.systems[i-1], gt.systems[i]
		} else {
			break
		}
	}

	gt.perfMonitor.initSystemMetrics(system.GetName())

	gt.logger.Printf("[GameTicker] Зарегистрирована система: %s (приоритет: %d)",
		system.GetName(), system.GetPriority())
}

// gameLoop основной игровой цикл
func (gt *GameTicker) gameLoop(ctx context.Context) {
	ticker := time.NewTicker(gt.tickDuration)
	defer func() {
		ticker.Stop()
		gt.running.Store(false)
		close(gt.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case tickTime := <-ticker.C:
			deltaTime := tickTime.Sub(gt.lastTickTime)

			// Проверяем, не слишком ли большая задержка между тиками
			if deltaTime > gt.tickDuration*2 {
				gt.logger.Printf("[GameTicker] ПРЕДУПРЕЖДЕНИЕ: Большая задержка между тиками: %v (ожидалось: %v)",
					deltaTime, gt.tickDuration)
				gt.metricsMutex.Lock()
				gt.skippedTicks++
				gt.metricsMutex.Unlock()
			}

			gt.lastTickTime = tickTime
			gt.Step(deltaTime)
		}
	}
}

// Step выполняет один тик с заданным временем кадра. Используется циклом и тестами.
func (gt *GameTicker) Step(deltaTime time.Duration) {
	gt.stepMutex.Lock()
	defer gt.stepMutex.Unlock()

	tickStart := time.Now()
	gt.tickCount.Add(1)

	gt.executeAllSystems(deltaTime)

	totalTickTime := time.Since(tickStart)
	gt.updateTickMetrics(totalTickTime)
	gt.checkPerformance(totalTickTime)
}

// executeAllSystems выполняет все зарегистрированные системы
func (gt *GameTicker) executeAllSystems(deltaTime time.Duration) {
	gt.systemsMutex.RLock()
	systems := make([]TickSystem, len(gt.systems))
	copy(systems, gt.systems)
	gt.systemsMutex.RUnlock()

	for _, system := range systems {
		gt.executeSystem(system, deltaTime)
	}
}

// executeSystem выполняет одну систему с замером времени
func (gt *GameTicker) executeSystem(system TickSystem, deltaTime time.Duration) {
	systemStart := time.Now()
	systemName := system.GetName()

	defer func() {
		if r := recover(); r != nil {
			gt.logger.Printf("[GameTicker] КРИТИЧЕСКАЯ ОШИБКА в системе %s: %v", systemName, r)
			gt.perfMonitor.recordError(systemName)
		}
	}()

	err := system.Update(deltaTime)

	gt.perfMonitor.recordExecution(systemName, time.Since(systemStart))

	if err != nil {
		gt.logger.Printf("[GameTicker] Ошибка в системе %s: %v", systemName, err)
		gt.perfMonitor.recordError(systemName)
	}
}

// TickStats снимок метрик игрового цикла
type TickStats struct {
	TargetTPS       int                      `json:"target_tps"`
	ActualTPS       float64                  `json:"actual_tps"`
	TickCount       uint64                   `json:"tick_count"`
	UptimeSeconds   float64                  `json:"uptime_seconds"`
	AverageTickTime time.Duration            `json:"average_tick_time"`
	MaxObservedTick time.Duration            `json:"max_observed_tick"`
	SkippedTicks    uint64                   `json:"skipped_ticks"`
	Running         bool                     `json:"is_running"`
	Systems         map[string]SystemMetrics `json:"systems"`
}

// Stats возвращает статистику игрового цикла
func (gt *GameTicker) Stats() TickStats {
	gt.metricsMutex.RLock()
	defer gt.metricsMutex.RUnlock()

	tickCount := gt.tickCount.Load()

	var uptime time.Duration
	var actualTPS float64
	if gt.Running() {
		uptime = time.Since(gt.startTime)
		if uptime > 0 {
			actualTPS = float64(tickCount) / uptime.Seconds()
		}
	}

	return TickStats{
		TargetTPS:       gt.targetTPS,
		ActualTPS:       actualTPS,
		TickCount:       tickCount,
		UptimeSeconds:   uptime.Seconds(),
		AverageTickTime: gt.averageTickTime,
		MaxObservedTick: gt.maxObservedTick,
		SkippedTicks:    gt.skippedTicks,
		Running:         gt.Running(),
		Systems:         gt.perfMonitor.SystemsStats(),
	}
}

// GetTickCount возвращает текущее количество тиков
func (gt *GameTicker) GetTickCount() uint64 {
	return gt.tickCount.Load()
}

// TickDuration возвращает целевую длительность тика
func (gt *GameTicker) TickDuration() time.Duration {
	return gt.tickDuration
}

// Вспомогательные методы для мониторинга производительности
func (pm *PerformanceMonitor) initSystemMetrics(systemName string) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	pm.systemMetrics[systemName] = &SystemMetrics{
		Name:        systemName,
		recentTimes: make([]time.Duration, pm.metricsWindow),
	}
}

func (pm *PerformanceMonitor) recordExecution(systemName string, executionTime time.Duration) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	metrics, exists := pm.systemMetrics[systemName]
	if !exists {
		return
	}

	metrics.LastExecutionTime = executionTime
	metrics.TotalExecutions++

	if executionTime > metrics.MaxTime {
		metrics.MaxTime = executionTime
	}

	// Добавляем в скользящее окно
	metrics.recentTimes[metrics.recentIndex] = executionTime
	metrics.recentIndex = (metrics.recentIndex + 1) % pm.metricsWindow

	if !metrics.windowFilled && metrics.recentIndex == 0 {
		metrics.windowFilled = true
	}

	pm.recalculateAverage(metrics)
}

func (pm *PerformanceMonitor) recordError(systemName string) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	if metrics, exists := pm.systemMetrics[systemName]; exists {
		metrics.Errors++
	}
}

func (pm *PerformanceMonitor) recalculateAverage(metrics *SystemMetrics) {
	var total time.Duration

	limit := pm.metricsWindow
	if !metrics.windowFilled {
		limit = metrics.recentIndex
	}

	for i := 0; i < limit; i++ {
		total += metrics.recentTimes[i]
	}

	if limit > 0 {
		metrics.AverageTime = total / time.Duration(limit)
	}
}

// SystemsStats возвращает копии метрик всех систем
func (pm *PerformanceMonitor) SystemsStats() map[string]SystemMetrics {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	stats := make(map[string]SystemMetrics, len(pm.systemMetrics))
	for name, metrics := range pm.systemMetrics {
		stats[name] = SystemMetrics{
			Name:              metrics.Name,
			LastExecutionTime: metrics.LastExecutionTime,
			AverageTime:       metrics.AverageTime,
			MaxTime:           metrics.MaxTime,
			TotalExecutions:   metrics.TotalExecutions,
			Errors:            metrics.Errors,
		}
	}

	return stats
}

func (gt *GameTicker) updateTickMetrics(tickTime time.Duration) {
	gt.metricsMutex.Lock()
	defer gt.metricsMutex.Unlock()

	if tickTime > gt.maxObservedTick {
		gt.maxObservedTick = tickTime
	}

	// Простое скользящее среднее
	if gt.averageTickTime == 0 {
		gt.averageTickTime = tickTime
	} else {
		gt.averageTickTime = (gt.averageTickTime*9 + tickTime) / 10
	}
}

func (gt *GameTicker) checkPerformance(tickTime time.Duration) {
	if tickTime > gt.maxTickTime {
		gt.logger.Printf("[GameTicker] КРИТИЧЕСКОЕ ПРЕДУПРЕЖДЕНИЕ: Тик превысил максимальное время! %v > %v (цель: %v)",
			tickTime, gt.maxTickTime, gt.tickDuration)
	} else if tickTime > gt.warningThreshold {
		gt.logger.Printf("[GameTicker] ПРЕДУПРЕЖДЕНИЕ: Медленный тик: %v (цель: %v)",
			tickTime, gt.tickDuration)
	}
}
