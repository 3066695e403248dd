package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"time"

	"timberland/backend/internal/resource"
)

var ErrInvalid = errors.New("некорректная конфигурация")

// Допустимый откат рубки
const (
	MinHarvestCooldown = 600 * time.Millisecond
	MaxHarvestCooldown = time.Second
)

// ServerConfig сетевые адреса
type ServerConfig struct {
	Addr     string // HTTP и websocket
	GRPCAddr string // gRPC health
}

// GameConfig настройки игрового цикла и сессии
type GameConfig struct {
	TPS              int
	SnapshotInterval time.Duration
	AutoHarvest      bool // Рубить автоматически, стоя рядом с деревом
	CommandBuffer    int
	PlayerSpeed      float64 // Единиц в секунду
}

// WorldConfig генерация мира
type WorldConfig struct {
	ForestSeed  int64
	ForestCount int // 0 - только стандартная роща
}

// Config полная конфигурация сервера
type Config struct {
	Server   ServerConfig
	Game     GameConfig
	Resource resource.Config
	World    WorldConfig
}

// Default возвращает конфигурацию по умолчанию
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:     ":8080",
			GRPCAddr: ":50051",
		},
		Game: GameConfig{
			TPS:              60,
			SnapshotInterval: 100 * time.Millisecond,
			AutoHarvest:      true,
			CommandBuffer:    256,
			PlayerSpeed:      6.0, // 0.1 за кадр при 60 FPS
		},
		Resource: resource.DefaultConfig(),
		World: WorldConfig{
			ForestSeed:  0,
			ForestCount: 0,
		},
	}
}

// Load разбирает флаги командной строки поверх значений по умолчанию
func Load(name string, args []string, output io.Writer) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	if output != nil {
		fs.SetOutput(output)
	}

	fs.StringVar(&cfg.Server.Addr, "addr", cfg.Server.Addr, "HTTP адрес (websocket на /ws)")
	fs.StringVar(&cfg.Server.GRPCAddr, "grpc-addr", cfg.Server.GRPCAddr, "адрес gRPC health сервиса, пустой - выключен")

	fs.IntVar(&cfg.Game.TPS, "tps", cfg.Game.TPS, "частота игрового цикла")
	fs.DurationVar(&cfg.Game.SnapshotInterval, "snapshot-interval", cfg.Game.SnapshotInterval, "период рассылки снимков")
	fs.BoolVar(&cfg.Game.AutoHarvest, "auto-harvest", cfg.Game.AutoHarvest, "рубить автоматически рядом с деревом")
	fs.IntVar(&cfg.Game.CommandBuffer, "command-buffer", cfg.Game.CommandBuffer, "размер очереди команд")

	fs.DurationVar(&cfg.Resource.HarvestCooldown, "harvest-cooldown", cfg.Resource.HarvestCooldown, "откат рубки, от 600ms до 1s")
	fs.DurationVar(&cfg.Resource.RespawnDuration, "respawn", cfg.Resource.RespawnDuration, "время до респавна дерева")
	fs.IntVar(&cfg.Resource.MaxHealth, "max-health", cfg.Resource.MaxHealth, "здоровье дерева")
	fs.Float64Var(&cfg.Resource.InteractionRange, "range", cfg.Resource.InteractionRange, "радиус рубки")

	fs.Int64Var(&cfg.World.ForestSeed, "forest-seed", cfg.World.ForestSeed, "seed процедурного леса")
	fs.IntVar(&cfg.World.ForestCount, "forest-count", cfg.World.ForestCount, "количество деревьев процедурного леса")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate проверяет значения конфигурации
func (c Config) Validate() error {
	if c.Game.TPS <= 0 || c.Game.TPS > 1000 {
		return fmt.Errorf("tps %d вне диапазона (0, 1000]: %w", c.Game.TPS, ErrInvalid)
	}
	if c.Game.SnapshotInterval <= 0 {
		return fmt.Errorf("snapshot-interval %v: %w", c.Game.SnapshotInterval, ErrInvalid)
	}
	if c.Game.CommandBuffer <= 0 {
		return fmt.Errorf("command-buffer %d: %w", c.Game.CommandBuffer, ErrInvalid)
	}
	if c.Resource.HarvestCooldown < MinHarvestCooldown || c.Resource.HarvestCooldown > MaxHarvestCooldown {
		return fmt.Errorf("harvest-cooldown %v вне диапазона [%v, %v]: %w",
			c.Resource.HarvestCooldown, MinHarvestCooldown, MaxHarvestCooldown, ErrInvalid)
	}
	if c.Resource.RespawnDuration < 0 {
		return fmt.Errorf("respawn %v: %w", c.Resource.RespawnDuration, ErrInvalid)
	}
	if c.Resource.MaxHealth <= 0 {
		return fmt.Errorf("max-health %d: %w", c.Resource.MaxHealth, ErrInvalid)
	}
	if r := c.Resource.InteractionRange; r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return fmt.Errorf("range %.2f: %w", c.Resource.InteractionRange, ErrInvalid)
	}
	if c.World.ForestCount < 0 {
		return fmt.Errorf("forest-count %d: %w", c.World.ForestCount, ErrInvalid)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("пустой addr: %w", ErrInvalid)
	}

	return nil
}
