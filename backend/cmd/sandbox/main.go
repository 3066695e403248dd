// Sandbox - терминальная песочница: одна сессия в процессе, вид сверху.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"timberland/backend/internal/config"
	"timberland/backend/internal/crafting"
	"timberland/backend/internal/game"
)

// Нажатие держит движение столько, сколько терминал повторяет клавишу
const moveHold = 180 * time.Millisecond

// keyDirections задает поворот по клавише: игрок смотрит туда, куда идет
var keyDirections = map[rune]float64{
	'w': 0,
	'a': math.Pi / 2,
	's': math.Pi,
	'd': -math.Pi / 2,
}

type sandbox struct {
	screen  tcell.Screen
	session *game.Session
	feed    *feed
	bench   crafting.Workbench
	item    string

	yaw      float64
	moving   bool
	lastMove time.Time
}

// handleKey переводит клавиши в команды сессии. false - выход.
func (sb *sandbox) handleKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
		return false
	}
	if ev.Key() != tcell.KeyRune {
		return true
	}

	r := ev.Rune()
	if yaw, ok := keyDirections[r]; ok {
		sb.yaw = yaw
		sb.moving = true
		sb.lastMove = time.Now()
		sb.submit(game.MoveCommand{Forward: 1, Yaw: yaw})
		return true
	}

	switch r {
	case 'q':
		return false
	case ' ':
		sb.submit(game.HarvestCommand{})
	case 'c':
		sb.submit(game.CraftCommand{Item: sb.item})
	case 'b':
		sb.submit(game.BuildCommand{Item: sb.item})
	case '1', '2', '3':
		recipes := sb.session.Recipes()
		if idx := int(r - '1'); idx < len(recipes) {
			sb.item = recipes[idx].Name
			sb.feed.setStatus("Выбран предмет: %s (%d дерева)", sb.item, recipes[idx].WoodCost)
		}
	}
	return true
}

func (sb *sandbox) submit(cmd game.Command) {
	if err := sb.session.Submit(cmd); err != nil {
		sb.feed.setStatus("%v", err)
	}
}

// releaseMovement останавливает игрока, если клавиша больше не повторяется
func (sb *sandbox) releaseMovement(now time.Time) {
	if sb.moving && now.Sub(sb.lastMove) > moveHold {
		sb.moving = false
		sb.submit(game.MoveCommand{Yaw: sb.yaw})
	}
}

func (sb *sandbox) run(ctx context.Context) {
	frame := time.NewTicker(33 * time.Millisecond)
	defer frame.Stop()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := sb.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !sb.handleKey(ev) {
					return
				}
			case *tcell.EventResize:
				sb.screen.Sync()
			}
		case now := <-frame.C:
			sb.releaseMovement(now)
			status := sb.feed.Status()
			if status == "" {
				status = fmt.Sprintf("WASD - ходьба, пробел - рубка, c - крафт %s, b - постройка, 1-3 - предмет, q - выход", sb.item)
			}
			draw(sb.screen, sb.session.Latest(), sb.bench, status)
		}
	}
}

func main() {
	cfg, err := config.Load(os.Args[0], os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("Ошибка конфигурации: %v", err)
	}
	cfg.Game.AutoHarvest = false
	cfg.Game.SnapshotInterval = 33 * time.Millisecond

	// Лог в терминал сломал бы отрисовку
	logger := log.New(io.Discard, "", 0)
	if path := os.Getenv("TIMBERLAND_SANDBOX_LOG"); path != "" {
		if file, err := os.Create(path); err == nil {
			defer file.Close()
			logger = log.New(file, "", log.LstdFlags|log.Lmicroseconds)
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("Ошибка создания экрана: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("Ошибка инициализации экрана: %v", err)
	}

	feed := newFeed()
	if err := feed.initAudio(); err != nil {
		logger.Printf("[Sandbox] Звук недоступен: %v", err)
	}

	session := game.NewSession(cfg, logger)
	session.SetBroadcaster(feed)
	ticker := game.NewGameTicker(cfg.Game.TPS, logger)
	session.RegisterSystems(ticker)

	ctx, cancel := context.WithCancel(context.Background())
	if err := ticker.Start(ctx); err != nil {
		screen.Fini()
		log.Fatalf("Не удалось запустить игровой цикл: %v", err)
	}

	sb := &sandbox{
		screen:  screen,
		session: session,
		feed:    feed,
		bench:   crafting.DefaultWorkbench(),
		item:    "wall",
	}
	sb.run(ctx)

	cancel()
	ticker.Stop()
	feed.close()
	screen.Fini()

	totals := session.Telemetry().Totals()
	fmt.Printf("Срублено деревьев: %d, построено: %d\n", totals["fell"], totals["build"])
}
