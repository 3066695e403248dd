package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"timberland/backend/internal/config"
	"timberland/backend/internal/game"
	"timberland/backend/internal/telemetry"
	"timberland/backend/internal/transport/health"
	"timberland/backend/internal/transport/ws"
)

// statsResponse ответ /stats
type statsResponse struct {
	Ticker          game.TickStats         `json:"ticker"`
	Telemetry       map[telemetry.Kind]int `json:"telemetry"`
	CollisionSolids int                    `json:"collision_solids"`
	Clients         int                    `json:"clients"`
	Trees           int                    `json:"trees"`
	VisibleTrees    int                    `json:"visible_trees"`
	Wood            int                    `json:"wood"`
	Structures      int                    `json:"structures"`
}

func main() {
	cfg, err := config.Load(os.Args[0], os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("[Go] Ошибка конфигурации: %v", err)
	}

	logger := log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := game.NewSession(cfg, logger)
	ticker := game.NewGameTicker(cfg.Game.TPS, logger)
	session.RegisterSystems(ticker)

	wsServer := ws.NewServer(session, logger)
	session.SetBroadcaster(wsServer)

	if err := ticker.Start(ctx); err != nil {
		log.Fatalf("[Go] Не удалось запустить игровой цикл: %v", err)
	}

	var grpcServer *grpc.Server
	if cfg.Server.GRPCAddr != "" {
		grpcServer = startHealth(ctx, cfg.Server.GRPCAddr, ticker, logger)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsServer.HandleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !ticker.Running() {
			http.Error(w, "game loop stopped", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		snapshot := session.Latest()
		resp := statsResponse{
			Ticker:          ticker.Stats(),
			Telemetry:       session.Telemetry().Totals(),
			CollisionSolids: session.CollisionEntries(),
			Clients:         wsServer.ClientCount(),
			Trees:           len(snapshot.Nodes),
			Wood:            snapshot.Wood,
			Structures:      len(snapshot.Structures),
		}
		for _, node := range snapshot.Nodes {
			if node.Visible {
				resp.VisibleTrees++
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Printf("[Go] Ошибка записи /stats: %v", err)
		}
	})
	mux.HandleFunc("/telemetry", func(w http.ResponseWriter, r *http.Request) {
		data, err := session.Telemetry().JSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Printf("[Go] Listening on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("[Go] Ошибка HTTP сервера: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Printf("[Go] Завершение работы...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsServer.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("[Go] Ошибка остановки HTTP сервера: %v", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	ticker.Stop()

	stats := ticker.Stats()
	logger.Printf("[Go] Выполнено тиков: %d, средний тик %v, пропущено %d",
		stats.TickCount, stats.AverageTickTime, stats.SkippedTicks)
}

// startHealth поднимает gRPC сервер со стандартным health-сервисом
func startHealth(ctx context.Context, addr string, ticker *game.GameTicker, logger *log.Logger) *grpc.Server {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("[Go] gRPC listen error: %v", err)
	}

	grpcServer := grpc.NewServer()
	service := health.NewService(ticker, time.Second, logger)
	service.Register(grpcServer)
	go service.Run(ctx)

	go func() {
		logger.Printf("[Go] gRPC health на %s", addr)
		if err := grpcServer.Serve(listener); err != nil {
			logger.Printf("[Go] Ошибка gRPC сервера: %v", err)
		}
	}()

	return grpcServer
}
