// Package health публикует состояние игрового цикла через стандартный gRPC health-сервис.
package health

import (
	"context"
	"log"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName имя сервиса сессии в health-проверках
const ServiceName = "timberland.Session"

// Checker источник состояния. Реализуется game.GameTicker.
type Checker interface {
	Running() bool
}

// Service синхронизирует статус health-сервера с игровым циклом
type Service struct {
	server   *grpchealth.Server
	checker  Checker
	interval time.Duration
	logger   *log.Logger
	serving  bool
}

// NewService создает health-сервис
func NewService(checker Checker, interval time.Duration, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}

	s := &Service{
		server:   grpchealth.NewServer(),
		checker:  checker,
		interval: interval,
		logger:   logger,
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Register регистрирует сервис на gRPC сервере
func (s *Service) Register(gs *grpc.Server) {
	healthpb.RegisterHealthServer(gs, s.server)
}

// Sync однократно переносит состояние цикла в статус
func (s *Service) Sync() {
	running := s.checker.Running()
	if running == s.serving {
		return
	}

	if running {
		s.setStatus(healthpb.HealthCheckResponse_SERVING)
		s.logger.Printf("[Health] Игровой цикл запущен: SERVING")
	} else {
		s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		s.logger.Printf("[Health] Игровой цикл остановлен: NOT_SERVING")
	}
	s.serving = running
}

// Run опрашивает цикл до отмены контекста, затем переводит все сервисы в NOT_SERVING
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sync()
	for {
		select {
		case <-ctx.Done():
			s.server.Shutdown()
			return
		case <-ticker.C:
			s.Sync()
		}
	}
}

// Check возвращает текущий статус без сетевого вызова
func (s *Service) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := s.server.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

func (s *Service) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.server.SetServingStatus("", status)
	s.server.SetServingStatus(ServiceName, status)
}
