package health

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Client клиент health-сервиса игрового сервера
type Client struct {
	connection *grpc.ClientConn
	client     healthpb.HealthClient
}

// NewClient создает клиент. Соединение устанавливается лениво при первом вызове.
func NewClient(serverAddr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)

	conn, err := grpc.NewClient(serverAddr, opts...)
	if err != nil {
		return nil, fmt.Errorf("health client %s: %w", serverAddr, err)
	}

	return &Client{
		connection: conn,
		client:     healthpb.NewHealthClient(conn),
	}, nil
}

// Status запрашивает статус сервиса сессии
func (c *Client) Status(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := c.client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Close закрывает соединение с сервером
func (c *Client) Close() {
	if c.connection != nil {
		if err := c.connection.Close(); err != nil {
			log.Printf("Ошибка при закрытии соединения с health-сервисом: %v", err)
		}
	}
}
