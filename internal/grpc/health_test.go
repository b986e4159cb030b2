package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestRefreshFollowsDatabase(t *testing.T) {
	var failing bool
	db := pingerFunc(func(ctx context.Context) error {
		if failing {
			return errors.New("connection refused")
		}
		return nil
	})
	srv := NewHealthServer(db, zap.NewNop())

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, srv.Refresh(context.Background()))

	failing = true
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, srv.Refresh(context.Background()))

	resp, err := srv.health.Check(context.Background(), &healthpb.HealthCheckRequest{})
	assert.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}
