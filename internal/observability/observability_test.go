package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"messenger-service/internal/mocks"
)

func TestNewLoggerLevels(t *testing.T) {
	logger, err := NewLogger("debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger("")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = NewLogger("loud")
	require.Error(t, err)
}

func TestRequestMetaFrom(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws/notifications", nil)
	req.RemoteAddr = "10.0.0.9:5123"
	req.Header.Set("X-Request-Id", "req-1")
	req.Header.Set("X-Device-Id", "phone")

	meta := RequestMetaFrom(req)
	assert.Equal(t, RequestMeta{RequestID: "req-1", DeviceID: "phone", IP: "10.0.0.9"}, meta)

	req.Header.Set("X-Real-Ip", "192.0.2.7")
	assert.Equal(t, "192.0.2.7", RequestMetaFrom(req).IP)

	req.Header.Set("X-Forwarded-For", " 203.0.113.5 , 10.0.0.1")
	assert.Equal(t, "203.0.113.5", RequestMetaFrom(req).IP)
}

func TestEventBusSwallowsPublishErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pub := new(mocks.PublisherMock)
	bus := NewEventBus(pub, zap.New(core))
	event := EventEnvelope{EventType: "message_events", EventName: "message_created"}
	headers := BuildHeaders("req-1", "")

	pub.On("PublishJSON", mock.Anything, RoutingMessages, event, map[string]string{"x-request-id": "req-1"}).
		Return(errors.New("channel closed")).Once()

	before := testutil.ToFloat64(amqpPublishErrorsTotal)
	bus.Publish(context.Background(), RoutingMessages, event, headers)

	assert.Equal(t, before+1, testutil.ToFloat64(amqpPublishErrorsTotal))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "message_created", logs.All()[0].ContextMap()["event_name"])
	pub.AssertExpectations(t)
}

func TestEventBusNilSafe(t *testing.T) {
	var bus *EventBus
	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), RoutingAudit, EventEnvelope{}, nil)
	})
	assert.NotPanics(t, func() {
		NewEventBus(nil, nil).Publish(context.Background(), RoutingAudit, EventEnvelope{}, nil)
	})
}

func TestHTTPMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(HTTPMetricsMiddleware())
	r.GET("/messages/by-chat/:chat_id", func(c *gin.Context) { c.Status(http.StatusOK) })

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/messages/by-chat/:chat_id", "200")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/messages/by-chat/abc", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestSplitFullMethod(t *testing.T) {
	service, method := splitFullMethod("/grpc.health.v1.Health/Check")
	assert.Equal(t, "grpc.health.v1.Health", service)
	assert.Equal(t, "Check", method)

	service, method = splitFullMethod("bogus")
	assert.Equal(t, "unknown", service)
	assert.Equal(t, "unknown", method)
}

func TestSetupTracingWithoutEndpoint(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), "messenger-service", "test", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
