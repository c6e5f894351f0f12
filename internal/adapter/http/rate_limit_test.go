package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fixora/spaceships/internal/infra/ratelimit"
)

// MockRateLimitService is a mock implementation of ratelimit.RateLimitService
type MockRateLimitService struct {
	mock.Mock
}

func (m *MockRateLimitService) CheckLimit(ctx context.Context, key string, limit int) (bool, error) {
	args := m.Called(ctx, key, limit)
	return args.Bool(0), args.Error(1)
}

func (m *MockRateLimitService) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	args := m.Called(ctx, key, window)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRateLimitService) Block(ctx context.Context, key string, duration time.Duration, reason string) error {
	args := m.Called(ctx, key, duration, reason)
	return args.Error(0)
}

func (m *MockRateLimitService) IsBlocked(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockRateLimitService) GetAttempts(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

var testRateLimit = RateLimitConfig{Requests: 2, Window: time.Minute, BlockDuration: 15 * time.Minute}

func TestRateLimitMiddleware_BlocksAfterBudget(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := NewRateLimitMiddleware(ratelimit.NewRateLimitService(client, "test", testLogger()), testRateLimit, testLogger())

	mockService := &MockSpaceshipService{}
	mockService.On("FindByID", mock.Anything, int64(1)).Return(enterprise(), nil)
	server := NewServer(ServerConfig{Addr: ":0"}, mockService, nil, nil, testLogger(), WithRateLimit(limiter))

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest("GET", "/api/spaceships/1", nil)
		req.RemoteAddr = "10.0.0.7:5123"
		w := httptest.NewRecorder()
		server.Handler().ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "900", w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{200, 200, 429, 429}, statuses)
	mockService.AssertNumberOfCalls(t, "FindByID", 2)

	// other clients keep their own budget
	req := httptest.NewRequest("GET", "/api/spaceships/1", nil)
	req.RemoteAddr = "10.0.0.8:5123"
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// health is never limited
	req = httptest.NewRequest("GET", "/health", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	limiterService := &MockRateLimitService{}
	limiterService.On("IsBlocked", mock.Anything, "api:ip:10.0.0.7").Return(false, assert.AnError)
	limiterService.On("Increment", mock.Anything, "api:ip:10.0.0.7", time.Minute).Return(int64(0), assert.AnError)

	limiter := NewRateLimitMiddleware(limiterService, testRateLimit, testLogger())
	handler := limiter.RateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/spaceships", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	limiterService.AssertExpectations(t)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		remote   string
		expected string
	}{
		{name: "forwarded for", headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, remote: "10.0.0.1:80", expected: "1.2.3.4"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "5.6.7.8"}, remote: "10.0.0.1:80", expected: "5.6.7.8"},
		{name: "remote addr", remote: "9.9.9.9:1234", expected: "9.9.9.9"},
		{name: "ipv6 remote addr", remote: "[::1]:1234", expected: "::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}
			assert.Equal(t, tt.expected, getClientIP(req))
		})
	}
}
