package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fixora/spaceships/internal/infra/password"
)

func newTestAuth(t *testing.T) *BasicAuth {
	t.Helper()
	auth, err := NewBasicAuth(password.NewBcryptPasswordService(bcrypt.MinCost),
		Credential{Username: "user", Password: "password", Role: RoleUser},
		Credential{Username: "admin", Password: "admin-password", Role: RoleAdmin},
	)
	require.NoError(t, err)
	return auth
}

func newTestServer(t *testing.T, service *MockSpaceshipService, health HealthCheck) http.Handler {
	t.Helper()
	server := NewServer(ServerConfig{Addr: ":0"}, service, newTestAuth(t), health, testLogger())
	return server.Handler()
}

func TestServer_HealthIsPublic(t *testing.T) {
	handler := newTestServer(t, &MockSpaceshipService{}, nil)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestServer_HealthReportsFailingDependency(t *testing.T) {
	handler := newTestServer(t, &MockSpaceshipService{}, func(ctx context.Context) error {
		return errors.New("connection refused")
	})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_BasicAuth(t *testing.T) {
	tests := []struct {
		name           string
		username       string
		password       string
		withAuth       bool
		expectedStatus int
	}{
		{name: "no credentials", expectedStatus: http.StatusUnauthorized},
		{name: "wrong password", username: "user", password: "nope", withAuth: true, expectedStatus: http.StatusUnauthorized},
		{name: "unknown user", username: "ghost", password: "password", withAuth: true, expectedStatus: http.StatusUnauthorized},
		{name: "user principal", username: "user", password: "password", withAuth: true, expectedStatus: http.StatusOK},
		{name: "admin principal", username: "admin", password: "admin-password", withAuth: true, expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockSpaceshipService{}
			mockService.On("FindByID", mock.Anything, int64(1)).Return(enterprise(), nil).Maybe()
			handler := newTestServer(t, mockService, nil)

			req := httptest.NewRequest("GET", "/api/spaceships/1", nil)
			if tt.withAuth {
				req.SetBasicAuth(tt.username, tt.password)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="spaceships"`, w.Header().Get("WWW-Authenticate"))
				mockService.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestServer_CorrelationID(t *testing.T) {
	handler := newTestServer(t, &MockSpaceshipService{}, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(CorrelationIDHeader, "req-42")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(CorrelationIDHeader))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Len(t, w.Header().Get(CorrelationIDHeader), 36)
}

func TestServer_UnknownRoute(t *testing.T) {
	handler := newTestServer(t, &MockSpaceshipService{}, nil)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"status":false,"message":"The requested URL was not found on this server.","data":null,"code":"NOT_FOUND"}`, w.Body.String())
}

func TestServer_RecoversFromPanic(t *testing.T) {
	mockService := &MockSpaceshipService{}
	mockService.On("FindByID", mock.Anything, int64(1)).Run(func(mock.Arguments) {
		panic("boom")
	})
	handler := newTestServer(t, mockService, nil)

	req := httptest.NewRequest("GET", "/api/spaceships/1", nil)
	req.SetBasicAuth("user", "password")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "An unexpected error occurred.")
}

func TestNewBasicAuth_RejectsDuplicatePrincipal(t *testing.T) {
	_, err := NewBasicAuth(password.NewBcryptPasswordService(bcrypt.MinCost),
		Credential{Username: "user", Password: "a", Role: RoleUser},
		Credential{Username: "user", Password: "b", Role: RoleAdmin},
	)
	assert.Error(t, err)
}

func TestServer_RequestLogCarriesPrincipal(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	mockService := &MockSpaceshipService{}
	mockService.On("FindByID", mock.Anything, int64(1)).Return(enterprise(), nil)
	handler := NewServer(ServerConfig{Addr: ":0"}, mockService, newTestAuth(t), nil, log).Handler()

	req := httptest.NewRequest("GET", "/api/spaceships/1", nil)
	req.SetBasicAuth("admin", "admin-password")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "performance", entry.Data["event_type"])
	assert.Equal(t, "GET /api/spaceships/1", entry.Data["operation"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
	assert.Equal(t, "admin", entry.Data["user"])
	assert.Equal(t, RoleAdmin, entry.Data["role"])
}

func TestServer_RequestLogWithoutPrincipal(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	handler := NewServer(ServerConfig{Addr: ":0"}, &MockSpaceshipService{}, newTestAuth(t), nil, log).Handler()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/spaceships/1", nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, http.StatusUnauthorized, entry.Data["status"])
	assert.NotContains(t, entry.Data, "user")
}

// recordingPasswords hashes by prefixing and records every verified hash
type recordingPasswords struct {
	verified []string
}

func (p *recordingPasswords) HashPassword(password string) (string, error) {
	return "hash:" + password, nil
}

func (p *recordingPasswords) VerifyPassword(password, hash string) (bool, error) {
	p.verified = append(p.verified, hash)
	return hash == "hash:"+password, nil
}

func TestBasicAuth_UnknownUserStillVerifiesPassword(t *testing.T) {
	passwords := &recordingPasswords{}
	auth, err := NewBasicAuth(passwords, Credential{Username: "user", Password: "password", Role: RoleUser})
	require.NoError(t, err)

	_, ok := auth.Authenticate("ghost", "password")
	assert.False(t, ok)
	_, ok = auth.Authenticate("ghost", dummyPassword)
	assert.False(t, ok)

	principal, ok := auth.Authenticate("user", "password")
	require.True(t, ok)
	assert.Equal(t, RoleUser, principal.Role)

	assert.Equal(t, []string{"hash:" + dummyPassword, "hash:" + dummyPassword, "hash:password"}, passwords.verified)
}
