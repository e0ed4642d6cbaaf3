package ws

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/auth"
	"messaging-service/internal/mocks"
)

func TestHandshakeRefusedWithoutValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	directory := new(mocks.DirectoryMock)
	hub := NewHub(directory)
	handler := NewHandler(hub, nil, auth.NewAuthenticator("handshake-secret", directory))

	router := gin.New()
	router.GET("/ws", handler.Handle)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  7,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	for _, target := range []string{
		"/ws",
		"/ws?token=not-a-jwt",
		"/ws?token=" + forged,
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}

	// A refused credential must leave no trace in the registry.
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	assert.Empty(t, hub.users)
	assert.Empty(t, hub.rooms)
	directory.AssertNotCalled(t, "RecordLastSeen", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandshakeRefusedForMalformedAuthorizationHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	directory := new(mocks.DirectoryMock)
	hub := NewHub(directory)
	handler := NewHandler(hub, nil, auth.NewAuthenticator("handshake-secret", directory))

	router := gin.New()
	router.GET("/ws", handler.Handle)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, hub.IsOnline(7))
}
