package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rahulp1273/recipe-hub/internal/repository"
	"github.com/rahulp1273/recipe-hub/pkg/auth"
	"github.com/rahulp1273/recipe-hub/pkg/clock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProtectedRouter(t *testing.T) (*gin.Engine, *auth.JWTManager, *repository.TokenBlacklist, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	jwtManager := auth.NewJWTManager("secret", time.Hour, clock.New())
	blacklist := repository.NewTokenBlacklist(rdb)

	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	r.GET("/me", AuthMiddleware(jwtManager, blacklist), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.MustGet(ContextUserID).(uuid.UUID).String()})
	})
	return r, jwtManager, blacklist, mr
}

func get(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r, jwtManager, blacklist, _ := newProtectedRouter(t)
	id := uuid.New()
	token, err := jwtManager.GenerateToken(id, "alice@example.com", "Alice")
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Token "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer not-a-jwt").Code)

	w := get(r, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	require.NoError(t, blacklist.Revoke(context.Background(), token, time.Hour))
	w = get(r, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "revoked")
}

func TestAuthMiddleware_FailsClosedWithoutRedis(t *testing.T) {
	r, jwtManager, _, mr := newProtectedRouter(t)
	token, err := jwtManager.GenerateToken(uuid.New(), "alice@example.com", "Alice")
	require.NoError(t, err)

	mr.Close()

	assert.Equal(t, http.StatusInternalServerError, get(r, "Bearer "+token).Code)
}
