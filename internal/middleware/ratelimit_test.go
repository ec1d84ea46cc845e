package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/showtime-allocator/internal/config"
)

func testRateConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       60,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "test:rl",
	}
}

const roomsKey = "test:rl:ip:192.0.2.1:route:GET /v1/rooms"

func serveRooms(t *testing.T, mw echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/v1/rooms", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/rooms", nil))
	return rec
}

func TestTokenBucket_Allows(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.CustomMatch(anyArgs).ExpectEvalSha(limiterScript.Hash(), []string{roomsKey}, 0, 0, 0, 0, 0).
		SetVal([]interface{}{int64(1), int64(59), int64(0)})

	rec := serveRooms(t, NewTokenBucket(testRateConfig(), db))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "59", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenBucket_Blocks(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.CustomMatch(anyArgs).ExpectEvalSha(limiterScript.Hash(), []string{roomsKey}, 0, 0, 0, 0, 0).
		SetVal([]interface{}{int64(0), int64(0), int64(1500)})

	rec := serveRooms(t, NewTokenBucket(testRateConfig(), db))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"code":"too_many_requests"`)
}

func TestTokenBucket_FailsOpen(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.CustomMatch(anyArgs).ExpectEvalSha(limiterScript.Hash(), []string{roomsKey}, 0, 0, 0, 0, 0).
		SetErr(errors.New("connection refused"))

	rec := serveRooms(t, NewTokenBucket(testRateConfig(), db))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenBucket_DisabledWithoutRedis(t *testing.T) {
	rec := serveRooms(t, NewTokenBucket(testRateConfig(), nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/showings/3/reservations", nil), httptest.NewRecorder())
	c.SetPath("/v1/showings/:id/reservations")

	tests := []struct {
		strategy string
		want     string
	}{
		{"ip", "rl:ip:192.0.2.1"},
		{"route", "rl:route:POST /v1/showings/:id/reservations"},
		{"ip_route", "rl:ip:192.0.2.1:route:POST /v1/showings/:id/reservations"},
		{"", "rl:ip:192.0.2.1:route:POST /v1/showings/:id/reservations"},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: tt.strategy}
			assert.Equal(t, tt.want, buildRateKey(cfg, c))
		})
	}
}
