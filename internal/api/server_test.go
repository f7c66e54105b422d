package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/koeurnDev/EZA-POST-sub000/internal/api/respond"
	"github.com/koeurnDev/EZA-POST-sub000/internal/common"
	"github.com/koeurnDev/EZA-POST-sub000/internal/config"
)

// whoami отдаёт ID пользователя и умеет падать.
type whoami struct{}

func (whoami) Register(g *echo.Group) {
	g.GET("/whoami", func(c echo.Context) error {
		return respond.OK(c, echo.Map{"userId": respond.UserID(c)})
	})
	g.GET("/panic", func(echo.Context) error {
		panic("boom")
	})
	g.GET("/missing", func(c echo.Context) error {
		return respond.Fail(c, common.ErrBoostNotFound)
	})
}

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:          ":0",
		HTTPUserHeader:    "X-User-ID",
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
	}
}

func get(t *testing.T, s *Server, path, user string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerRoutes(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewServer(testConfig(), whoami{})
	defer s.Shutdown(time.Second)

	rec := get(t, s, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, s, "/api/whoami", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(t, s, "/api/whoami", "abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(t, s, "/api/whoami", "42")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"userId":42}`, rec.Body.String())

	rec = get(t, s, "/api/missing", "43")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, s, "/api/panic", "44")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServerRateLimitPerUser(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewServer(testConfig(), whoami{})
	defer s.Shutdown(time.Second)

	assert.Equal(t, http.StatusOK, get(t, s, "/api/whoami", "1").Code)
	assert.Equal(t, http.StatusOK, get(t, s, "/api/whoami", "1").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, s, "/api/whoami", "1").Code)

	// Лимит у каждого пользователя свой
	assert.Equal(t, http.StatusOK, get(t, s, "/api/whoami", "2").Code)
}
