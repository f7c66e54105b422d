// Package api собирает HTTP-сервер: middleware и маршруты фич под /api.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/koeurnDev/EZA-POST-sub000/internal/api/middleware"
	"github.com/koeurnDev/EZA-POST-sub000/internal/config"
)

// Registrar — обработчик фичи, который умеет подключить свои маршруты.
type Registrar interface {
	Register(g *echo.Group)
}

// Server — HTTP API сервиса.
type Server struct {
	echo    *echo.Echo
	addr    string
	limiter *middleware.RateLimiter
}

// NewServer создаёт сервер и подключает маршруты обработчиков под /api.
func NewServer(cfg *config.Config, handlers ...Registrar) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover(), middleware.LogRequest())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "status": "ok"})
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	g := e.Group("/api", middleware.RequireUser(cfg.HTTPUserHeader), limiter.Middleware())
	for _, h := range handlers {
		h.Register(g)
	}

	return &Server{echo: e, addr: cfg.HTTPAddr, limiter: limiter}
}

// Handler отдаёт http.Handler (для тестов).
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start слушает адрес до остановки. Нормальная остановка не считается ошибкой.
func (s *Server) Start() error {
	log.WithField("addr", s.addr).Info("HTTP API запущен")
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown дожидается текущих запросов, но не дольше timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	defer s.limiter.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.echo.Shutdown(ctx); err != nil {
		return err
	}
	log.Info("HTTP API остановлен")
	return nil
}
