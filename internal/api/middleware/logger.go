// Package middleware содержит промежуточные обработчики HTTP API:
// логирование, восстановление после паники, пользователь и rate-limiting.
package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/koeurnDev/EZA-POST-sub000/internal/api/respond"
)

// LogRequest логирует каждый запрос.
// Записывает: метод, путь, статус, user_id, длительность.
func LogRequest() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			entry := log.WithFields(log.Fields{
				"method":   c.Request().Method,
				"path":     c.Path(),
				"status":   status,
				"user_id":  respond.UserID(c),
				"duration": time.Since(start).Round(time.Millisecond),
			})
			if status >= 500 {
				entry.Warn("Запрос завершился ошибкой")
			} else {
				entry.Debug("Входящий запрос")
			}
			return nil
		}
	}
}
