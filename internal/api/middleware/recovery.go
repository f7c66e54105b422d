package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// Recover перехватывает панику обработчика и отвечает 500.
func Recover() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"component": "panic_recovery",
						"panic":     fmt.Sprintf("%v", r),
						"path":      c.Path(),
						"stack":     string(debug.Stack()),
					}).Error("ПАНИКА в обработчике — восстановлено")
					err = c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "внутренняя ошибка"})
				}
			}()
			return next(c)
		}
	}
}
