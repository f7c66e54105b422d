package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/koeurnDev/EZA-POST-sub000/internal/api/respond"
)

// RequireUser достаёт ID пользователя из заголовка, который ставит gateway
// после аутентификации. Без заголовка запрос отклоняется.
func RequireUser(header string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(header)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "нет пользователя"})
			}

			userID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || userID <= 0 {
				log.WithFields(log.Fields{
					"component": "RequireUser",
					"header":    header,
					"value":     raw,
				}).Warn("deny: некорректный ID пользователя")
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "некорректный пользователь"})
			}

			c.Set(respond.UserKey, userID)
			return next(c)
		}
	}
}
