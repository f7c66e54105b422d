// Package respond — общие хелперы HTTP-ответов для обработчиков фич.
// Формат ответа: {"success": true, ...} или {"success": false, "error": "..."}.
package respond

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/koeurnDev/EZA-POST-sub000/internal/common"
)

// UserKey — ключ echo.Context, под которым middleware кладёт ID пользователя.
const UserKey = "user_id"

// UserID возвращает ID аутентифицированного пользователя.
func UserID(c echo.Context) int64 {
	id, _ := c.Get(UserKey).(int64)
	return id
}

// OK отдаёт успешный ответ с дополнительными полями.
func OK(c echo.Context, fields echo.Map) error {
	body := echo.Map{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	return c.JSON(http.StatusOK, body)
}

// Fail отдаёт ошибку. Статус подбирается по типу ошибки.
func Fail(c echo.Context, err error) error {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Path()).Error("Ошибка обработки запроса")
	}
	return c.JSON(status, echo.Map{"success": false, "error": err.Error()})
}

// BadRequest отдаёт 400 с текстом.
func BadRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": msg})
}

// StatusFor сопоставляет доменные ошибки HTTP-статусам.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrAccountNotFound), errors.Is(err, common.ErrBoostNotFound),
		errors.Is(err, common.ErrPostNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, common.ErrInvalidRule),
		errors.Is(err, common.ErrInvalidAmount),
		errors.Is(err, common.ErrInvalidTxType),
		errors.Is(err, common.ErrCredentialsRequired),
		errors.Is(err, common.ErrCookiesRequired):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
