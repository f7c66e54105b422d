// Package accounts — handlers.go обрабатывает /api/boost-accounts:
// список, добавление, изменение, удаление, тест логина, импорт cookies.
package accounts

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/koeurnDev/EZA-POST-sub000/internal/api/respond"
)

// Handler обрабатывает запросы по аккаунтам.
type Handler struct {
	manager *Manager
}

// NewHandler создаёт обработчик.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// Register подключает маршруты к группе /api.
func (h *Handler) Register(g *echo.Group) {
	r := g.Group("/boost-accounts")
	r.GET("", h.HandleList)
	r.POST("", h.HandleCreate)
	r.POST("/import-cookies", h.HandleImportCookies)
	r.PUT("/:id", h.HandleUpdate)
	r.DELETE("/:id", h.HandleDelete)
	r.POST("/:id/test", h.HandleTest)
}

// HandleList — GET /boost-accounts. Пароль не отдаётся (json:"-").
func (h *Handler) HandleList(c echo.Context) error {
	list, err := h.manager.List(c.Request().Context(), respond.UserID(c))
	if err != nil {
		return respond.Fail(c, err)
	}
	if list == nil {
		list = []*Account{}
	}
	return respond.OK(c, echo.Map{"accounts": list})
}

// HandleCreate — POST /boost-accounts
func (h *Handler) HandleCreate(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return respond.BadRequest(c, "некорректное тело запроса")
	}
	a, err := h.manager.Create(c.Request().Context(), respond.UserID(c), in)
	if err != nil {
		return respond.Fail(c, err)
	}
	return respond.OK(c, echo.Map{"account": a})
}

// HandleUpdate — PUT /boost-accounts/:id
func (h *Handler) HandleUpdate(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return respond.BadRequest(c, "некорректный id")
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return respond.BadRequest(c, "некорректное тело запроса")
	}
	a, err := h.manager.Update(c.Request().Context(), respond.UserID(c), id, in)
	if err != nil {
		return respond.Fail(c, err)
	}
	return respond.OK(c, echo.Map{"account": a})
}

// HandleDelete — DELETE /boost-accounts/:id
func (h *Handler) HandleDelete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return respond.BadRequest(c, "некорректный id")
	}
	if err := h.manager.Delete(c.Request().Context(), respond.UserID(c), id); err != nil {
		return respond.Fail(c, err)
	}
	return respond.OK(c, echo.Map{"message": "Account deleted"})
}

// HandleTest — POST /boost-accounts/:id/test
func (h *Handler) HandleTest(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return respond.BadRequest(c, "некорректный id")
	}
	ok, err := h.manager.Test(c.Request().Context(), respond.UserID(c), id)
	if err != nil {
		return respond.Fail(c, err)
	}
	msg := "Login failed. Check credentials."
	if ok {
		msg = "Login successful!"
	}
	return respond.OK(c, echo.Map{"success": ok, "message": msg})
}

// HandleImportCookies — POST /boost-accounts/import-cookies
func (h *Handler) HandleImportCookies(c echo.Context) error {
	var in ImportInput
	if err := c.Bind(&in); err != nil {
		return respond.BadRequest(c, "некорректное тело запроса")
	}
	a, created, err := h.manager.ImportCookies(c.Request().Context(), respond.UserID(c), in)
	if err != nil {
		return respond.Fail(c, err)
	}
	return respond.OK(c, echo.Map{
		"message": fmt.Sprintf("Cookies imported for %s!", a.Username),
		"created": created,
		"account": a,
	})
}
