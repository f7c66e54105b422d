// Package credits — handlers.go обрабатывает GET /api/credits:
// баланс и последние транзакции.
package credits

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/koeurnDev/EZA-POST-sub000/internal/api/respond"
)

// Handler обрабатывает запросы по кредитам.
type Handler struct {
	ledger *Ledger
}

// NewHandler создаёт обработчик.
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// Register подключает маршруты к группе /api.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/credits", h.HandleBalance)
}

// HandleBalance — GET /credits?limit=20
func (h *Handler) HandleBalance(c echo.Context) error {
	ctx := c.Request().Context()
	userID := respond.UserID(c)

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	balance, err := h.ledger.GetBalance(ctx, userID)
	if err != nil {
		return respond.Fail(c, err)
	}
	txs, err := h.ledger.History(ctx, userID, limit)
	if err != nil {
		return respond.Fail(c, err)
	}
	if txs == nil {
		txs = []*Transaction{}
	}

	return respond.OK(c, echo.Map{
		"balance":      balance,
		"transactions": txs,
	})
}
