// Package boost — handlers.go обрабатывает /api/boost: правила, аналитика,
// остановка буста и состояние очереди.
package boost

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/koeurnDev/EZA-POST-sub000/internal/api/respond"
)

// Сколько последних бустов отдаёт аналитика
const analyticsLimit = 50

// HandlerStore — то, что обработчикам нужно от репозитория.
type HandlerStore interface {
	EnsureRules(ctx context.Context, userID int64) (*BoostRule, error)
	SaveRules(ctx context.Context, br *BoostRule) error
	ListBoostedPosts(ctx context.Context, userID int64, limit int) ([]*BoostedPost, error)
	GetByPost(ctx context.Context, userID, postID int64) (*BoostedPost, error)
	StopActive(ctx context.Context, userID, postID int64, at time.Time) error
}

// StatusReporter отдаёт состояние очереди.
type StatusReporter interface {
	Status() QueueStatus
}

// Handler обрабатывает запросы буста.
type Handler struct {
	store HandlerStore
	queue StatusReporter
	now   func() time.Time
}

// NewHandler создаёт обработчик.
func NewHandler(store HandlerStore, queue StatusReporter) *Handler {
	return &Handler{store: store, queue: queue, now: time.Now}
}

// Register подключает маршруты к группе /api.
func (h *Handler) Register(g *echo.Group) {
	r := g.Group("/boost")
	r.GET("/rules", h.HandleGetRules)
	r.POST("/rules", h.HandleSaveRules)
	r.GET("/analytics", h.HandleAnalytics)
	r.GET("/analytics/:postId", h.HandlePostAnalytics)
	r.POST("/stop/:postId", h.HandleStop)
	r.GET("/queue", h.HandleQueue)
}

// HandleGetRules — GET /boost/rules. Первый запрос создаёт выключенный набор.
func (h *Handler) HandleGetRules(c echo.Context) error {
	br, err := h.store.EnsureRules(c.Request().Context(), respond.UserID(c))
	if err != nil {
		return respond.Fail(c, err)
	}
	return respond.OK(c, echo.Map{"rules": br})
}

// RealBoostPatch — частичное обновление настроек реального буста.
type RealBoostPatch struct {
	Enabled              *bool       `json:"enabled"`
	MaxActionsPerAccount *int        `json:"maxActionsPerAccount"`
	DelayRange           *DelayRange `json:"delayRange"`
	CooldownHours        *float64    `json:"cooldownHours"`
}

// apply накладывает заданные поля на настройки.
func (p *RealBoostPatch) apply(s *RealBoostSettings) {
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}
	if p.MaxActionsPerAccount != nil && *p.MaxActionsPerAccount > 0 {
		s.MaxActionsPerAccount = *p.MaxActionsPerAccount
	}
	if p.DelayRange != nil {
		s.DelayRange = *p.DelayRange
	}
	if p.CooldownHours != nil && *p.CooldownHours >= 0 {
		s.CooldownHours = *p.CooldownHours
	}
}

// SaveRulesInput — тело POST /boost/rules. Незаданные поля не меняются.
type SaveRulesInput struct {
	Enabled   *bool           `json:"enabled"`
	Rules     json.RawMessage `json:"rules"`
	RealBoost *RealBoostPatch `json:"realBoost"`
}

// HandleSaveRules — POST /boost/rules
func (h *Handler) HandleSaveRules(c echo.Context) error {
	var in SaveRulesInput
	if err := c.Bind(&in); err != nil {
		return respond.BadRequest(c, "некорректное тело запроса")
	}

	ctx := c.Request().Context()
	br, err := h.store.EnsureRules(ctx, respond.UserID(c))
	if err != nil {
		return respond.Fail(c, err)
	}

	if len(in.Rules) > 0 && string(in.Rules) != "null" {
		rules, err := ParseRules(in.Rules)
		if err != nil {
			return respond.Fail(c, err)
		}
		br.Rules = rules
	}
	if in.Enabled != nil {
		br.Enabled = *in.Enabled
	}
	if in.RealBoost != nil {
		in.RealBoost.apply(&br.RealBoost)
	}

	if err := h.store.SaveRules(ctx, br); err != nil {
		return respond.Fail(c, err)
	}
	return respond.OK(c, echo.Map{"rules": br})
}

// HandleAnalytics — GET /boost/analytics
func (h *Handler) HandleAnalytics(c echo.Context) error {
	list, err := h.store.ListBoostedPosts(c.Request().Context(), respond.UserID(c), analyticsLimit)
	if err != nil {
		return respond.Fail(c, err)
	}
	if list == nil {
		list = []*BoostedPost{}
	}
	return respond.OK(c, echo.Map{"stats": Summarize(list), "posts": list})
}

// HandlePostAnalytics — GET /boost/analytics/:postId
func (h *Handler) HandlePostAnalytics(c echo.Context) error {
	postID, err := strconv.ParseInt(c.Param("postId"), 10, 64)
	if err != nil {
		return respond.BadRequest(c, "некорректный postId")
	}
	bp, err := h.store.GetByPost(c.Request().Context(), respond.UserID(c), postID)
	if err != nil {
		return respond.Fail(c, err)
	}
	return respond.OK(c, echo.Map{"data": bp})
}

// HandleStop — POST /boost/stop/:postId. Активный буст становится completed.
func (h *Handler) HandleStop(c echo.Context) error {
	postID, err := strconv.ParseInt(c.Param("postId"), 10, 64)
	if err != nil {
		return respond.BadRequest(c, "некорректный postId")
	}
	if err := h.store.StopActive(c.Request().Context(), respond.UserID(c), postID, h.now()); err != nil {
		return respond.Fail(c, err)
	}
	return respond.OK(c, echo.Map{"message": "Boost stopped"})
}

// HandleQueue — GET /boost/queue
func (h *Handler) HandleQueue(c echo.Context) error {
	return respond.OK(c, echo.Map{"queue": h.queue.Status()})
}
