// Package boost — автобуст постов.
//
// engine.go проверяет правила пользователей по расписанию и запускает
// буст: симулированный (метрики дописываются сразу) или реальный (за кредиты,
// через очередь queue.go и пул аккаунтов).
//
// models.go описывает правила, забущенные посты и записи действий.
package boost

import (
	"time"

	"github.com/koeurnDev/EZA-POST-sub000/internal/features/posts"
)

// ActionKind — вид действия над постом.
type ActionKind string

const (
	ActionLike    ActionKind = "like"
	ActionComment ActionKind = "comment"
	ActionShare   ActionKind = "share"
)

// Valid сообщает, известно ли действие.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionLike, ActionComment, ActionShare:
		return true
	}
	return false
}

// Intensity — насколько сильно бустить в симуляции.
type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// Valid сообщает, известна ли интенсивность.
func (i Intensity) Valid() bool {
	switch i {
	case IntensityLow, IntensityMedium, IntensityHigh:
		return true
	}
	return false
}

// MaxAccountsPerTask — сколько аккаунтов максимум участвует в одной задаче.
// Столько же действий одного вида может выполнить задача.
const MaxAccountsPerTask = 3

// Targets — сколько действий каждого вида заказано правилом. nil — не задано.
type Targets struct {
	Likes    *int64 `json:"likes,omitempty"`
	Comments *int64 `json:"comments,omitempty"`
	Shares   *int64 `json:"shares,omitempty"`
}

// For возвращает цель для вида действия.
func (t Targets) For(kind ActionKind) *int64 {
	switch kind {
	case ActionLike:
		return t.Likes
	case ActionComment:
		return t.Comments
	case ActionShare:
		return t.Shares
	}
	return nil
}

// Rule — одно правило: условие, действия, интенсивность, цели.
// JSON: {"type":"time","condition":{"hours":24},"actions":["like"],"intensity":"medium"}
type Rule struct {
	Condition Condition
	Actions   []ActionKind
	Intensity Intensity
	Targets   Targets
}

// DelayRange — пауза между действиями в миллисекундах.
type DelayRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// RealBoostSettings — настройки реального буста пользователя.
type RealBoostSettings struct {
	Enabled              bool       `json:"enabled"`
	MaxActionsPerAccount int        `json:"maxActionsPerAccount"`
	DelayRange           DelayRange `json:"delayRange"`
	CooldownHours        float64    `json:"cooldownHours"` // 0 — случайно 2–4 часа
}

// BoostRule — набор правил пользователя.
type BoostRule struct {
	ID        int64             `db:"id" json:"id"`
	UserID    int64             `db:"user_id" json:"userId"`
	Enabled   bool              `db:"enabled" json:"enabled"`
	Rules     []Rule            `db:"rules" json:"rules"`
	RealBoost RealBoostSettings `db:"real_boost" json:"realBoost"`
	CreatedAt time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time         `db:"updated_at" json:"updatedAt"`
}

// DefaultRealBoost — настройки, с которыми создаётся новый набор правил.
func DefaultRealBoost() RealBoostSettings {
	return RealBoostSettings{MaxActionsPerAccount: 25}
}

// Status — состояние забущенного поста. completed и failed терминальны.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Тексты ошибок, которые видит пользователь
const (
	errTextInsufficientCredits = "Insufficient credits"
)

// Metrics — сколько вовлечённости добавил буст.
type Metrics struct {
	LikesAdded    int64 `json:"likesAdded"`
	CommentsAdded int64 `json:"commentsAdded"`
	SharesAdded   int64 `json:"sharesAdded"`
}

// add учитывает одно успешное реальное действие.
func (m *Metrics) add(kind ActionKind) {
	switch kind {
	case ActionLike:
		m.LikesAdded++
	case ActionComment:
		m.CommentsAdded++
	case ActionShare:
		m.SharesAdded++
	}
}

// fromPost переводит симулированные метрики поста.
func fromPost(m posts.Metrics) Metrics {
	return Metrics{LikesAdded: m.Likes, CommentsAdded: m.Comments, SharesAdded: m.Shares}
}

// ActionRecord — результат одного действия аккаунта.
type ActionRecord struct {
	AccountID int64      `json:"accountId"`
	Action    ActionKind `json:"action"`
	Timestamp time.Time  `json:"timestamp"`
	Success   bool       `json:"success"`
	Error     string     `json:"error,omitempty"`
}

// RealBoostState — ход реального буста.
type RealBoostState struct {
	Enabled          bool           `json:"enabled"`
	AccountsUsed     []int64        `json:"accountsUsed"`
	ActionsCompleted []ActionRecord `json:"actionsCompleted"`
}

// markUsed добавляет аккаунт в список использованных (без повторов).
func (s *RealBoostState) markUsed(accountID int64) {
	for _, id := range s.AccountsUsed {
		if id == accountID {
			return
		}
	}
	s.AccountsUsed = append(s.AccountsUsed, accountID)
}

// BoostedPost — запись о бусте поста. На пару (пост, пользователь)
// допускается не больше одной записи в active/completed.
type BoostedPost struct {
	ID            int64          `json:"id"`
	PostID        int64          `json:"postId"`
	UserID        int64          `json:"userId"`
	Platform      string         `json:"platform"`
	PostURL       string         `json:"postUrl"`
	Status        Status         `json:"status"`
	Error         string         `json:"error,omitempty"`
	RuleTriggered string         `json:"ruleTriggered"`
	Actions       []ActionKind   `json:"actions"`
	Targets       Targets        `json:"targets"`
	Metrics       Metrics        `json:"metrics"`
	RealBoost     RealBoostState `json:"realBoost"`
	CreditsSpent  int64          `json:"creditsSpent"`
	BoostStarted  time.Time      `json:"boostStarted"`
	BoostEnded    *time.Time     `json:"boostEnded,omitempty"`
}

// Stats — сводка для аналитики.
type Stats struct {
	TotalBoosted       int   `json:"totalBoosted"`
	ActiveBoosted      int   `json:"activeBoosted"`
	TotalLikesAdded    int64 `json:"totalLikesAdded"`
	TotalCommentsAdded int64 `json:"totalCommentsAdded"`
	TotalSharesAdded   int64 `json:"totalSharesAdded"`
}

// Summarize считает сводку по списку бустов.
func Summarize(list []*BoostedPost) Stats {
	s := Stats{TotalBoosted: len(list)}
	for _, bp := range list {
		if bp.Status == StatusActive {
			s.ActiveBoosted++
		}
		s.TotalLikesAdded += bp.Metrics.LikesAdded
		s.TotalCommentsAdded += bp.Metrics.CommentsAdded
		s.TotalSharesAdded += bp.Metrics.SharesAdded
	}
	return s
}
