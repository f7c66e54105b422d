// Package accounts управляет пулом аккаунтов автоматизации:
// суточными квотами, кулдаунами, банами и доступностью.
// models.go описывает аккаунт и его state-машину.
package accounts

import (
	"time"

	"github.com/koeurnDev/EZA-POST-sub000/internal/common"
)

// Status — состояние аккаунта.
//
//	active ⇄ cooldown   (вход в кулдаун автоматический, выход — только по предикату)
//	active/cooldown → error  (неудачный логин)
//	error → active      (удачный логин)
//	* → banned          (терминальное)
type Status string

const (
	StatusActive   Status = "active"
	StatusBanned   Status = "banned"
	StatusCooldown Status = "cooldown"
	StatusError    Status = "error"
)

// Valid сообщает, известен ли статус.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusBanned, StatusCooldown, StatusError:
		return true
	}
	return false
}

// Platform — площадка, к которой относится аккаунт.
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

// Valid сообщает, поддерживается ли площадка.
func (p Platform) Valid() bool {
	switch p {
	case PlatformTikTok, PlatformFacebook, PlatformInstagram:
		return true
	}
	return false
}

const (
	// Доля суточного лимита, после которой аккаунт уходит в кулдаун
	cooldownThreshold = 0.8
	cooldownMin       = 2 * time.Hour
	cooldownMax       = 4 * time.Hour
)

// Account — одна учётная запись автоматизации.
// Пароль и сессия наружу никогда не отдаются (json:"-").
type Account struct {
	ID                int64      `db:"id" json:"id"`
	UserID            int64      `db:"user_id" json:"userId"`
	Platform          Platform   `db:"platform" json:"platform"`
	Username          string     `db:"username" json:"username"`
	EncryptedPassword string     `db:"encrypted_password" json:"-"`
	Session           []byte     `db:"session" json:"-"` // Непрозрачный блоб, формат знает только automation
	CookiesUpdated    *time.Time `db:"cookies_updated" json:"cookiesUpdated,omitempty"`
	Status            Status     `db:"status" json:"status"`
	DailyLimit        int        `db:"daily_limit" json:"dailyLimit"`
	ActionsToday      int        `db:"actions_today" json:"actionsToday"`
	LastResetDate     time.Time  `db:"last_reset_date" json:"lastResetDate"`
	CooldownUntil     *time.Time `db:"cooldown_until" json:"cooldownUntil,omitempty"`
	LastUsed          *time.Time `db:"last_used" json:"lastUsed,omitempty"`
	TotalActions      int64      `db:"total_actions" json:"totalActions"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
}

// ResetDayIfNeeded обнуляет actionsToday, если с lastResetDate сменились
// календарные сутки. Возвращает true, если сброс произошёл.
func (a *Account) ResetDayIfNeeded(now time.Time) bool {
	if common.SameDay(a.LastResetDate, now) {
		return false
	}
	a.ActionsToday = 0
	a.LastResetDate = now
	return true
}

// IsAvailable — предикат доступности:
//
//	status != banned
//	AND NOT(status == cooldown AND now < cooldownUntil)
//	AND actionsToday < dailyLimit
//
// Проверка ленивая: здесь же сбрасывается суточный счётчик.
// Сам статус cooldown после истечения не меняется.
func (a *Account) IsAvailable(now time.Time) bool {
	if a.Status == StatusBanned {
		return false
	}
	if a.Status == StatusCooldown && a.CooldownUntil != nil && now.Before(*a.CooldownUntil) {
		return false
	}
	a.ResetDayIfNeeded(now)
	return a.HasQuota()
}

// HasQuota сообщает, осталась ли суточная квота.
func (a *Account) HasQuota() bool {
	return a.ActionsToday < a.DailyLimit
}

// RecordAction учитывает одно выполненное действие.
// actionsToday никогда не превышает dailyLimit. При достижении 80% лимита
// аккаунт уходит в кулдаун на cooldown.
func (a *Account) RecordAction(now time.Time, cooldown time.Duration) {
	a.TotalActions++
	if a.ActionsToday < a.DailyLimit {
		a.ActionsToday++
	}
	a.LastUsed = &now

	if a.Status == StatusBanned {
		return
	}
	if float64(a.ActionsToday) >= float64(a.DailyLimit)*cooldownThreshold {
		until := now.Add(cooldown)
		a.CooldownUntil = &until
		a.Status = StatusCooldown
	}
}

// CooldownDuration выбирает длительность кулдауна: часы из правила,
// если заданы, иначе случайно из [2h, 4h].
func CooldownDuration(rnd common.RandFunc, cooldownHours float64) time.Duration {
	if cooldownHours > 0 {
		return time.Duration(cooldownHours * float64(time.Hour))
	}
	return common.Between(rnd, cooldownMin, cooldownMax)
}

// LoginSucceeded переводит аккаунт в active после удачного логина.
// Бан не снимается, незакончившийся кулдаун тоже.
func (a *Account) LoginSucceeded(now time.Time) {
	switch a.Status {
	case StatusBanned:
		return
	case StatusCooldown:
		if a.CooldownUntil != nil && now.Before(*a.CooldownUntil) {
			return
		}
	}
	a.Status = StatusActive
}

// LoginFailed переводит аккаунт в error (кроме забаненных).
func (a *Account) LoginFailed() {
	if a.Status != StatusBanned {
		a.Status = StatusError
	}
}
