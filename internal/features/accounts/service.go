// Package accounts — service.go: менеджер пула аккаунтов.
// Отбор доступных аккаунтов, учёт действий и CRUD для API.
package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/koeurnDev/EZA-POST-sub000/internal/common"
)

// Store — хранилище аккаунтов.
type Store interface {
	ListByUser(ctx context.Context, userID int64) ([]*Account, error)
	ListByPlatform(ctx context.Context, userID int64, platform Platform) ([]*Account, error)
	Get(ctx context.Context, userID, id int64) (*Account, error)
	GetByUsername(ctx context.Context, userID int64, platform Platform, username string) (*Account, error)
	Create(ctx context.Context, a *Account) error
	UpdateProfile(ctx context.Context, a *Account) error
	SaveUsage(ctx context.Context, a *Account) error
	Delete(ctx context.Context, userID, id int64) error
}

// Automation — то, что менеджеру нужно от Action Executor.
type Automation interface {
	// Login пытается войти в аккаунт; сам сохраняет статус и сессию.
	Login(ctx context.Context, a *Account) bool
	// EncodeCookies превращает cookies, снятые в браузере, в блоб сессии.
	EncodeCookies(raw json.RawMessage) ([]byte, error)
	// CloseSession закрывает закэшированную сессию аккаунта.
	CloseSession(accountID int64) error
}

// Options — настройки менеджера.
type Options struct {
	DefaultDailyLimit int
	ImportDailyLimit  int
	Now               func() time.Time
	Rand              common.RandFunc
}

// Manager управляет пулом аккаунтов.
type Manager struct {
	store      Store
	cipher     *Cipher
	automation Automation
	opts       Options
}

// NewManager создаёт менеджер.
func NewManager(store Store, cipher *Cipher, opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = common.DefaultRand
	}
	if opts.DefaultDailyLimit <= 0 {
		opts.DefaultDailyLimit = 25
	}
	if opts.ImportDailyLimit <= 0 {
		opts.ImportDailyLimit = 50
	}
	return &Manager{store: store, cipher: cipher, opts: opts}
}

// SetAutomation подключает исполнитель. Вызывается из app после создания пула сессий:
// исполнителю, в свою очередь, нужен репозиторий аккаунтов.
func (m *Manager) SetAutomation(a Automation) {
	m.automation = a
}

// Decrypt возвращает пароль аккаунта в открытом виде (для логина).
func (m *Manager) Decrypt(a *Account) (string, error) {
	if a.EncryptedPassword == "" {
		return "", nil
	}
	return m.cipher.Decrypt(a.EncryptedPassword)
}

// ListAvailable возвращает аккаунты пользователя на площадке,
// прошедшие предикат доступности. Аккаунты со сменившимися сутками
// сбрасываются и сохраняются здесь же.
func (m *Manager) ListAvailable(ctx context.Context, userID int64, platform Platform) ([]*Account, error) {
	all, err := m.store.ListByPlatform(ctx, userID, platform)
	if err != nil {
		return nil, err
	}

	now := m.opts.Now()
	var available []*Account
	for _, a := range all {
		lastReset := a.LastResetDate
		ok := a.IsAvailable(now)
		if !a.LastResetDate.Equal(lastReset) {
			if err := m.store.SaveUsage(ctx, a); err != nil {
				log.WithError(err).WithField("account_id", a.ID).Warn("Не удалось сохранить суточный сброс")
			}
		}
		if ok {
			available = append(available, a)
		}
	}

	log.WithFields(log.Fields{
		"user_id":   userID,
		"platform":  platform,
		"total":     len(all),
		"available": len(available),
	}).Debug("Отбор доступных аккаунтов")
	return available, nil
}

// RecordAction учитывает успешное действие аккаунта.
// cooldownHours > 0 — длительность кулдауна из правила пользователя.
func (m *Manager) RecordAction(ctx context.Context, a *Account, cooldownHours float64) error {
	a.RecordAction(m.opts.Now(), CooldownDuration(m.opts.Rand, cooldownHours))
	if err := m.store.SaveUsage(ctx, a); err != nil {
		return err
	}

	if a.Status == StatusCooldown {
		log.WithFields(log.Fields{
			"account_id":     a.ID,
			"actions_today":  a.ActionsToday,
			"daily_limit":    a.DailyLimit,
			"cooldown_until": a.CooldownUntil,
		}).Info("Аккаунт ушёл в кулдаун")
	}
	return nil
}

// List возвращает все аккаунты пользователя.
func (m *Manager) List(ctx context.Context, userID int64) ([]*Account, error) {
	return m.store.ListByUser(ctx, userID)
}

// CreateInput — данные нового аккаунта.
type CreateInput struct {
	Platform   Platform `json:"platform"`
	Username   string   `json:"username"`
	Password   string   `json:"password"`
	DailyLimit int      `json:"dailyLimit"`
}

// Create добавляет аккаунт и сразу пробует войти, чтобы получить сессию.
func (m *Manager) Create(ctx context.Context, userID int64, in CreateInput) (*Account, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return nil, common.ErrCredentialsRequired
	}
	platform, err := platformOrDefault(in.Platform)
	if err != nil {
		return nil, err
	}

	encrypted, err := m.cipher.Encrypt(in.Password)
	if err != nil {
		return nil, err
	}

	limit := in.DailyLimit
	if limit <= 0 {
		limit = m.opts.DefaultDailyLimit
	}

	a := &Account{
		UserID:            userID,
		Platform:          platform,
		Username:          in.Username,
		EncryptedPassword: encrypted,
		Status:            StatusActive,
		DailyLimit:        limit,
		LastResetDate:     m.opts.Now(),
	}
	if err := m.store.Create(ctx, a); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"account_id": a.ID, "username": a.Username}).Info("Аккаунт добавлен, пробуем войти")
	if m.automation != nil {
		m.automation.Login(ctx, a)
	}
	return a, nil
}

// UpdateInput — изменяемые пользователем поля. nil — не менять.
type UpdateInput struct {
	Username   *string         `json:"username"`
	DailyLimit *int            `json:"dailyLimit"`
	Status     *Status         `json:"status"`
	Cookies    json.RawMessage `json:"cookies"`
}

// Update меняет поля аккаунта.
func (m *Manager) Update(ctx context.Context, userID, id int64, in UpdateInput) (*Account, error) {
	a, err := m.store.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.Username != nil && strings.TrimSpace(*in.Username) != "" {
		a.Username = strings.TrimSpace(*in.Username)
	}
	if in.DailyLimit != nil && *in.DailyLimit > 0 {
		a.DailyLimit = *in.DailyLimit
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("%w: неизвестный статус %q", common.ErrInvalidRule, *in.Status)
		}
		a.Status = *in.Status
	}
	if len(in.Cookies) > 0 && m.automation != nil {
		blob, err := m.automation.EncodeCookies(in.Cookies)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrCookiesRequired, err)
		}
		now := m.opts.Now()
		a.Session = blob
		a.CookiesUpdated = &now
	}

	if err := m.store.UpdateProfile(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Delete удаляет аккаунт и закрывает его сессию автоматизации.
func (m *Manager) Delete(ctx context.Context, userID, id int64) error {
	if err := m.store.Delete(ctx, userID, id); err != nil {
		return err
	}
	if m.automation != nil {
		if err := m.automation.CloseSession(id); err != nil {
			log.WithError(err).WithField("account_id", id).Warn("Не удалось закрыть сессию удалённого аккаунта")
		}
	}
	log.WithField("account_id", id).Info("Аккаунт удалён")
	return nil
}

// Test запускает попытку логина и возвращает её результат.
func (m *Manager) Test(ctx context.Context, userID, id int64) (bool, error) {
	a, err := m.store.Get(ctx, userID, id)
	if err != nil {
		return false, err
	}
	if m.automation == nil {
		return false, nil
	}
	return m.automation.Login(ctx, a), nil
}

// ImportInput — cookies, снятые во внешнем браузере.
type ImportInput struct {
	Platform Platform        `json:"platform"`
	Username string          `json:"username"`
	Cookies  json.RawMessage `json:"cookies"`
}

// ImportCookies создаёт аккаунт или обновляет сессию существующего
// (поиск по username), статус становится active.
func (m *Manager) ImportCookies(ctx context.Context, userID int64, in ImportInput) (*Account, bool, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || len(in.Cookies) == 0 || m.automation == nil {
		return nil, false, common.ErrCookiesRequired
	}
	platform, err := platformOrDefault(in.Platform)
	if err != nil {
		return nil, false, err
	}
	blob, err := m.automation.EncodeCookies(in.Cookies)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", common.ErrCookiesRequired, err)
	}
	now := m.opts.Now()

	a, err := m.store.GetByUsername(ctx, userID, platform, in.Username)
	switch {
	case err == nil:
		a.Session = blob
		a.CookiesUpdated = &now
		if a.Status != StatusBanned {
			a.Status = StatusActive
		}
		if err := m.store.UpdateProfile(ctx, a); err != nil {
			return nil, false, err
		}
		log.WithField("username", a.Username).Info("Cookies аккаунта обновлены")
		return a, false, nil

	case errors.Is(err, common.ErrAccountNotFound):
		a = &Account{
			UserID:         userID,
			Platform:       platform,
			Username:       in.Username,
			Session:        blob,
			CookiesUpdated: &now,
			Status:         StatusActive,
			DailyLimit:     m.opts.ImportDailyLimit,
			LastResetDate:  now,
		}
		if err := m.store.Create(ctx, a); err != nil {
			return nil, false, err
		}
		log.WithField("username", a.Username).Info("Аккаунт создан из cookies")
		return a, true, nil

	default:
		return nil, false, err
	}
}

func platformOrDefault(p Platform) (Platform, error) {
	if p == "" {
		return PlatformTikTok, nil
	}
	if !p.Valid() {
		return "", fmt.Errorf("%w: неизвестная площадка %q", common.ErrInvalidRule, p)
	}
	return p, nil
}
