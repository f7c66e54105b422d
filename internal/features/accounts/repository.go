// Package accounts — repository.go выполняет операции с таблицей boost_accounts.
package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koeurnDev/EZA-POST-sub000/internal/common"
)

// Repository предоставляет методы для работы с аккаунтами.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий аккаунтов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const accountColumns = `
	id, user_id, platform, username, encrypted_password, session, cookies_updated,
	status, daily_limit, actions_today, last_reset_date, cooldown_until, last_used,
	total_actions, created_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	var platform, status string
	err := row.Scan(
		&a.ID, &a.UserID, &platform, &a.Username, &a.EncryptedPassword, &a.Session,
		&a.CookiesUpdated, &status, &a.DailyLimit, &a.ActionsToday, &a.LastResetDate,
		&a.CooldownUntil, &a.LastUsed, &a.TotalActions, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Platform = Platform(platform)
	a.Status = Status(status)
	return &a, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]*Account, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения аккаунтов: %w", err)
	}
	defer rows.Close()

	var out []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования аккаунта: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListByUser возвращает все аккаунты пользователя (новые первыми).
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]*Account, error) {
	return r.list(ctx,
		`SELECT `+accountColumns+` FROM boost_accounts WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
}

// ListByPlatform возвращает аккаунты пользователя на площадке.
func (r *Repository) ListByPlatform(ctx context.Context, userID int64, platform Platform) ([]*Account, error) {
	return r.list(ctx,
		`SELECT `+accountColumns+` FROM boost_accounts WHERE user_id = $1 AND platform = $2 ORDER BY id`,
		userID, string(platform))
}

// Get возвращает аккаунт пользователя по ID.
func (r *Repository) Get(ctx context.Context, userID, id int64) (*Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM boost_accounts WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения аккаунта: %w", err)
	}
	return a, nil
}

// GetByUsername ищет аккаунт пользователя по логину на площадке.
func (r *Repository) GetByUsername(ctx context.Context, userID int64, platform Platform, username string) (*Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM boost_accounts WHERE user_id = $1 AND platform = $2 AND username = $3`,
		userID, string(platform), username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска аккаунта: %w", err)
	}
	return a, nil
}

// Create вставляет аккаунт и заполняет ID и created_at.
func (r *Repository) Create(ctx context.Context, a *Account) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO boost_accounts (user_id, platform, username, encrypted_password, session,
		                            cookies_updated, status, daily_limit, last_reset_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, a.UserID, string(a.Platform), a.Username, a.EncryptedPassword, a.Session,
		a.CookiesUpdated, string(a.Status), a.DailyLimit, a.LastResetDate,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания аккаунта: %w", err)
	}
	return nil
}

// UpdateProfile сохраняет поля, которые меняет пользователь.
func (r *Repository) UpdateProfile(ctx context.Context, a *Account) error {
	_, err := r.db.Exec(ctx, `
		UPDATE boost_accounts
		SET username = $2, daily_limit = $3, status = $4, session = $5, cookies_updated = $6
		WHERE id = $1
	`, a.ID, a.Username, a.DailyLimit, string(a.Status), a.Session, a.CookiesUpdated)
	if err != nil {
		return fmt.Errorf("ошибка обновления аккаунта: %w", err)
	}
	return nil
}

// SaveUsage сохраняет счётчики, статус и кулдаун после действия
// или ленивого суточного сброса.
func (r *Repository) SaveUsage(ctx context.Context, a *Account) error {
	_, err := r.db.Exec(ctx, `
		UPDATE boost_accounts
		SET status = $2, actions_today = $3, last_reset_date = $4, cooldown_until = $5,
		    last_used = $6, total_actions = $7
		WHERE id = $1
	`, a.ID, string(a.Status), a.ActionsToday, a.LastResetDate, a.CooldownUntil,
		a.LastUsed, a.TotalActions)
	if err != nil {
		return fmt.Errorf("ошибка сохранения счётчиков аккаунта: %w", err)
	}
	return nil
}

// SaveLogin сохраняет результат логина: статус и (если есть) свежую сессию.
func (r *Repository) SaveLogin(ctx context.Context, a *Account) error {
	_, err := r.db.Exec(ctx, `
		UPDATE boost_accounts
		SET status = $2, session = $3, cookies_updated = $4
		WHERE id = $1
	`, a.ID, string(a.Status), a.Session, a.CookiesUpdated)
	if err != nil {
		return fmt.Errorf("ошибка сохранения сессии аккаунта: %w", err)
	}
	return nil
}

// Delete удаляет аккаунт пользователя.
func (r *Repository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM boost_accounts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления аккаунта: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrAccountNotFound
	}
	return nil
}
