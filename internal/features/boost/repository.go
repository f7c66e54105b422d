// Package boost — repository.go выполняет операции с таблицами
// boost_rules и boosted_posts.
package boost

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koeurnDev/EZA-POST-sub000/internal/common"
)

// Repository предоставляет методы для работы с правилами и бустами.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий буста.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// =====================================
// Правила
// =====================================

const ruleColumns = `id, user_id, enabled, rules, real_boost, created_at, updated_at`

func scanRule(row pgx.Row) (*BoostRule, error) {
	var br BoostRule
	if err := row.Scan(&br.ID, &br.UserID, &br.Enabled, &br.Rules, &br.RealBoost, &br.CreatedAt, &br.UpdatedAt); err != nil {
		return nil, err
	}
	return &br, nil
}

// FindEnabledRules возвращает включённые наборы правил всех пользователей.
func (r *Repository) FindEnabledRules(ctx context.Context) ([]*BoostRule, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ruleColumns+` FROM boost_rules WHERE enabled = TRUE ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения правил: %w", err)
	}
	defer rows.Close()

	var out []*BoostRule
	for rows.Next() {
		br, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования правил: %w", err)
		}
		out = append(out, br)
	}
	return out, rows.Err()
}

// EnsureRules возвращает правила пользователя, создавая выключенный
// пустой набор при первом обращении.
func (r *Repository) EnsureRules(ctx context.Context, userID int64) (*BoostRule, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO boost_rules (user_id, enabled, rules, real_boost)
		VALUES ($1, FALSE, '[]', $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, DefaultRealBoost())
	if err != nil {
		return nil, fmt.Errorf("ошибка создания правил: %w", err)
	}
	return r.GetRules(ctx, userID)
}

// GetRules возвращает правила пользователя.
func (r *Repository) GetRules(ctx context.Context, userID int64) (*BoostRule, error) {
	br, err := scanRule(r.db.QueryRow(ctx, `SELECT `+ruleColumns+` FROM boost_rules WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrBoostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения правил: %w", err)
	}
	return br, nil
}

// SaveRules создаёт или обновляет набор правил пользователя.
func (r *Repository) SaveRules(ctx context.Context, br *BoostRule) error {
	if br.Rules == nil {
		br.Rules = []Rule{}
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO boost_rules (user_id, enabled, rules, real_boost)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET enabled = EXCLUDED.enabled, rules = EXCLUDED.rules,
		    real_boost = EXCLUDED.real_boost, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, br.UserID, br.Enabled, br.Rules, br.RealBoost).Scan(&br.ID, &br.CreatedAt, &br.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения правил: %w", err)
	}
	return nil
}

// =====================================
// Забущенные посты
// =====================================

const boostedColumns = `
	id, post_id, user_id, platform, post_url, status, error, rule_triggered,
	actions, targets, likes_added, comments_added, shares_added,
	real_boost_enabled, accounts_used, actions_completed, credits_spent,
	boost_started, boost_ended`

func scanBoosted(row pgx.Row) (*BoostedPost, error) {
	var bp BoostedPost
	var status string
	err := row.Scan(
		&bp.ID, &bp.PostID, &bp.UserID, &bp.Platform, &bp.PostURL, &status, &bp.Error, &bp.RuleTriggered,
		&bp.Actions, &bp.Targets, &bp.Metrics.LikesAdded, &bp.Metrics.CommentsAdded, &bp.Metrics.SharesAdded,
		&bp.RealBoost.Enabled, &bp.RealBoost.AccountsUsed, &bp.RealBoost.ActionsCompleted, &bp.CreditsSpent,
		&bp.BoostStarted, &bp.BoostEnded,
	)
	if err != nil {
		return nil, err
	}
	bp.Status = Status(status)
	return &bp, nil
}

func (r *Repository) listBoosted(ctx context.Context, query string, args ...any) ([]*BoostedPost, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения бустов: %w", err)
	}
	defer rows.Close()

	var out []*BoostedPost
	for rows.Next() {
		bp, err := scanBoosted(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования буста: %w", err)
		}
		out = append(out, bp)
	}
	return out, rows.Err()
}

// CoveredPostIDs возвращает посты пользователя, у которых уже есть
// буст в active или completed.
func (r *Repository) CoveredPostIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT post_id FROM boosted_posts
		WHERE user_id = $1 AND status IN ('active', 'completed')
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения забущенных постов: %w", err)
	}
	defer rows.Close()

	covered := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		covered[id] = true
	}
	return covered, rows.Err()
}

// CreateBoostedPost вставляет запись. Если у поста уже есть буст
// в active/completed (частичный уникальный индекс), возвращает common.ErrAlreadyBoosted.
func (r *Repository) CreateBoostedPost(ctx context.Context, bp *BoostedPost) error {
	if bp.Actions == nil {
		bp.Actions = []ActionKind{}
	}
	if bp.RealBoost.ActionsCompleted == nil {
		bp.RealBoost.ActionsCompleted = []ActionRecord{}
	}
	if bp.RealBoost.AccountsUsed == nil {
		bp.RealBoost.AccountsUsed = []int64{}
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO boosted_posts (post_id, user_id, platform, post_url, status, error, rule_triggered,
		                           actions, targets, likes_added, comments_added, shares_added,
		                           real_boost_enabled, accounts_used, actions_completed, credits_spent,
		                           boost_started, boost_ended)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (post_id, user_id) WHERE status IN ('active', 'completed') DO NOTHING
		RETURNING id
	`, bp.PostID, bp.UserID, bp.Platform, bp.PostURL, string(bp.Status), bp.Error, bp.RuleTriggered,
		bp.Actions, bp.Targets, bp.Metrics.LikesAdded, bp.Metrics.CommentsAdded, bp.Metrics.SharesAdded,
		bp.RealBoost.Enabled, bp.RealBoost.AccountsUsed, bp.RealBoost.ActionsCompleted, bp.CreditsSpent,
		bp.BoostStarted, bp.BoostEnded,
	).Scan(&bp.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrAlreadyBoosted
	}
	if err != nil {
		return fmt.Errorf("ошибка создания буста: %w", err)
	}
	return nil
}

// GetBoostedPost возвращает буст по ID.
func (r *Repository) GetBoostedPost(ctx context.Context, id int64) (*BoostedPost, error) {
	bp, err := scanBoosted(r.db.QueryRow(ctx, `SELECT `+boostedColumns+` FROM boosted_posts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrBoostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения буста: %w", err)
	}
	return bp, nil
}

// SaveProgress сохраняет ход реального буста: метрики, аккаунты, действия.
func (r *Repository) SaveProgress(ctx context.Context, bp *BoostedPost) error {
	_, err := r.db.Exec(ctx, `
		UPDATE boosted_posts
		SET likes_added = $2, comments_added = $3, shares_added = $4,
		    accounts_used = $5, actions_completed = $6
		WHERE id = $1
	`, bp.ID, bp.Metrics.LikesAdded, bp.Metrics.CommentsAdded, bp.Metrics.SharesAdded,
		bp.RealBoost.AccountsUsed, bp.RealBoost.ActionsCompleted)
	if err != nil {
		return fmt.Errorf("ошибка сохранения хода буста: %w", err)
	}
	return nil
}

// Finish переводит активный буст в терминальный статус.
// Возвращает false, если буст уже не активен (например, остановлен пользователем).
func (r *Repository) Finish(ctx context.Context, id int64, status Status, errText string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE boosted_posts
		SET status = $2, error = $3, boost_ended = $4
		WHERE id = $1 AND status = 'active'
	`, id, string(status), errText, at)
	if err != nil {
		return false, fmt.Errorf("ошибка завершения буста: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListBoostedPosts возвращает последние бусты пользователя (новые первыми).
func (r *Repository) ListBoostedPosts(ctx context.Context, userID int64, limit int) ([]*BoostedPost, error) {
	return r.listBoosted(ctx,
		`SELECT `+boostedColumns+` FROM boosted_posts WHERE user_id = $1 ORDER BY boost_started DESC, id DESC LIMIT $2`,
		userID, limit)
}

// GetByPost возвращает последний буст поста пользователя.
func (r *Repository) GetByPost(ctx context.Context, userID, postID int64) (*BoostedPost, error) {
	bp, err := scanBoosted(r.db.QueryRow(ctx, `
		SELECT `+boostedColumns+` FROM boosted_posts
		WHERE user_id = $1 AND post_id = $2
		ORDER BY boost_started DESC, id DESC LIMIT 1
	`, userID, postID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrBoostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения буста поста: %w", err)
	}
	return bp, nil
}

// StopActive завершает активный буст поста. Автоматизация не прерывается:
// очередь увидит статус и пропустит задачу или не перезапишет его.
func (r *Repository) StopActive(ctx context.Context, userID, postID int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE boosted_posts
		SET status = 'completed', boost_ended = $3
		WHERE user_id = $1 AND post_id = $2 AND status = 'active'
	`, userID, postID, at)
	if err != nil {
		return fmt.Errorf("ошибка остановки буста: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrBoostNotFound
	}
	return nil
}

// ListActiveReal возвращает активные реальные бусты (для восстановления очереди).
func (r *Repository) ListActiveReal(ctx context.Context) ([]*BoostedPost, error) {
	return r.listBoosted(ctx,
		`SELECT `+boostedColumns+` FROM boosted_posts WHERE status = 'active' AND real_boost_enabled ORDER BY id`)
}
