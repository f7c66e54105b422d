// Package posts — repository.go читает таблицу posts.
package posts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koeurnDev/EZA-POST-sub000/internal/common"
)

// Repository предоставляет методы для работы с постами.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий постов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const postColumns = `id, user_id, platform, url, status, created_at, likes, comments, shares`

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.UserID, &p.Platform, &p.URL, &p.Status, &p.CreatedAt,
		&p.Metrics.Likes, &p.Metrics.Comments, &p.Metrics.Shares)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindRecentPublished возвращает опубликованные посты пользователя,
// созданные не раньше since.
func (r *Repository) FindRecentPublished(ctx context.Context, userID int64, since time.Time) ([]*Post, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE user_id = $1 AND status = $2 AND created_at >= $3
		ORDER BY created_at
	`, userID, StatusPublished, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения постов: %w", err)
	}
	defer rows.Close()

	var out []*Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования поста: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetByID возвращает пост пользователя.
func (r *Repository) GetByID(ctx context.Context, userID, id int64) (*Post, error) {
	p, err := scanPost(r.db.QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения поста: %w", err)
	}
	return p, nil
}

// AddMetrics прибавляет симулированные метрики к сохранённым.
func (r *Repository) AddMetrics(ctx context.Context, id int64, m Metrics) error {
	_, err := r.db.Exec(ctx, `
		UPDATE posts
		SET likes = likes + $2, comments = comments + $3, shares = shares + $4
		WHERE id = $1
	`, id, m.Likes, m.Comments, m.Shares)
	if err != nil {
		return fmt.Errorf("ошибка обновления метрик поста: %w", err)
	}
	return nil
}
