// Package posts даёт доступ к постам пользователей: их публикует внешний
// конвейер, а буст только читает их и дописывает симулированные метрики.
package posts

import "time"

// StatusPublished — пост опубликован и может буститься.
const StatusPublished = "published"

// Metrics — счётчики вовлечённости поста.
type Metrics struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
}

// Post — опубликованный пост.
type Post struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"userId"`
	Platform  string    `db:"platform" json:"platform"`
	URL       string    `db:"url" json:"url"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	Metrics   Metrics   `json:"metrics"`
}

// HoursOld возвращает возраст поста в часах на момент now.
func (p *Post) HoursOld(now time.Time) float64 {
	return now.Sub(p.CreatedAt).Hours()
}
