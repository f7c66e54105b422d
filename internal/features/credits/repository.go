// Package credits — repository.go выполняет операции с таблицами
// credit_balances и credit_transactions.
// Изменение баланса и запись в журнал всегда идут в одной транзакции БД.
package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koeurnDev/EZA-POST-sub000/internal/common"
	"github.com/koeurnDev/EZA-POST-sub000/internal/db/postgres"
)

// Repository предоставляет методы для работы с балансами и журналом.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий кредитов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetBalance возвращает текущий баланс пользователя.
// Если записи ещё нет — баланс считается нулевым.
func (r *Repository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx,
		`SELECT balance FROM credit_balances WHERE user_id = $1`, userID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return balance, nil
}

// Apply атомарно меняет баланс на amount (со знаком) и дописывает транзакцию.
//
// Параметры:
//   - userID: чей баланс
//   - amount: отрицательный для списания, положительный для начисления
//   - txType, description, relatedID: поля записи журнала
//
// Возвращает новый баланс. При списании больше остатка возвращает
// common.ErrInsufficientCredits, ничего не меняя.
func (r *Repository) Apply(ctx context.Context, userID, amount int64, txType TxType, description, relatedID string) (int64, error) {
	var newBalance int64
	err := postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		// Строка баланса должна существовать, чтобы её можно было заблокировать
		if _, err := tx.Exec(ctx, `
			INSERT INTO credit_balances (user_id, balance, total_spent)
			VALUES ($1, 0, 0)
			ON CONFLICT (user_id) DO NOTHING
		`, userID); err != nil {
			return fmt.Errorf("ошибка создания баланса: %w", err)
		}

		// Блокируем строку FOR UPDATE: параллельные списания ждут друг друга
		var current int64
		if err := tx.QueryRow(ctx,
			`SELECT balance FROM credit_balances WHERE user_id = $1 FOR UPDATE`, userID,
		).Scan(&current); err != nil {
			return fmt.Errorf("ошибка получения баланса: %w", err)
		}

		if current+amount < 0 {
			return fmt.Errorf("%w: нужно %d, есть %d", common.ErrInsufficientCredits, -amount, current)
		}
		newBalance = current + amount

		spent := int64(0)
		if amount < 0 && txType == TxSpend {
			spent = -amount
		}
		if _, err := tx.Exec(ctx, `
			UPDATE credit_balances
			SET balance = $2, total_spent = total_spent + $3, updated_at = NOW()
			WHERE user_id = $1
		`, userID, newBalance, spent); err != nil {
			return fmt.Errorf("ошибка изменения баланса: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO credit_transactions (user_id, type, amount, balance, description, related_id)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, userID, string(txType), amount, newBalance, description, relatedID); err != nil {
			return fmt.Errorf("ошибка записи транзакции: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Transactions возвращает последние N транзакций пользователя (новые первыми).
func (r *Repository) Transactions(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, type, amount, balance, COALESCE(description, ''),
		       COALESCE(related_id, ''), created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения транзакций: %w", err)
	}
	defer rows.Close()

	var txs []*Transaction
	for rows.Next() {
		var t Transaction
		var typ string
		if err := rows.Scan(&t.ID, &t.UserID, &typ, &t.Amount, &t.Balance,
			&t.Description, &t.RelatedID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования транзакции: %w", err)
		}
		t.Type = TxType(typ)
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}
