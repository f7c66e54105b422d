// Package credits — service.go: кредитный журнал, через который проходит
// допуск к реальному бусту.
package credits

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/koeurnDev/EZA-POST-sub000/internal/common"
)

// Store — хранилище балансов. Apply обязан менять баланс и дописывать
// транзакцию атомарно.
type Store interface {
	GetBalance(ctx context.Context, userID int64) (int64, error)
	Apply(ctx context.Context, userID, amount int64, txType TxType, description, relatedID string) (int64, error)
	Transactions(ctx context.Context, userID int64, limit int) ([]*Transaction, error)
}

// Ledger — кредитный журнал.
type Ledger struct {
	store Store

	// Мьютекс на пользователя: операции с одним балансом идут строго по очереди
	mu    sync.Mutex
	users map[int64]*sync.Mutex
}

// NewLedger создаёт журнал поверх хранилища.
func NewLedger(store Store) *Ledger {
	return &Ledger{
		store: store,
		users: make(map[int64]*sync.Mutex),
	}
}

// userLock возвращает мьютекс пользователя (создаёт при первом обращении).
func (l *Ledger) userLock(userID int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.users[userID]
	if !ok {
		m = &sync.Mutex{}
		l.users[userID] = m
	}
	return m
}

// GetBalance возвращает текущий баланс.
func (l *Ledger) GetBalance(ctx context.Context, userID int64) (int64, error) {
	return l.store.GetBalance(ctx, userID)
}

// Debit списывает amount кредитов и пишет транзакцию spend.
// Если кредитов не хватает — возвращает common.ErrInsufficientCredits,
// баланс не меняется.
func (l *Ledger) Debit(ctx context.Context, userID, amount int64, description, relatedID string) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}

	m := l.userLock(userID)
	m.Lock()
	defer m.Unlock()

	balance, err := l.store.Apply(ctx, userID, -amount, TxSpend, description, relatedID)
	if err != nil {
		if errors.Is(err, common.ErrInsufficientCredits) {
			log.WithFields(log.Fields{
				"user_id": userID,
				"amount":  amount,
			}).Info("Недостаточно кредитов для списания")
		}
		return 0, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"amount":  amount,
		"balance": balance,
	}).Info("Кредиты списаны")
	return balance, nil
}

// Credit начисляет кредиты: покупка, бонус или возврат.
func (l *Ledger) Credit(ctx context.Context, userID int64, txType TxType, amount int64, description, relatedID string) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}
	if !txType.IsCredit() {
		return 0, common.ErrInvalidTxType
	}

	m := l.userLock(userID)
	m.Lock()
	defer m.Unlock()

	balance, err := l.store.Apply(ctx, userID, amount, txType, description, relatedID)
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"type":    txType,
		"amount":  amount,
		"balance": balance,
	}).Info("Кредиты начислены")
	return balance, nil
}

// History возвращает последние транзакции пользователя.
func (l *Ledger) History(ctx context.Context, userID int64, limit int) ([]*Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return l.store.Transactions(ctx, userID, limit)
}
