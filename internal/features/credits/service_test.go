package credits

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koeurnDev/EZA-POST-sub000/internal/common"
)

// memStore — хранилище в памяти. Чтение и запись баланса разнесены
// намеренно: без мьютекса пользователя в Ledger параллельные операции
// теряли бы обновления.
type memStore struct {
	mu       sync.Mutex
	balances map[int64]int64
	txs      []*Transaction
}

func newMemStore() *memStore {
	return &memStore{balances: make(map[int64]int64)}
}

func (s *memStore) GetBalance(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID], nil
}

func (s *memStore) Apply(_ context.Context, userID, amount int64, txType TxType, description, relatedID string) (int64, error) {
	s.mu.Lock()
	current := s.balances[userID]
	s.mu.Unlock()

	runtime.Gosched()

	if current+amount < 0 {
		return 0, fmt.Errorf("%w: нужно %d, есть %d", common.ErrInsufficientCredits, -amount, current)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = current + amount
	s.txs = append(s.txs, &Transaction{
		ID:          int64(len(s.txs) + 1),
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Balance:     current + amount,
		Description: description,
		RelatedID:   relatedID,
	})
	return current + amount, nil
}

func (s *memStore) Transactions(_ context.Context, userID int64, limit int) ([]*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Transaction
	for i := len(s.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.txs[i].UserID == userID {
			out = append(out, s.txs[i])
		}
	}
	return out, nil
}

func TestDebitInsufficientLeavesBalance(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	ledger := NewLedger(store)

	_, err := ledger.Credit(ctx, 1, TxPurchase, 10, "покупка", "order-1")
	require.NoError(t, err)

	_, err = ledger.Debit(ctx, 1, 15, "буст", "post-7")
	require.ErrorIs(t, err, common.ErrInsufficientCredits)

	balance, err := ledger.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)

	txs, err := ledger.History(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, txs, 1, "неудачное списание не пишет транзакцию")
}

func TestDebitWritesSpendTransaction(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(newMemStore())

	_, err := ledger.Credit(ctx, 5, TxBonus, 20, "бонус", "")
	require.NoError(t, err)

	balance, err := ledger.Debit(ctx, 5, 15, "буст", "post-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)

	txs, err := ledger.History(ctx, 5, 1)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, TxSpend, txs[0].Type)
	assert.Equal(t, int64(-15), txs[0].Amount)
	assert.Equal(t, int64(5), txs[0].Balance)
	assert.Equal(t, "post-1", txs[0].RelatedID)
}

func TestLedgerRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(newMemStore())

	_, err := ledger.Debit(ctx, 1, 0, "", "")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = ledger.Credit(ctx, 1, TxPurchase, -5, "", "")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = ledger.Credit(ctx, 1, TxSpend, 5, "", "")
	assert.ErrorIs(t, err, common.ErrInvalidTxType)
}

func TestRunningSumMatchesBalance(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	ledger := NewLedger(store)

	for _, userID := range []int64{1, 2} {
		_, err := ledger.Credit(ctx, userID, TxPurchase, 100, "покупка", "")
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := int64(1 + i%2)
			if i%3 == 0 {
				_, _ = ledger.Credit(ctx, userID, TxRefund, 2, "возврат", "")
				return
			}
			_, _ = ledger.Debit(ctx, userID, 3, "буст", "")
		}(i)
	}
	wg.Wait()

	for _, userID := range []int64{1, 2} {
		balance, err := ledger.GetBalance(ctx, userID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, balance, int64(0))

		var sum, last int64
		for _, tx := range store.txs {
			if tx.UserID != userID {
				continue
			}
			sum += tx.Amount
			last = tx.Balance
			assert.Equal(t, sum, tx.Balance, "снимок баланса равен сумме журнала")
		}
		assert.Equal(t, balance, sum)
		assert.Equal(t, balance, last)
	}
}
