// Package credits управляет предоплаченными кредитами пользователей.
// Один кредит оплачивает одно реальное действие буста.
// models.go описывает структуры для балансов и журнала транзакций.
package credits

import "time"

// Balance представляет баланс пользователя.
// Каждый пользователь имеет ровно одну запись в таблице credit_balances.
type Balance struct {
	UserID     int64     `db:"user_id" json:"userId"`
	Balance    int64     `db:"balance" json:"balance"`
	TotalSpent int64     `db:"total_spent" json:"totalSpent"` // Сколько всего потрачено на бусты
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// Transaction — неизменяемая запись журнала.
// Сумма amount со знаком: списания отрицательные, начисления положительные.
// Balance — снимок баланса сразу после операции.
type Transaction struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"userId"`
	Type        TxType    `db:"type" json:"type"`
	Amount      int64     `db:"amount" json:"amount"`
	Balance     int64     `db:"balance" json:"balance"`
	Description string    `db:"description" json:"description"`
	RelatedID   string    `db:"related_id" json:"relatedId,omitempty"` // ID буста или заказа
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// TxType — тип транзакции.
type TxType string

// Допустимые типы транзакций
const (
	TxPurchase TxType = "purchase" // Покупка кредитов
	TxSpend    TxType = "spend"    // Оплата реального буста
	TxRefund   TxType = "refund"   // Возврат за несостоявшийся буст
	TxBonus    TxType = "bonus"    // Бонус
)

// IsCredit сообщает, увеличивает ли тип транзакции баланс.
func (t TxType) IsCredit() bool {
	switch t {
	case TxPurchase, TxRefund, TxBonus:
		return true
	}
	return false
}
