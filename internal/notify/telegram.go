// Package notify отправляет в Telegram сообщения об окончании бустов.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"github.com/koeurnDev/EZA-POST-sub000/internal/common"
	"github.com/koeurnDev/EZA-POST-sub000/internal/features/boost"
)

// Sender — часть telego.Bot, которой пользуется уведомитель.
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// Telegram пишет итог буста в служебный чат.
// Без токена уведомления просто не отправляются.
type Telegram struct {
	sender Sender
	chatID int64
}

// NewTelegram создаёт уведомитель. Пустой токен — уведомления выключены.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" {
		log.Info("TELEGRAM_BOT_TOKEN не задан, уведомления выключены")
		return &Telegram{}, nil
	}
	bot, err := telego.NewBot(token, telego.WithDiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram-бота: %w", err)
	}
	return &Telegram{sender: bot, chatID: chatID}, nil
}

// NewTelegramWithSender — для тестов и своих клиентов.
func NewTelegramWithSender(sender Sender, chatID int64) *Telegram {
	return &Telegram{sender: sender, chatID: chatID}
}

// BoostFinished отправляет итог. Ошибка отправки только логируется:
// буст уже завершён, и уведомление его не откатывает.
func (t *Telegram) BoostFinished(ctx context.Context, bp *boost.BoostedPost) {
	if t.sender == nil {
		return
	}
	msg := tu.Message(tu.ID(t.chatID), FormatBoost(bp)).WithParseMode(telego.ModeHTML)
	if _, err := t.sender.SendMessage(ctx, msg); err != nil {
		log.WithError(err).WithField("boosted_post_id", bp.ID).Warn("Не удалось отправить уведомление о бусте")
	}
}

// FormatBoost собирает текст сообщения.
func FormatBoost(bp *boost.BoostedPost) string {
	var sb strings.Builder

	switch bp.Status {
	case boost.StatusCompleted:
		sb.WriteString("✅ <b>Буст завершён</b>\n")
	case boost.StatusFailed:
		sb.WriteString("❌ <b>Буст не удался</b>\n")
	default:
		sb.WriteString("ℹ️ <b>Буст</b>\n")
	}

	fmt.Fprintf(&sb, "Пост #%d (пользователь %d)\n", bp.PostID, bp.UserID)
	if bp.RuleTriggered != "" {
		fmt.Fprintf(&sb, "Правило: %s\n", bp.RuleTriggered)
	}
	fmt.Fprintf(&sb, "❤️ %d  💬 %d  🔁 %d\n", bp.Metrics.LikesAdded, bp.Metrics.CommentsAdded, bp.Metrics.SharesAdded)

	if bp.RealBoost.Enabled {
		ok := 0
		for _, a := range bp.RealBoost.ActionsCompleted {
			if a.Success {
				ok++
			}
		}
		fmt.Fprintf(&sb, "Аккаунтов: %d, действий: %d из %d\n",
			len(bp.RealBoost.AccountsUsed), ok, len(bp.RealBoost.ActionsCompleted))
	}
	if bp.CreditsSpent > 0 {
		fmt.Fprintf(&sb, "Кредитов: %d\n", bp.CreditsSpent)
	}
	if bp.Error != "" {
		fmt.Fprintf(&sb, "Ошибка: %s\n", escape(bp.Error))
	}
	if bp.BoostEnded != nil {
		fmt.Fprintf(&sb, "🕐 %s", common.FormatDateTime(*bp.BoostEnded))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// escape экранирует текст для parse_mode=HTML.
func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
