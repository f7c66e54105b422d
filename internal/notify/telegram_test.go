package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koeurnDev/EZA-POST-sub000/internal/features/boost"
)

type fakeSender struct {
	sent []*telego.SendMessageParams
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	f.sent = append(f.sent, params)
	return &telego.Message{}, f.err
}

func finished() *boost.BoostedPost {
	ended := time.Date(2026, 10, 19, 14, 30, 0, 0, time.UTC)
	return &boost.BoostedPost{
		ID:            5,
		PostID:        42,
		UserID:        7,
		Status:        boost.StatusCompleted,
		RuleTriggered: "time: 24h",
		Metrics:       boost.Metrics{LikesAdded: 2, CommentsAdded: 1},
		RealBoost: boost.RealBoostState{
			Enabled:      true,
			AccountsUsed: []int64{1, 2},
			ActionsCompleted: []boost.ActionRecord{
				{AccountID: 1, Action: boost.ActionLike, Success: true},
				{AccountID: 1, Action: boost.ActionComment, Success: true},
				{AccountID: 2, Action: boost.ActionLike, Success: true},
				{AccountID: 2, Action: boost.ActionShare, Success: false, Error: "share failed"},
			},
		},
		CreditsSpent: 9,
		BoostEnded:   &ended,
	}
}

func TestBoostFinishedSends(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegramWithSender(sender, -100123)

	n.BoostFinished(context.Background(), finished())

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, int64(-100123), msg.ChatID.ID)
	assert.Equal(t, telego.ModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "Буст завершён")
	assert.Contains(t, msg.Text, "Пост #42")
	assert.Contains(t, msg.Text, "действий: 3 из 4")
	assert.Contains(t, msg.Text, "Кредитов: 9")
	assert.Contains(t, msg.Text, "19.10.2026 14:30")
}

func TestBoostFinishedSendErrorIsLogged(t *testing.T) {
	sender := &fakeSender{err: errors.New("telegram down")}
	n := NewTelegramWithSender(sender, 1)

	assert.NotPanics(t, func() { n.BoostFinished(context.Background(), finished()) })
	assert.Len(t, sender.sent, 1)
}

func TestDisabledWithoutToken(t *testing.T) {
	n, err := NewTelegram("", 0)
	require.NoError(t, err)
	assert.NotPanics(t, func() { n.BoostFinished(context.Background(), finished()) })
}

func TestFormatFailedEscapesError(t *testing.T) {
	bp := &boost.BoostedPost{PostID: 1, Status: boost.StatusFailed, Error: "No <available> accounts"}

	text := FormatBoost(bp)
	assert.Contains(t, text, "Буст не удался")
	assert.Contains(t, text, "No &lt;available&gt; accounts")
	assert.NotContains(t, text, "Аккаунтов")
}
