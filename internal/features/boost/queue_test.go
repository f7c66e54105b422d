package boost

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koeurnDev/EZA-POST-sub000/internal/common"
	"github.com/koeurnDev/EZA-POST-sub000/internal/features/accounts"
	"github.com/koeurnDev/EZA-POST-sub000/internal/features/credits"
)

type queueEnv struct {
	store    *memStore
	pool     *fakePool
	exec     *fakeExec
	ledger   *fakeLedger
	notifier *recordingNotifier
	delay    *recordingDelay
	queue    *Queue
}

func newQueueEnv(t *testing.T, accs ...*accounts.Account) *queueEnv {
	t.Helper()
	env := &queueEnv{
		store:    newMemStore(),
		pool:     &fakePool{accounts: accs},
		exec:     &fakeExec{fail: map[ActionKind]bool{}, loginFail: map[int64]bool{}},
		ledger:   newFakeLedger(1, 0),
		notifier: &recordingNotifier{},
		delay:    &recordingDelay{},
	}
	env.queue = NewQueue(env.store, env.pool, env.exec, env.ledger, env.notifier, QueueOptions{
		Rand:  fixedRand(0.5),
		Delay: env.delay.Delay,
		Now:   fixedNow,
	})
	t.Cleanup(env.queue.Close)
	return env
}

// activeBoost создаёт активный реальный буст и задачу для него.
func (env *queueEnv) activeBoost(t *testing.T, postID, spent int64, actions ...ActionKind) Task {
	t.Helper()
	bp := &BoostedPost{
		PostID:       postID,
		UserID:       1,
		Platform:     "tiktok",
		PostURL:      "https://site.test/p/" + strconv.FormatInt(postID, 10),
		Status:       StatusActive,
		Actions:      actions,
		RealBoost:    RealBoostState{Enabled: true},
		CreditsSpent: spent,
		BoostStarted: now,
	}
	require.NoError(t, env.store.CreateBoostedPost(context.Background(), bp))
	return taskFor(bp, DefaultRealBoost())
}

// runAll ставит задачи, ждёт, пока очередь опустеет, и останавливает её.
func (env *queueEnv) runAll(t *testing.T, tasks ...Task) {
	t.Helper()
	for _, task := range tasks {
		require.NoError(t, env.queue.Enqueue(task))
	}
	require.Eventually(t, func() bool {
		return !env.queue.Status().Processing
	}, 2*time.Second, 5*time.Millisecond)
	env.queue.Close()
}

func TestQueueCompletesDespiteFailedAction(t *testing.T) {
	env := newQueueEnv(t, activeAccount(1), activeAccount(2), activeAccount(3))
	env.exec.fail[ActionComment] = true
	task := env.activeBoost(t, 10, 6, ActionLike, ActionComment)

	env.runAll(t, task)

	bp := env.store.get(task.BoostedPostID)
	assert.Equal(t, StatusCompleted, bp.Status)
	assert.Empty(t, bp.Error)
	require.NotNil(t, bp.BoostEnded)

	// rand 0.5: два аккаунта из трёх, порядок после перемешивания 1, 3
	assert.Equal(t, []int64{1, 3}, bp.RealBoost.AccountsUsed)
	require.Len(t, bp.RealBoost.ActionsCompleted, 4)
	for i, rec := range bp.RealBoost.ActionsCompleted {
		if rec.Action == ActionComment {
			assert.False(t, rec.Success, i)
			assert.Equal(t, "comment failed", rec.Error)
		} else {
			assert.True(t, rec.Success, i)
			assert.Empty(t, rec.Error)
		}
	}
	assert.Equal(t, Metrics{LikesAdded: 2}, bp.Metrics)
	assert.Equal(t, []int64{1, 3}, env.pool.recorded)
	assert.Equal(t, 1, env.notifier.count())

	// Кредиты не возвращаются за частичный успех
	_, txs := env.ledger.snapshot(1)
	assert.Empty(t, txs)
}

func TestQueuePacing(t *testing.T) {
	env := newQueueEnv(t, activeAccount(1), activeAccount(2))
	task := env.activeBoost(t, 10, 6, ActionLike, ActionComment)

	env.runAll(t, task)

	// действие, аккаунт, действие, задача
	assert.Equal(t, []time.Duration{
		5500 * time.Millisecond,
		7500 * time.Millisecond,
		5500 * time.Millisecond,
		15 * time.Second,
	}, env.delay.snapshot())
	assert.Equal(t, []string{"like", "comment", "like", "comment"}, env.exec.log)
}

func TestQueueDelayRangeOverride(t *testing.T) {
	cases := []struct {
		name  string
		rng   DelayRange
		pause time.Duration
	}{
		{"range applied", DelayRange{Min: 4000, Max: 6000}, 5 * time.Second},
		{"below minimum ignored", DelayRange{Min: 2000, Max: 6000}, 5500 * time.Millisecond},
		{"inverted ignored", DelayRange{Min: 9000, Max: 4000}, 5500 * time.Millisecond},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newQueueEnv(t, activeAccount(1))
			task := env.activeBoost(t, 10, 0, ActionLike, ActionShare)
			task.DelayRange = tc.rng

			env.runAll(t, task)

			assert.Equal(t, []time.Duration{tc.pause, 15 * time.Second}, env.delay.snapshot())
		})
	}
}

func TestQueueNoAvailableAccountsRefunds(t *testing.T) {
	banned := activeAccount(1)
	banned.Status = accounts.StatusBanned
	exhausted := activeAccount(2)
	exhausted.ActionsToday = exhausted.DailyLimit
	env := newQueueEnv(t, banned, exhausted)
	task := env.activeBoost(t, 10, 6, ActionLike, ActionComment)

	env.runAll(t, task)

	bp := env.store.get(task.BoostedPostID)
	assert.Equal(t, StatusFailed, bp.Status)
	assert.Equal(t, "No available accounts", bp.Error)
	assert.Empty(t, env.exec.logins)

	balance, txs := env.ledger.snapshot(1)
	assert.Equal(t, int64(6), balance)
	require.Len(t, txs, 1)
	assert.Equal(t, credits.TxRefund, txs[0].Type)
	assert.Equal(t, int64(6), txs[0].Amount)
	assert.Equal(t, strconv.FormatInt(bp.ID, 10), txs[0].RelatedID)
	assert.Equal(t, 1, env.notifier.count())
}

func TestQueueLoginFailureSkipsAccount(t *testing.T) {
	env := newQueueEnv(t, activeAccount(1), activeAccount(2))
	env.exec.loginFail[1] = true
	task := env.activeBoost(t, 10, 6, ActionLike, ActionComment)

	env.runAll(t, task)

	bp := env.store.get(task.BoostedPostID)
	assert.Equal(t, StatusCompleted, bp.Status)
	assert.Equal(t, []int64{1, 2}, env.exec.logins)
	assert.Equal(t, []int64{2}, bp.RealBoost.AccountsUsed)
	require.Len(t, bp.RealBoost.ActionsCompleted, 2)
	for _, rec := range bp.RealBoost.ActionsCompleted {
		assert.Equal(t, int64(2), rec.AccountID)
	}
}

func TestQueueSkipsStoppedBoost(t *testing.T) {
	env := newQueueEnv(t, activeAccount(1))
	task := env.activeBoost(t, 10, 6, ActionLike)
	require.NoError(t, env.store.StopActive(context.Background(), 1, 10, now))

	env.runAll(t, task)

	assert.Zero(t, env.pool.listed)
	assert.Empty(t, env.exec.logins)
	assert.Zero(t, env.notifier.count())
	balance, _ := env.ledger.snapshot(1)
	assert.Zero(t, balance)
}

func TestQueueStopsAccountWhenQuotaExhausted(t *testing.T) {
	acc := activeAccount(1)
	acc.DailyLimit = 1
	env := newQueueEnv(t, acc)
	task := env.activeBoost(t, 10, 6, ActionLike, ActionComment, ActionShare)

	env.runAll(t, task)

	bp := env.store.get(task.BoostedPostID)
	assert.Equal(t, StatusCompleted, bp.Status)
	require.Len(t, bp.RealBoost.ActionsCompleted, 1)
	assert.Equal(t, 1, acc.ActionsToday)
	assert.Equal(t, accounts.StatusCooldown, acc.Status)
}

func TestQueueCapsActionsPerAccount(t *testing.T) {
	env := newQueueEnv(t, activeAccount(1))
	task := env.activeBoost(t, 10, 6, ActionLike, ActionComment, ActionShare)
	task.MaxActionsPerAccount = 2

	env.runAll(t, task)

	bp := env.store.get(task.BoostedPostID)
	assert.Len(t, bp.RealBoost.ActionsCompleted, 2)
}

func TestQueueRunsTasksOneAtATimeInOrder(t *testing.T) {
	env := newQueueEnv(t, activeAccount(1), activeAccount(2))
	var tasks []Task
	for i := int64(1); i <= 3; i++ {
		tasks = append(tasks, env.activeBoost(t, 10+i, 0, ActionLike, ActionShare))
	}

	env.runAll(t, tasks...)

	assert.Equal(t, []int64{tasks[0].BoostedPostID, tasks[1].BoostedPostID, tasks[2].BoostedPostID}, env.store.fetched)
	assert.Equal(t, 1, env.exec.maxActive)
	for _, task := range tasks {
		assert.Equal(t, StatusCompleted, env.store.get(task.BoostedPostID).Status)
	}
	assert.Equal(t, 3, env.notifier.count())
}

func TestQueueEnqueueAfterClose(t *testing.T) {
	env := newQueueEnv(t, activeAccount(1))
	env.queue.Close()

	err := env.queue.Enqueue(Task{BoostedPostID: 1})
	assert.ErrorIs(t, err, common.ErrQueueClosed)
	assert.Equal(t, QueueStatus{}, env.queue.Status())
}

func TestQueueCloseInterruptsPause(t *testing.T) {
	env := newQueueEnv(t, activeAccount(1), activeAccount(2))
	env.delay.gate = make(chan struct{})
	first := env.activeBoost(t, 10, 6, ActionLike, ActionComment)
	second := env.activeBoost(t, 11, 6, ActionLike)

	require.NoError(t, env.queue.Enqueue(first))
	require.NoError(t, env.queue.Enqueue(second))
	require.Eventually(t, func() bool {
		return len(env.delay.snapshot()) > 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, QueueStatus{QueueLength: 1, Processing: true}, env.queue.Status())

	env.queue.Close()

	// Прерванный буст остаётся active и подхватится при следующем старте
	assert.Equal(t, StatusActive, env.store.get(first.BoostedPostID).Status)
	assert.Equal(t, StatusActive, env.store.get(second.BoostedPostID).Status)
	assert.Equal(t, []int64{first.BoostedPostID}, env.store.fetched)
	assert.Equal(t, QueueStatus{}, env.queue.Status())
	_, txs := env.ledger.snapshot(1)
	assert.Empty(t, txs)
}
