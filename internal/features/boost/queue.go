package boost

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/koeurnDev/EZA-POST-sub000/internal/common"
	"github.com/koeurnDev/EZA-POST-sub000/internal/features/accounts"
	"github.com/koeurnDev/EZA-POST-sub000/internal/features/credits"
)

// Task — задача реального буста одного поста.
type Task struct {
	BoostedPostID        int64
	UserID               int64
	Platform             accounts.Platform
	PostURL              string
	Actions              []ActionKind
	MaxActionsPerAccount int
	CooldownHours        float64
	DelayRange           DelayRange
}

// AccountPool — то, что очереди нужно от менеджера аккаунтов.
type AccountPool interface {
	ListAvailable(ctx context.Context, userID int64, platform accounts.Platform) ([]*accounts.Account, error)
	RecordAction(ctx context.Context, a *accounts.Account, cooldownHours float64) error
}

// Executor — действия в браузере. Ни одно не возвращает ошибку.
type Executor interface {
	Login(ctx context.Context, a *accounts.Account) bool
	Like(ctx context.Context, a *accounts.Account, postURL string) bool
	Comment(ctx context.Context, a *accounts.Account, postURL, text string) bool
	Share(ctx context.Context, a *accounts.Account, postURL string) bool
	RandomComment() string
}

// Ledger — списание и возврат кредитов.
type Ledger interface {
	Debit(ctx context.Context, userID, amount int64, description, relatedID string) (int64, error)
	Credit(ctx context.Context, userID int64, txType credits.TxType, amount int64, description, relatedID string) (int64, error)
}

// Notifier сообщает об окончании буста. Может быть nil.
type Notifier interface {
	BoostFinished(ctx context.Context, bp *BoostedPost)
}

// Store — хранилище правил и бустов.
type Store interface {
	FindEnabledRules(ctx context.Context) ([]*BoostRule, error)
	GetRules(ctx context.Context, userID int64) (*BoostRule, error)
	CoveredPostIDs(ctx context.Context, userID int64) (map[int64]bool, error)
	CreateBoostedPost(ctx context.Context, bp *BoostedPost) error
	GetBoostedPost(ctx context.Context, id int64) (*BoostedPost, error)
	SaveProgress(ctx context.Context, bp *BoostedPost) error
	Finish(ctx context.Context, id int64, status Status, errText string, at time.Time) (bool, error)
	ListActiveReal(ctx context.Context) ([]*BoostedPost, error)
}

// Паузы, имитирующие человека
const (
	actionPauseMin  = 3 * time.Second
	actionPauseMax  = 8 * time.Second
	accountPauseMin = 5 * time.Second
	accountPauseMax = 10 * time.Second
	taskPauseMin    = 10 * time.Second
	taskPauseMax    = 20 * time.Second
)

// QueueOptions — зависимости очереди, которые подменяются в тестах.
type QueueOptions struct {
	Rand  common.RandFunc
	Delay common.Delay
	Now   func() time.Time
}

// QueueStatus — состояние очереди для API.
type QueueStatus struct {
	QueueLength int  `json:"queueLength"`
	Processing  bool `json:"processing"`
}

// Queue — очередь задач реального буста с одним обработчиком.
// Задачи выполняются строго по одной, в порядке поступления.
type Queue struct {
	store    Store
	pool     AccountPool
	exec     Executor
	ledger   Ledger
	notifier Notifier
	opts     QueueOptions

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	tasks      []Task
	processing bool
	closed     bool
}

// NewQueue создаёт очередь. notifier может быть nil.
func NewQueue(store Store, pool AccountPool, exec Executor, ledger Ledger, notifier Notifier, opts QueueOptions) *Queue {
	if opts.Rand == nil {
		opts.Rand = common.DefaultRand
	}
	if opts.Delay == nil {
		opts.Delay = common.Sleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		store:    store,
		pool:     pool,
		exec:     exec,
		ledger:   ledger,
		notifier: notifier,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Enqueue добавляет задачу и запускает обработчик, если он простаивает.
func (q *Queue) Enqueue(t Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return common.ErrQueueClosed
	}
	q.tasks = append(q.tasks, t)
	pending := len(q.tasks)

	if !q.processing {
		q.processing = true
		q.wg.Add(1)
		go q.drain()
	}

	log.WithFields(log.Fields{
		"boosted_post_id": t.BoostedPostID,
		"pending":         pending,
	}).Info("Задача буста добавлена в очередь")
	return nil
}

// Status возвращает длину очереди и признак обработки.
func (q *Queue) Status() QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStatus{QueueLength: len(q.tasks), Processing: q.processing}
}

// Close перестаёт принимать задачи, прерывает паузы и ждёт обработчик.
// Невыполненные задачи остаются active в БД и подхватываются Resume при старте.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	dropped := len(q.tasks)
	q.tasks = nil
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()

	if dropped > 0 {
		log.WithField("dropped", dropped).Warn("Очередь остановлена, задачи отложены до перезапуска")
	}
}

func (q *Queue) drain() {
	defer q.wg.Done()
	ctx := q.ctx

	for {
		q.mu.Lock()
		if len(q.tasks) == 0 || ctx.Err() != nil {
			q.processing = false
			q.mu.Unlock()
			log.Debug("Очередь буста пуста")
			return
		}
		t := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		q.process(ctx, t)

		// Пауза между задачами
		if err := q.pause(ctx, taskPauseMin, taskPauseMax); err != nil {
			q.mu.Lock()
			q.processing = false
			q.mu.Unlock()
			return
		}
	}
}

// process выполняет одну задачу.
func (q *Queue) process(ctx context.Context, t Task) {
	logger := log.WithFields(log.Fields{"boosted_post_id": t.BoostedPostID, "user_id": t.UserID})

	bp, err := q.store.GetBoostedPost(ctx, t.BoostedPostID)
	if err != nil {
		logger.WithError(err).Warn("Буст для задачи не найден, пропускаем")
		return
	}
	if bp.Status != StatusActive {
		logger.WithField("status", bp.Status).Info("Буст уже не активен, пропускаем задачу")
		return
	}

	available, err := q.pool.ListAvailable(ctx, t.UserID, t.Platform)
	if err != nil {
		logger.WithError(err).Error("Не удалось получить аккаунты")
		q.abandon(ctx, bp, err.Error())
		return
	}
	if len(available) == 0 {
		logger.Warn("Нет доступных аккаунтов")
		q.abandon(ctx, bp, common.ErrNoAvailableAccounts.Error())
		return
	}

	n := min(1+common.Intn(q.opts.Rand, MaxAccountsPerTask), len(available))
	common.Shuffle(q.opts.Rand, available)
	selected := available[:n]
	logger.WithField("accounts", n).Info("Начинаем реальный буст")

	for i, a := range selected {
		if i > 0 {
			if err := q.pause(ctx, accountPauseMin, accountPauseMax); err != nil {
				break
			}
		}
		q.runAccount(ctx, t, bp, a)
	}

	if ctx.Err() != nil {
		logger.Warn("Буст прерван остановкой сервиса")
		return
	}
	q.finish(ctx, bp, StatusCompleted, "")
}

// runAccount входит в аккаунт и выполняет действия задачи в случайном порядке.
func (q *Queue) runAccount(ctx context.Context, t Task, bp *BoostedPost, a *accounts.Account) {
	logger := log.WithFields(log.Fields{"boosted_post_id": bp.ID, "account_id": a.ID})

	if !q.exec.Login(ctx, a) {
		logger.Warn("Логин не удался, аккаунт пропущен")
		return
	}

	actions := append([]ActionKind(nil), t.Actions...)
	common.Shuffle(q.opts.Rand, actions)
	if t.MaxActionsPerAccount > 0 && len(actions) > t.MaxActionsPerAccount {
		actions = actions[:t.MaxActionsPerAccount]
	}

	for i, kind := range actions {
		if i > 0 {
			if err := q.actionPause(ctx, t); err != nil {
				break
			}
		}
		if !a.HasQuota() {
			logger.Info("Суточная квота аккаунта исчерпана")
			break
		}

		ok := q.execute(ctx, a, kind, t.PostURL)
		rec := ActionRecord{AccountID: a.ID, Action: kind, Timestamp: q.opts.Now(), Success: ok}
		if !ok {
			rec.Error = fmt.Sprintf("%s failed", kind)
		}
		bp.RealBoost.ActionsCompleted = append(bp.RealBoost.ActionsCompleted, rec)

		if ok {
			bp.Metrics.add(kind)
			if err := q.pool.RecordAction(ctx, a, t.CooldownHours); err != nil {
				logger.WithError(err).Error("Не удалось учесть действие аккаунта")
			}
		}
		logger.WithFields(log.Fields{"action": kind, "success": ok}).Info("Действие выполнено")
	}

	bp.RealBoost.markUsed(a.ID)
	if err := q.store.SaveProgress(ctx, bp); err != nil {
		logger.WithError(err).Error("Не удалось сохранить ход буста")
	}
}

func (q *Queue) execute(ctx context.Context, a *accounts.Account, kind ActionKind, postURL string) bool {
	switch kind {
	case ActionLike:
		return q.exec.Like(ctx, a, postURL)
	case ActionComment:
		return q.exec.Comment(ctx, a, postURL, q.exec.RandomComment())
	case ActionShare:
		return q.exec.Share(ctx, a, postURL)
	}
	return false
}

// abandon завершает буст ошибкой и возвращает списанные кредиты.
func (q *Queue) abandon(ctx context.Context, bp *BoostedPost, reason string) {
	if !q.finish(ctx, bp, StatusFailed, reason) {
		return
	}
	if bp.CreditsSpent <= 0 {
		return
	}

	desc := fmt.Sprintf("Refund for boost #%d: %s", bp.ID, reason)
	balance, err := q.ledger.Credit(ctx, bp.UserID, credits.TxRefund, bp.CreditsSpent, desc, strconv.FormatInt(bp.ID, 10))
	if err != nil {
		log.WithError(err).WithField("boosted_post_id", bp.ID).Error("Не удалось вернуть кредиты")
		return
	}
	log.WithFields(log.Fields{
		"boosted_post_id": bp.ID,
		"amount":          bp.CreditsSpent,
		"balance":         balance,
	}).Info("Кредиты возвращены")
}

// finish переводит буст в терминальный статус. Если пользователь уже
// остановил буст, статус не перезаписывается и возвращается false.
func (q *Queue) finish(ctx context.Context, bp *BoostedPost, status Status, reason string) bool {
	now := q.opts.Now()
	ok, err := q.store.Finish(ctx, bp.ID, status, reason, now)
	if err != nil {
		log.WithError(err).WithField("boosted_post_id", bp.ID).Error("Не удалось завершить буст")
		return false
	}
	if !ok {
		log.WithField("boosted_post_id", bp.ID).Info("Буст уже остановлен пользователем")
		return false
	}

	bp.Status = status
	bp.Error = reason
	bp.BoostEnded = &now
	log.WithFields(log.Fields{
		"boosted_post_id": bp.ID,
		"status":          status,
		"likes":           bp.Metrics.LikesAdded,
		"comments":        bp.Metrics.CommentsAdded,
		"shares":          bp.Metrics.SharesAdded,
	}).Info("Буст завершён")

	if q.notifier != nil {
		q.notifier.BoostFinished(ctx, bp)
	}
	return true
}

// actionPause — пауза между действиями. Диапазон из правила используется,
// только если его минимум не меньше 3 секунд.
func (q *Queue) actionPause(ctx context.Context, t Task) error {
	lo, hi := actionPauseMin, actionPauseMax
	if r := t.DelayRange; time.Duration(r.Min)*time.Millisecond >= actionPauseMin && r.Max >= r.Min {
		lo = time.Duration(r.Min) * time.Millisecond
		hi = time.Duration(r.Max) * time.Millisecond
	}
	return q.pause(ctx, lo, hi)
}

func (q *Queue) pause(ctx context.Context, lo, hi time.Duration) error {
	return q.opts.Delay(ctx, common.Between(q.opts.Rand, lo, hi))
}
