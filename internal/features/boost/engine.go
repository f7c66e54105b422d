package boost

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/koeurnDev/EZA-POST-sub000/internal/common"
	"github.com/koeurnDev/EZA-POST-sub000/internal/features/accounts"
	"github.com/koeurnDev/EZA-POST-sub000/internal/features/credits"
	"github.com/koeurnDev/EZA-POST-sub000/internal/features/posts"
)

// Окно, в котором посты проверяются правилами
const lookback = 7 * 24 * time.Hour

// PostStore — посты пользователей.
type PostStore interface {
	FindRecentPublished(ctx context.Context, userID int64, since time.Time) ([]*posts.Post, error)
	AddMetrics(ctx context.Context, id int64, m posts.Metrics) error
}

// Enqueuer принимает задачи реального буста.
type Enqueuer interface {
	Enqueue(t Task) error
}

// EvaluatorOptions — зависимости, которые подменяются в тестах.
type EvaluatorOptions struct {
	Rand common.RandFunc
	Now  func() time.Time
}

// Evaluator проверяет правила пользователей и запускает бусты.
type Evaluator struct {
	store  Store
	posts  PostStore
	ledger Ledger
	queue  Enqueuer
	opts   EvaluatorOptions

	// Проверки не накладываются друг на друга
	running sync.Mutex
}

// NewEvaluator создаёт проверщик правил.
func NewEvaluator(store Store, postStore PostStore, ledger Ledger, queue Enqueuer, opts EvaluatorOptions) *Evaluator {
	if opts.Rand == nil {
		opts.Rand = common.DefaultRand
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Evaluator{store: store, posts: postStore, ledger: ledger, queue: queue, opts: opts}
}

// Run проходит по всем включённым правилам. Если предыдущий проход ещё идёт,
// новый пропускается. Ошибка одного пользователя не останавливает остальных.
func (e *Evaluator) Run(ctx context.Context) error {
	if !e.running.TryLock() {
		log.Warn("Предыдущая проверка правил ещё идёт, пропускаем")
		return nil
	}
	defer e.running.Unlock()

	start := time.Now()
	rules, err := e.store.FindEnabledRules(ctx)
	if err != nil {
		return fmt.Errorf("не удалось получить правила: %w", err)
	}

	boosted := 0
	for _, br := range rules {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := e.evaluateUser(ctx, br)
		if err != nil {
			log.WithError(err).WithField("user_id", br.UserID).Error("Ошибка проверки постов пользователя")
			continue
		}
		boosted += n
	}

	log.WithFields(log.Fields{
		"users":    len(rules),
		"boosted":  boosted,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Проверка правил буста завершена")
	return nil
}

// evaluateUser применяет правила пользователя к его свежим постам.
// Возвращает число запущенных бустов.
func (e *Evaluator) evaluateUser(ctx context.Context, br *BoostRule) (int, error) {
	now := e.opts.Now()
	list, err := e.posts.FindRecentPublished(ctx, br.UserID, now.Add(-lookback))
	if err != nil {
		return 0, err
	}
	covered, err := e.store.CoveredPostIDs(ctx, br.UserID)
	if err != nil {
		return 0, err
	}

	boosted := 0
	for _, p := range list {
		if covered[p.ID] {
			continue
		}
		rule, ok := FirstMatch(br.Rules, p, now)
		if !ok {
			continue
		}
		if err := e.boostPost(ctx, br, rule, p); err != nil {
			if errors.Is(err, common.ErrAlreadyBoosted) {
				continue
			}
			log.WithError(err).WithField("post_id", p.ID).Error("Не удалось запустить буст поста")
			continue
		}
		boosted++
	}
	return boosted, nil
}

func (e *Evaluator) newBoostedPost(br *BoostRule, rule Rule, p *posts.Post) *BoostedPost {
	return &BoostedPost{
		PostID:        p.ID,
		UserID:        br.UserID,
		Platform:      p.Platform,
		PostURL:       p.URL,
		Status:        StatusActive,
		RuleTriggered: rule.Describe(),
		Actions:       rule.Actions,
		Targets:       rule.Targets,
		RealBoost:     RealBoostState{Enabled: br.RealBoost.Enabled},
		BoostStarted:  e.opts.Now(),
	}
}

// boostPost применяет сработавшее правило к посту.
func (e *Evaluator) boostPost(ctx context.Context, br *BoostRule, rule Rule, p *posts.Post) error {
	bp := e.newBoostedPost(br, rule, p)
	if br.RealBoost.Enabled {
		return e.realBoost(ctx, br, rule, p, bp)
	}
	return e.simulatedBoost(ctx, rule, p, bp)
}

// realBoost списывает кредиты и ставит задачу в очередь.
// Нехватка кредитов — запись failed, очередь не трогается.
func (e *Evaluator) realBoost(ctx context.Context, br *BoostRule, rule Rule, p *posts.Post, bp *BoostedPost) error {
	cost := rule.Cost()
	logger := log.WithFields(log.Fields{"user_id": br.UserID, "post_id": p.ID, "cost": cost})

	desc := fmt.Sprintf("Real boost for post %d (%d actions)", p.ID, cost)
	balance, err := e.ledger.Debit(ctx, br.UserID, cost, desc, strconv.FormatInt(p.ID, 10))
	if errors.Is(err, common.ErrInsufficientCredits) {
		now := e.opts.Now()
		bp.Status = StatusFailed
		bp.Error = errTextInsufficientCredits
		bp.BoostEnded = &now
		if err := e.store.CreateBoostedPost(ctx, bp); err != nil {
			return err
		}
		logger.Warn("Недостаточно кредитов для реального буста")
		return nil
	}
	if err != nil {
		return fmt.Errorf("списание кредитов: %w", err)
	}

	bp.CreditsSpent = cost
	if err := e.store.CreateBoostedPost(ctx, bp); err != nil {
		// Запись не создана, кредиты надо вернуть
		e.refund(ctx, br.UserID, cost, p.ID, err)
		return err
	}
	logger.WithField("balance", balance).Info("Кредиты списаны, буст поставлен в очередь")

	if err := e.queue.Enqueue(taskFor(bp, br.RealBoost)); err != nil {
		// Запись остаётся active и подхватится Resume при следующем старте
		logger.WithError(err).Warn("Очередь не приняла задачу")
	}
	return nil
}

func (e *Evaluator) refund(ctx context.Context, userID, amount, postID int64, cause error) {
	desc := fmt.Sprintf("Refund for post %d: %v", postID, cause)
	if _, err := e.ledger.Credit(ctx, userID, credits.TxRefund, amount, desc, strconv.FormatInt(postID, 10)); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Не удалось вернуть кредиты")
	}
}

// simulatedBoost сразу дописывает метрики поста и закрывает буст.
func (e *Evaluator) simulatedBoost(ctx context.Context, rule Rule, p *posts.Post, bp *BoostedPost) error {
	added := Simulate(rule, e.opts.Rand)
	now := e.opts.Now()
	bp.Status = StatusCompleted
	bp.Metrics = fromPost(added)
	bp.BoostEnded = &now

	if err := e.store.CreateBoostedPost(ctx, bp); err != nil {
		return err
	}
	if err := e.posts.AddMetrics(ctx, p.ID, added); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"post_id":  p.ID,
		"likes":    added.Likes,
		"comments": added.Comments,
		"shares":   added.Shares,
	}).Info("Симулированный буст применён")
	return nil
}

// Resume ставит в очередь активные реальные бусты, задачи которых
// потерялись при перезапуске.
func (e *Evaluator) Resume(ctx context.Context) (int, error) {
	active, err := e.store.ListActiveReal(ctx)
	if err != nil {
		return 0, err
	}

	resumed := 0
	for _, bp := range active {
		settings := DefaultRealBoost()
		if br, err := e.store.GetRules(ctx, bp.UserID); err == nil {
			settings = br.RealBoost
		}
		if err := e.queue.Enqueue(taskFor(bp, settings)); err != nil {
			return resumed, err
		}
		resumed++
	}
	if resumed > 0 {
		log.WithField("count", resumed).Info("Незавершённые бусты возвращены в очередь")
	}
	return resumed, nil
}

func taskFor(bp *BoostedPost, s RealBoostSettings) Task {
	platform := accounts.Platform(bp.Platform)
	if !platform.Valid() {
		platform = accounts.PlatformTikTok
	}
	return Task{
		BoostedPostID:        bp.ID,
		UserID:               bp.UserID,
		Platform:             platform,
		PostURL:              bp.PostURL,
		Actions:              bp.Actions,
		MaxActionsPerAccount: s.MaxActionsPerAccount,
		CooldownHours:        s.CooldownHours,
		DelayRange:           s.DelayRange,
	}
}
