package automation

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/koeurnDev/EZA-POST-sub000/internal/common"
)

// SessionPool держит по одному браузеру на аккаунт и переиспользует его между
// действиями. Одновременно открыто не больше max браузеров на весь процесс.
//
// Когда пул полон, закрывается самый давно использованный браузер без аренды.
// Если свободных нет, вызывающий ждёт слот (с учётом ctx).
type SessionPool struct {
	launcher Launcher
	max      int64

	sem *semaphore.Weighted // Слот = один открытый браузер

	mu       sync.Mutex
	ready    bool
	sessions map[int64]*session
	lru      *list.List // Front — самый свежий
	waiting  int
}

type session struct {
	accountID int64
	browser   Browser
	leases    int
	elem      *list.Element
	closed    bool
}

// NewSessionPool создаёт пул. До Init пул не выдаёт сессии.
func NewSessionPool(launcher Launcher, maxBrowsers int) *SessionPool {
	if maxBrowsers <= 0 {
		maxBrowsers = 3
	}
	return &SessionPool{launcher: launcher, max: int64(maxBrowsers)}
}

// Init готовит пул к работе. Повторный вызов после Shutdown открывает пул заново.
func (p *SessionPool) Init(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ready {
		return nil
	}
	p.sem = semaphore.NewWeighted(p.max)
	p.sessions = make(map[int64]*session)
	p.lru = list.New()
	p.ready = true

	log.WithField("max_browsers", p.max).Info("Пул браузерных сессий запущен")
	return nil
}

// Shutdown закрывает все браузеры. После него Acquire возвращает ErrPoolClosed.
func (p *SessionPool) Shutdown() {
	p.mu.Lock()
	if !p.ready {
		p.mu.Unlock()
		return
	}
	p.ready = false
	all := make([]*session, 0, len(p.sessions))
	for _, s := range p.sessions {
		s.closed = true
		all = append(all, s)
	}
	p.sessions = nil
	p.lru = nil
	sem := p.sem
	p.mu.Unlock()

	for _, s := range all {
		p.closeBrowser(s)
		// Будим тех, кто ждёт слот: они увидят, что пул закрыт
		sem.Release(1)
	}
	log.WithField("closed", len(all)).Info("Пул браузерных сессий остановлен")
}

// Acquire выдаёт браузер аккаунта, запуская его при необходимости.
// release обязательно вызвать, когда вкладка закрыта.
func (p *SessionPool) Acquire(ctx context.Context, accountID int64) (Browser, func(), error) {
	for {
		p.mu.Lock()
		if !p.ready {
			p.mu.Unlock()
			return nil, nil, common.ErrPoolClosed
		}

		if s, ok := p.sessions[accountID]; ok {
			s.leases++
			p.lru.MoveToFront(s.elem)
			p.mu.Unlock()
			return s.browser, p.releaseFunc(s), nil
		}

		sem := p.sem
		if sem.TryAcquire(1) {
			p.mu.Unlock()
			return p.launch(ctx, accountID)
		}

		if victim := p.evictIdleLocked(); victim != nil {
			p.mu.Unlock()
			p.closeBrowser(victim)
			sem.Release(1)
			continue
		}

		p.waiting++
		p.mu.Unlock()

		err := sem.Acquire(ctx, 1)

		p.mu.Lock()
		p.waiting--
		p.mu.Unlock()
		if err != nil {
			return nil, nil, err
		}
		// Слот получен, но пока ждали, браузер аккаунта мог появиться
		sem.Release(1)
	}
}

// launch запускает браузер под уже занятый слот.
func (p *SessionPool) launch(ctx context.Context, accountID int64) (Browser, func(), error) {
	browser, err := p.launcher.Launch(ctx)
	if err != nil {
		p.releaseSlot()
		return nil, nil, fmt.Errorf("не удалось запустить браузер: %w", err)
	}

	p.mu.Lock()
	if !p.ready {
		p.mu.Unlock()
		_ = browser.Close()
		return nil, nil, common.ErrPoolClosed
	}
	if s, ok := p.sessions[accountID]; ok {
		// Параллельный Acquire успел раньше
		s.leases++
		p.lru.MoveToFront(s.elem)
		p.mu.Unlock()
		_ = browser.Close()
		p.sem.Release(1)
		return s.browser, p.releaseFunc(s), nil
	}

	s := &session{accountID: accountID, browser: browser, leases: 1}
	s.elem = p.lru.PushFront(s)
	p.sessions[accountID] = s
	open := len(p.sessions)
	p.mu.Unlock()

	log.WithFields(log.Fields{"account_id": accountID, "open": open}).Debug("Запущен браузер аккаунта")
	return browser, p.releaseFunc(s), nil
}

func (p *SessionPool) releaseSlot() {
	p.mu.Lock()
	sem := p.sem
	p.mu.Unlock()
	if sem != nil {
		sem.Release(1)
	}
}

// releaseFunc возвращает функцию снятия аренды. Если кто-то ждёт слот,
// освободившийся браузер сразу закрывается и слот уходит ожидающему.
func (p *SessionPool) releaseFunc(s *session) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			s.leases--
			if s.closed || s.leases > 0 || p.waiting == 0 || !p.ready {
				p.mu.Unlock()
				return
			}
			p.removeLocked(s)
			sem := p.sem
			p.mu.Unlock()

			p.closeBrowser(s)
			sem.Release(1)
		})
	}
}

// evictIdleLocked вынимает из пула самый давно использованный браузер без аренды.
func (p *SessionPool) evictIdleLocked() *session {
	for e := p.lru.Back(); e != nil; e = e.Prev() {
		s := e.Value.(*session)
		if s.leases == 0 {
			p.removeLocked(s)
			return s
		}
	}
	return nil
}

func (p *SessionPool) removeLocked(s *session) {
	s.closed = true
	p.lru.Remove(s.elem)
	delete(p.sessions, s.accountID)
}

// Close закрывает браузер аккаунта (например, после удаления аккаунта).
func (p *SessionPool) Close(accountID int64) error {
	p.mu.Lock()
	if !p.ready {
		p.mu.Unlock()
		return nil
	}
	s, ok := p.sessions[accountID]
	if !ok {
		p.mu.Unlock()
		return nil
	}
	p.removeLocked(s)
	sem := p.sem
	p.mu.Unlock()

	err := s.browser.Close()
	sem.Release(1)
	return err
}

// Open возвращает число открытых браузеров.
func (p *SessionPool) Open() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

func (p *SessionPool) closeBrowser(s *session) {
	if err := s.browser.Close(); err != nil {
		log.WithError(err).WithField("account_id", s.accountID).Warn("Ошибка закрытия браузера")
	}
}
