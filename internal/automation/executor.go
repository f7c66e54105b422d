package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/koeurnDev/EZA-POST-sub000/internal/common"
	"github.com/koeurnDev/EZA-POST-sub000/internal/config"
	"github.com/koeurnDev/EZA-POST-sub000/internal/features/accounts"
)

// LoginStore сохраняет результат логина (статус и сессию).
type LoginStore interface {
	SaveLogin(ctx context.Context, a *accounts.Account) error
}

// Vault расшифровывает пароль аккаунта.
type Vault interface {
	Decrypt(a *accounts.Account) (string, error)
}

// Options — настройки исполнителя.
type Options struct {
	NavigationTimeout time.Duration
	ElementTimeout    time.Duration
	Rand              common.RandFunc
	Delay             common.Delay
	Now               func() time.Time
}

// Executor выполняет действия в браузере от имени аккаунта.
// Ни один метод не возвращает ошибку и не паникует наружу: результат — bool.
type Executor struct {
	pool  *SessionPool
	store LoginStore
	vault Vault
	site  config.SiteConfig
	opts  Options
}

var (
	errNotLoggedIn = errors.New("после входа нет признака авторизации")
	errNoSelector  = errors.New("селектор не настроен")
)

// Фразы для комментариев
var commentPhrases = []string{
	"🔥🔥🔥",
	"Amazing! ❤️",
	"Love this! 😍",
	"So good! 👏",
	"Nice! 👍",
	"Great content! 🎉",
	"Awesome! ⭐",
	"Perfect! 💯",
	"Beautiful! ✨",
	"Incredible! 🙌",
}

// NewExecutor создаёт исполнитель.
func NewExecutor(pool *SessionPool, store LoginStore, vault Vault, site config.SiteConfig, opts Options) *Executor {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	if opts.ElementTimeout <= 0 {
		opts.ElementTimeout = 10 * time.Second
	}
	if opts.Rand == nil {
		opts.Rand = common.DefaultRand
	}
	if opts.Delay == nil {
		opts.Delay = common.Sleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Executor{pool: pool, store: store, vault: vault, site: site, opts: opts}
}

// RandomComment выбирает случайную фразу для комментария.
func (e *Executor) RandomComment() string {
	return commentPhrases[common.Intn(e.opts.Rand, len(commentPhrases))]
}

// EncodeCookies — см. пакетную EncodeCookies.
func (e *Executor) EncodeCookies(raw json.RawMessage) ([]byte, error) {
	return EncodeCookies(raw)
}

// CloseSession закрывает браузер аккаунта.
func (e *Executor) CloseSession(accountID int64) error {
	return e.pool.Close(accountID)
}

// Login входит в аккаунт: сначала пробует сохранённую сессию, затем логин
// и пароль. Успех — статус active и свежая сессия, неудача — статус error.
func (e *Executor) Login(ctx context.Context, a *accounts.Account) bool {
	var fresh []byte
	ok := e.withPage(ctx, a, "login", func(ctx context.Context, page Page) error {
		restored, err := e.restoreSession(ctx, page, a)
		if err != nil {
			log.WithError(err).WithField("account_id", a.ID).Debug("Сохранённая сессия не подошла")
		}
		if restored {
			return nil
		}
		fresh, err = e.credentialLogin(ctx, page, a)
		return err
	})

	now := e.opts.Now()
	if ok {
		if fresh != nil {
			a.Session = fresh
			a.CookiesUpdated = &now
		}
		a.LoginSucceeded(now)
	} else {
		a.LoginFailed()
	}
	if err := e.store.SaveLogin(ctx, a); err != nil {
		log.WithError(err).WithField("account_id", a.ID).Error("Не удалось сохранить результат логина")
	}

	log.WithFields(log.Fields{
		"account_id": a.ID,
		"username":   a.Username,
		"success":    ok,
	}).Info("Попытка входа в аккаунт")
	return ok
}

// restoreSession подставляет cookies из блоба и проверяет признак авторизации.
func (e *Executor) restoreSession(ctx context.Context, page Page, a *accounts.Account) (bool, error) {
	if len(a.Session) == 0 || e.site.LoggedInMarker == "" {
		return false, nil
	}
	if err := e.navigate(ctx, page, e.site.HomeURL); err != nil {
		return false, err
	}
	if err := e.pause(ctx, 2*time.Second, 4*time.Second); err != nil {
		return false, err
	}
	return page.Has(e.site.LoggedInMarker)
}

// credentialLogin вводит логин и пароль «по-человечески» и возвращает новый блоб сессии.
func (e *Executor) credentialLogin(ctx context.Context, page Page, a *accounts.Account) ([]byte, error) {
	if e.site.UsernameInput == "" || e.site.PasswordInput == "" || e.site.SubmitButton == "" {
		return nil, fmt.Errorf("%w: форма логина", errNoSelector)
	}
	password, err := e.vault.Decrypt(a)
	if err != nil {
		return nil, fmt.Errorf("расшифровка пароля: %w", err)
	}
	if password == "" {
		return nil, errors.New("у аккаунта нет пароля, только cookies")
	}

	if err := e.navigate(ctx, page, e.site.LoginURL); err != nil {
		return nil, err
	}
	if err := e.pause(ctx, 2*time.Second, 4*time.Second); err != nil {
		return nil, err
	}
	if e.site.LoginEntry != "" {
		if err := page.Click(ctx, e.site.LoginEntry, e.opts.ElementTimeout); err != nil {
			return nil, err
		}
		if err := e.pause(ctx, time.Second, 2*time.Second); err != nil {
			return nil, err
		}
	}

	if err := e.humanType(ctx, page, e.site.UsernameInput, a.Username); err != nil {
		return nil, err
	}
	if err := e.pause(ctx, 500*time.Millisecond, time.Second); err != nil {
		return nil, err
	}
	if err := e.humanType(ctx, page, e.site.PasswordInput, password); err != nil {
		return nil, err
	}
	if err := e.pause(ctx, time.Second, 2*time.Second); err != nil {
		return nil, err
	}
	if err := page.Click(ctx, e.site.SubmitButton, e.opts.ElementTimeout); err != nil {
		return nil, err
	}
	if err := e.pause(ctx, 3*time.Second, 5*time.Second); err != nil {
		return nil, err
	}

	if e.site.LoggedInMarker != "" {
		has, err := page.Has(e.site.LoggedInMarker)
		if err != nil {
			return nil, err
		}
		if !has {
			return nil, errNotLoggedIn
		}
	}

	cookies, err := page.Cookies()
	if err != nil {
		return nil, fmt.Errorf("чтение cookies: %w", err)
	}
	return encodeSession(cookies)
}

// Like ставит лайк. Уже лайкнутый пост — тоже успех.
func (e *Executor) Like(ctx context.Context, a *accounts.Account, postURL string) bool {
	return e.withPage(ctx, a, "like", func(ctx context.Context, page Page) error {
		if err := e.openPost(ctx, page, postURL); err != nil {
			return err
		}
		if e.site.LikedMarker != "" {
			liked, err := page.Has(e.site.LikedMarker)
			if err != nil {
				return err
			}
			if liked {
				log.WithField("account_id", a.ID).Debug("Пост уже лайкнут")
				return nil
			}
		}
		if e.site.LikeButton == "" {
			return fmt.Errorf("%w: лайк", errNoSelector)
		}
		if err := page.Click(ctx, e.site.LikeButton, e.opts.ElementTimeout); err != nil {
			return err
		}
		return e.pause(ctx, time.Second, 2*time.Second)
	})
}

// Comment оставляет комментарий text.
func (e *Executor) Comment(ctx context.Context, a *accounts.Account, postURL, text string) bool {
	return e.withPage(ctx, a, "comment", func(ctx context.Context, page Page) error {
		if e.site.CommentInput == "" || e.site.CommentSubmit == "" {
			return fmt.Errorf("%w: комментарий", errNoSelector)
		}
		if err := e.openPost(ctx, page, postURL); err != nil {
			return err
		}
		if err := e.humanType(ctx, page, e.site.CommentInput, text); err != nil {
			return err
		}
		if err := e.pause(ctx, time.Second, 2*time.Second); err != nil {
			return err
		}
		if err := page.Click(ctx, e.site.CommentSubmit, e.opts.ElementTimeout); err != nil {
			return err
		}
		return e.pause(ctx, 2*time.Second, 3*time.Second)
	})
}

// Share делает репост. ShareConfirm — второй шаг диалога, если он есть.
func (e *Executor) Share(ctx context.Context, a *accounts.Account, postURL string) bool {
	return e.withPage(ctx, a, "share", func(ctx context.Context, page Page) error {
		if e.site.ShareButton == "" {
			return fmt.Errorf("%w: репост", errNoSelector)
		}
		if err := e.openPost(ctx, page, postURL); err != nil {
			return err
		}
		if err := page.Click(ctx, e.site.ShareButton, e.opts.ElementTimeout); err != nil {
			return err
		}
		if e.site.ShareConfirm == "" {
			return nil
		}
		if err := e.pause(ctx, time.Second, 2*time.Second); err != nil {
			return err
		}
		if err := page.Click(ctx, e.site.ShareConfirm, e.opts.ElementTimeout); err != nil {
			return err
		}
		return e.pause(ctx, 500*time.Millisecond, time.Second)
	})
}

// withPage открывает вкладку в браузере аккаунта, подставляет cookies сессии
// и выполняет fn. Вкладка закрывается на любом пути, включая панику.
func (e *Executor) withPage(ctx context.Context, a *accounts.Account, op string, fn func(context.Context, Page) error) (ok bool) {
	logger := log.WithFields(log.Fields{"account_id": a.ID, "op": op})

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("Паника в автоматизации")
			ok = false
		}
	}()

	browser, release, err := e.pool.Acquire(ctx, a.ID)
	if err != nil {
		logger.WithError(err).Warn("Нет браузера для аккаунта")
		return false
	}
	defer release()

	page, err := browser.NewPage(ctx)
	if err != nil {
		logger.WithError(err).Warn("Не удалось открыть вкладку")
		return false
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.WithError(err).Debug("Ошибка закрытия вкладки")
		}
	}()

	cookies, err := decodeSession(a.Session)
	if err != nil {
		logger.WithError(err).Warn("Сессия аккаунта повреждена, продолжаем без неё")
		cookies = nil
	}
	if err := page.SetCookies(cookies); err != nil {
		logger.WithError(err).Warn("Не удалось подставить cookies")
	}

	if err := fn(ctx, page); err != nil {
		logger.WithError(err).Warn("Действие не выполнено")
		return false
	}
	return true
}

// openPost открывает пост и имитирует чтение: пауза и случайная прокрутка.
func (e *Executor) openPost(ctx context.Context, page Page, postURL string) error {
	if err := e.navigate(ctx, page, postURL); err != nil {
		return err
	}
	if err := e.pause(ctx, 2*time.Second, 4*time.Second); err != nil {
		return err
	}
	dy := 100 + e.opts.Rand()*300
	if err := page.Scroll(dy); err != nil {
		return err
	}
	return e.pause(ctx, 500*time.Millisecond, time.Second)
}

func (e *Executor) navigate(ctx context.Context, page Page, url string) error {
	if url == "" {
		return fmt.Errorf("%w: адрес страницы", errNoSelector)
	}
	return page.Navigate(ctx, url, e.opts.NavigationTimeout)
}

// humanType кликает по полю и вводит текст по одному символу
// с паузой 50–150 мс между нажатиями.
func (e *Executor) humanType(ctx context.Context, page Page, selector, text string) error {
	if err := page.Click(ctx, selector, e.opts.ElementTimeout); err != nil {
		return err
	}
	for _, r := range text {
		if err := page.Input(ctx, selector, string(r), e.opts.ElementTimeout); err != nil {
			return err
		}
		if err := e.pause(ctx, 50*time.Millisecond, 150*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) pause(ctx context.Context, min, max time.Duration) error {
	return e.opts.Delay(ctx, common.Between(e.opts.Rand, min, max))
}
