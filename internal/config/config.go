// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
// Перед этим подхватывается .env (если он есть) через godotenv.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- HTTP ---
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	// Заголовок, в который gateway кладёт ID аутентифицированного пользователя
	HTTPUserHeader string `envconfig:"HTTP_USER_HEADER" default:"X-User-ID"`

	// --- Telegram (опционально, только уведомления) ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	// Чат, куда уходят сообщения об окончании бустов
	TelegramChatID int64 `envconfig:"TELEGRAM_CHAT_ID"`

	// --- Database ---
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"boost"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"eza_post"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"UTC"`

	// --- Boost engine ---
	// Расписание проверки правил (cron, 5 полей)
	BoostSweepSchedule string `envconfig:"BOOST_SWEEP_SCHEDULE" default:"*/5 * * * *"`
	// Ключ шифрования паролей аккаунтов
	BoostEncryptionKey string `envconfig:"BOOST_ENCRYPTION_KEY" required:"true"`
	BoostDefaultDailyLimit int `envconfig:"BOOST_DEFAULT_DAILY_LIMIT" default:"25"`
	// Лимит суточных действий для аккаунтов, импортированных через cookies
	BoostImportDailyLimit int `envconfig:"BOOST_IMPORT_DAILY_LIMIT" default:"50"`

	// --- Browser automation ---
	BoostMaxConcurrentBrowsers int           `envconfig:"BOOST_MAX_CONCURRENT_BROWSERS" default:"3"`
	BoostHeadless              bool          `envconfig:"BOOST_HEADLESS" default:"true"`
	BoostBrowserBin            string        `envconfig:"BOOST_BROWSER_BIN"`
	BoostNavigationTimeout     time.Duration `envconfig:"BOOST_NAVIGATION_TIMEOUT" default:"30s"`
	BoostElementTimeout        time.Duration `envconfig:"BOOST_ELEMENT_TIMEOUT" default:"10s"`

	// Адреса и селекторы целевой площадки (SITE_*). Зависят от сайта и меняются,
	// поэтому в коде их нет — только в окружении.
	Site SiteConfig `envconfig:"SITE"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"60"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// SiteConfig — URL и CSS-селекторы для Action Executor.
type SiteConfig struct {
	HomeURL        string `envconfig:"HOME_URL"`
	LoginURL       string `envconfig:"LOGIN_URL"`
	LoginEntry     string `envconfig:"SEL_LOGIN_ENTRY"`
	UsernameInput  string `envconfig:"SEL_USERNAME"`
	PasswordInput  string `envconfig:"SEL_PASSWORD"`
	SubmitButton   string `envconfig:"SEL_SUBMIT"`
	LoggedInMarker string `envconfig:"SEL_LOGGED_IN"`
	LikeButton     string `envconfig:"SEL_LIKE"`
	LikedMarker    string `envconfig:"SEL_LIKED"`
	CommentInput   string `envconfig:"SEL_COMMENT_INPUT"`
	CommentSubmit  string `envconfig:"SEL_COMMENT_SUBMIT"`
	ShareButton    string `envconfig:"SEL_SHARE"`
	ShareConfirm   string `envconfig:"SEL_SHARE_CONFIRM"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Location возвращает часовой пояс приложения (для cron и календарных суток).
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) Validate() error {
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if len(c.BoostEncryptionKey) < 16 {
		return fmt.Errorf("BOOST_ENCRYPTION_KEY должен быть не короче 16 символов")
	}
	if c.BoostMaxConcurrentBrowsers <= 0 {
		return fmt.Errorf("BOOST_MAX_CONCURRENT_BROWSERS должен быть > 0")
	}
	if c.BoostDefaultDailyLimit <= 0 || c.BoostImportDailyLimit <= 0 {
		return fmt.Errorf("суточные лимиты аккаунтов должны быть > 0")
	}
	// Шаги страницы ограничены 10–30 секундами
	if c.BoostNavigationTimeout < 10*time.Second || c.BoostNavigationTimeout > 30*time.Second {
		return fmt.Errorf("BOOST_NAVIGATION_TIMEOUT должен быть в пределах 10s–30s")
	}
	if c.BoostElementTimeout <= 0 {
		return fmt.Errorf("BOOST_ELEMENT_TIMEOUT должен быть > 0")
	}
	if c.TelegramBotToken != "" && c.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID обязателен, если задан TELEGRAM_BOT_TOKEN")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("некорректные RATE_LIMIT_REQUESTS/RATE_LIMIT_WINDOW")
	}
	return nil
}

// Load читает .env и переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	// .env необязателен: в контейнере переменные приходят снаружи
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
