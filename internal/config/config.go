// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Discord ---
	DiscordToken string `envconfig:"DISCORD_TOKEN" required:"true"`
	// ID приложения и сервера для регистрации slash-команд.
	// Если один из них пуст — регистрация пропускается (бот продолжает работать).
	ClientID string `envconfig:"CLIENT_ID"`
	GuildID  string `envconfig:"GUILD_ID"`
	// Канал, в котором начисляются баллы за картинки.
	// Пустое значение отключает наблюдение и сканирование истории.
	ChannelID string `envconfig:"CHANNEL_ID"`
	// Роль за погашение награды «Perm Fee»
	VIPRoleID string `envconfig:"VIP_ROLE_ID" default:"1371247728646033550"`
	// Роль, выдаваемая при первой публикации картинки (пусто — отключено)
	AutoRoleID string `envconfig:"AUTO_ROLE_ID" default:"1350935336435449969"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"points_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`

	// --- Points ---
	// Стоимость погашения награды
	RedeemCost int64 `envconfig:"REDEEM_COST" default:"10"`
	// Пауза между сообщениями одного пользователя (анти-флуд)
	MessageCooldown time.Duration `envconfig:"MESSAGE_COOLDOWN" default:"2s"`

	// --- History scanner ---
	// Размер страницы истории: баланс между скоростью и rate-limit платформы
	ScanBatchSize int `envconfig:"SCAN_BATCH_SIZE" default:"50"`
	// Пауза между страницами
	ScanPagePause time.Duration `envconfig:"SCAN_PAGE_PAUSE" default:"200ms"`
	// Как часто отчитываться о прогрессе (в обработанных сообщениях)
	ScanProgressEvery int `envconfig:"SCAN_PROGRESS_EVERY" default:"500"`

	// --- Shutdown ---
	// Сколько ждать завершения начислений при остановке
	ShutdownDrainTimeout time.Duration `envconfig:"SHUTDOWN_DRAIN_TIMEOUT" default:"5s"`

	// --- Feature Flags ---
	FeaturePresenceEnabled bool `envconfig:"FEATURE_PRESENCE_ENABLED" default:"true"`
	FeatureAutoRoleEnabled bool `envconfig:"FEATURE_AUTO_ROLE_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	if c.RedeemCost <= 0 {
		return fmt.Errorf("REDEEM_COST должен быть > 0")
	}
	if c.ScanBatchSize <= 0 || c.ScanBatchSize > 100 {
		return fmt.Errorf("SCAN_BATCH_SIZE должен быть в диапазоне 1..100")
	}
	if c.ScanProgressEvery <= 0 {
		return fmt.Errorf("SCAN_PROGRESS_EVERY должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
