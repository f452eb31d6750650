package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"UTC"`
	Port   int    `envconfig:"PORT" default:"8080"`

	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	AMQP struct {
		URL       string `envconfig:"AMQP_URL"`
		MailQueue string `envconfig:"MAIL_QUEUE" default:"outbound_emails"`
	} `envconfig:""`

	Identity struct {
		BaseURL  string        `envconfig:"IDENTITY_BASE_URL"`
		CacheTTL time.Duration `envconfig:"IDENTITY_CACHE_TTL" default:"15m"`
	} `envconfig:""`

	Digest struct {
		MaxBills        int `envconfig:"DIGEST_MAX_BILLS" default:"4"`
		MaxUsers        int `envconfig:"DIGEST_MAX_USERS" default:"4"`
		MaxBillsPerUser int `envconfig:"DIGEST_MAX_BILLS_PER_USER" default:"6"`
		Concurrency     int `envconfig:"DIGEST_CONCURRENCY" default:"8"`
	} `envconfig:""`

	Cron struct {
		Monthly string `envconfig:"CRON_MONTHLY" default:"47 9 1 * *"`
		Weekly  string `envconfig:"CRON_WEEKLY" default:"47 9 * * 2"`
	} `envconfig:""`

	TriggerToken string `envconfig:"TRIGGER_TOKEN"`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
