package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"testimony-digest/internal/adapters/identityclient"
	"testimony-digest/internal/adapters/repo"
	"testimony-digest/internal/domain"
	"testimony-digest/internal/infra/cache"
	"testimony-digest/internal/infra/config"
	"testimony-digest/internal/infra/db"
	logpkg "testimony-digest/internal/infra/log"
	"testimony-digest/internal/infra/metrics"
	"testimony-digest/internal/infra/queue"
	"testimony-digest/internal/usecase/digest"
)

func main() {
	cfg := config.Load()
	log.Logger = logpkg.NewLogger(cfg.AppEnv, "scheduler")
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
	}

	var mailQueue domain.MailQueue
	switch {
	case cfg.AMQP.URL != "":
		rabbit, err := queue.NewRabbitMailQueue(cfg.AMQP.URL, cfg.AMQP.MailQueue)
		if err != nil {
			log.Fatal().Err(err).Msg("scheduler: нет подключения к AMQP")
		}
		defer rabbit.Close()
		mailQueue = rabbit
	case redisClient != nil:
		mailQueue = queue.NewRedisMailQueue(redisClient, cfg.AMQP.MailQueue)
	default:
		log.Fatal().Msg("scheduler: не настроена очередь писем (AMQP_URL или REDIS_ADDR)")
	}

	var identityOpts []identityclient.Option
	var once domain.Cache
	if redisClient != nil {
		once = cache.NewRedis(redisClient)
		identityOpts = append(identityOpts, identityclient.WithCache(once, cfg.Identity.CacheTTL))
	}
	identity, err := identityclient.New(cfg.Identity.BaseURL, identityOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler: некорректный адрес сервиса идентификации")
	}

	limits := digest.Limits{
		MaxBills:        cfg.Digest.MaxBills,
		MaxUsers:        cfg.Digest.MaxUsers,
		MaxBillsPerUser: cfg.Digest.MaxBillsPerUser,
	}
	digestService := digest.NewService(repoAdapter, repoAdapter, identity, mailQueue, repoAdapter, limits, cfg.Digest.Concurrency)

	metrics.StartServer(ctx, log.Logger, cfg.MetricsAddr)

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		log.Fatal().Err(err).Str("tz", cfg.TZ).Msg("scheduler: неизвестный часовой пояс")
	}

	runCycle := func() {
		now := time.Now()
		run := func() error { return digestService.RunCycle(ctx, now) }
		if once != nil {
			// Защёлка на сутки: cron и ручной запуск не должны прогнать
			// один и тот же день дважды.
			key := "digest_cycle:" + digest.StartOfDay(now).Format("2006-01-02")
			if err := once.Once(ctx, key, 12*time.Hour, run); err != nil {
				log.Error().Err(err).Msg("scheduler: цикл дайджеста завершился с ошибкой")
			}
			return
		}
		if err := run(); err != nil {
			log.Error().Err(err).Msg("scheduler: цикл дайджеста завершился с ошибкой")
		}
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(cfg.Cron.Monthly, runCycle); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.Cron.Monthly).Msg("scheduler: некорректное месячное расписание")
	}
	if _, err := c.AddFunc(cfg.Cron.Weekly, runCycle); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.Cron.Weekly).Msg("scheduler: некорректное недельное расписание")
	}
	c.Start()
	log.Info().Str("monthly", cfg.Cron.Monthly).Str("weekly", cfg.Cron.Weekly).Msg("scheduler: расписание запущено")

	<-ctx.Done()
	<-c.Stop().Done()
}
