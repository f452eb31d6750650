package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"testimony-digest/internal/adapters/identityclient"
	"testimony-digest/internal/adapters/repo"
	"testimony-digest/internal/domain"
	"testimony-digest/internal/infra/cache"
	"testimony-digest/internal/infra/config"
	"testimony-digest/internal/infra/db"
	httpinfra "testimony-digest/internal/infra/http"
	logpkg "testimony-digest/internal/infra/log"
	"testimony-digest/internal/infra/metrics"
	"testimony-digest/internal/infra/queue"
	"testimony-digest/internal/usecase/digest"
	"testimony-digest/internal/usecase/schedule"
)

type updateFrequencyRequest struct {
	Frequency string `json:"frequency"`
}

func main() {
	cfg := config.Load()
	log.Logger = logpkg.NewLogger(cfg.AppEnv, "api")
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("api: нет подключения к БД")
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
			log.Fatal().Err(err).Msg("api: нет подключения к AMQP")
		}
		defer rabbit.Close()
		mailQueue = rabbit
	case redisClient != nil:
		mailQueue = queue.NewRedisMailQueue(redisClient, cfg.AMQP.MailQueue)
	default:
		log.Fatal().Msg("api: не настроена очередь писем (AMQP_URL или REDIS_ADDR)")
	}

	var identityOpts []identityclient.Option
	if redisClient != nil {
		identityOpts = append(identityOpts, identityclient.WithCache(cache.NewRedis(redisClient), cfg.Identity.CacheTTL))
	}
	identity, err := identityclient.New(cfg.Identity.BaseURL, identityOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("api: некорректный адрес сервиса идентификации")
	}

	limits := digest.Limits{
		MaxBills:        cfg.Digest.MaxBills,
		MaxUsers:        cfg.Digest.MaxUsers,
		MaxBillsPerUser: cfg.Digest.MaxBillsPerUser,
	}
	digestService := digest.NewService(repoAdapter, repoAdapter, identity, mailQueue, repoAdapter, limits, cfg.Digest.Concurrency)
	scheduleService := schedule.NewService(repoAdapter)

	server := httpinfra.NewServer(log.Logger)
	server.Router.Group(func(protected chi.Router) {
		protected.Use(httpinfra.TriggerAuthMiddleware(cfg.TriggerToken))

		protected.Post("/api/v1/digest/run", func(w http.ResponseWriter, r *http.Request) {
			if err := digestService.RunCycle(r.Context(), time.Now()); err != nil {
				log.Error().Err(err).Msg("api: цикл дайджеста завершился с ошибкой")
				httpinfra.WriteError(w, http.StatusInternalServerError, err)
				return
			}
			httpinfra.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		protected.Put("/api/v1/recipients/{id}/frequency", func(w http.ResponseWriter, r *http.Request) {
			defer r.Body.Close()
			var req updateFrequencyRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpinfra.WriteError(w, http.StatusBadRequest, errors.New("некорректное тело запроса"))
				return
			}
			freq, err := scheduleService.UpdateFrequency(r.Context(), chi.URLParam(r, "id"), req.Frequency, time.Now())
			switch {
			case errors.Is(err, domain.ErrUnknownFrequency):
				httpinfra.WriteError(w, http.StatusBadRequest, err)
			case errors.Is(err, domain.ErrRecipientNotFound):
				httpinfra.WriteError(w, http.StatusNotFound, err)
			case err != nil:
				log.Error().Err(err).Msg("api: не удалось обновить периодичность")
				httpinfra.WriteError(w, http.StatusInternalServerError, err)
			default:
				httpinfra.WriteJSON(w, http.StatusOK, map[string]string{"frequency": string(freq)})
			}
		})
	})

	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("api: сервер остановлен с ошибкой")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("api: graceful shutdown failed")
	}
}
