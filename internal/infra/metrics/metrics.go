package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	DigestCycleSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "digest_cycle_seconds",
		Help:    "Длительность одного цикла рассылки дайджестов",
		Buckets: prometheus.DefBuckets,
	})
	DigestRecipientsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "digest_recipients_total",
		Help: "Количество обработанных получателей",
	})
	DigestRecipientErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "digest_recipient_errors_total",
		Help: "Ошибки обработки отдельных получателей",
	})
	DigestEmailsEnqueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "digest_emails_enqueued_total",
		Help: "Письма, поставленные в очередь отправки",
	})
	DigestSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_skipped_total",
		Help: "Пропуски отправки по причинам",
	}, []string{"reason"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"component", "operation", "target", "status"})
	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		DigestCycleSeconds,
		DigestRecipientsTotal,
		DigestRecipientErrorsTotal,
		DigestEmailsEnqueuedTotal,
		DigestSkippedTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncDigestRecipient увеличивает счётчик обработанных получателей.
func IncDigestRecipient() {
	DigestRecipientsTotal.Inc()
}

// IncDigestRecipientError увеличивает счётчик ошибок по получателям.
func IncDigestRecipientError() {
	DigestRecipientErrorsTotal.Inc()
}

// IncDigestEmailEnqueued увеличивает счётчик поставленных в очередь писем.
func IncDigestEmailEnqueued() {
	DigestEmailsEnqueuedTotal.Inc()
}

// IncDigestSkipped увеличивает счётчик пропусков отправки по причине.
func IncDigestSkipped(reason string) {
	DigestSkippedTotal.WithLabelValues(reason).Inc()
}
