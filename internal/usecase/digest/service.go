package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"testimony-digest/internal/domain"
	"testimony-digest/internal/infra/metrics"
)

const defaultConcurrency = 8

// Service координирует цикл рассылки дайджестов: выбирает получателей,
// агрегирует их ленты и ставит письма в очередь отправки.
type Service struct {
	recipients  domain.RecipientRepo
	feed        domain.NotificationRepo
	identity    domain.IdentityService
	mail        domain.MailQueue
	events      domain.DigestEventRepo
	limits      Limits
	concurrency int
}

// NewService создаёт сервис дайджестов. events может быть nil, тогда события
// цикла не записываются.
func NewService(recipients domain.RecipientRepo, feed domain.NotificationRepo, identity domain.IdentityService, mail domain.MailQueue, events domain.DigestEventRepo, limits Limits, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Service{recipients: recipients, feed: feed, identity: identity, mail: mail, events: events, limits: limits, concurrency: concurrency}
}

// RunCycle обрабатывает всех получателей, у которых наступил срок дайджеста.
// Получатели обрабатываются независимо и конкурентно: ошибка одного не
// прерывает остальных. Ошибкой цикла считается только невозможность получить
// список получателей.
func (s *Service) RunCycle(ctx context.Context, ref time.Time) error {
	now := StartOfDay(ref)
	started := time.Now()
	defer func() { metrics.DigestCycleSeconds.Observe(time.Since(started).Seconds()) }()

	recipients, err := s.recipients.ListDue(ctx, now)
	if err != nil {
		return fmt.Errorf("выборка получателей: %w", err)
	}

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, recipient := range recipients {
		recipient := recipient
		g.Go(func() error {
			metrics.IncDigestRecipient()
			if err := s.processRecipient(ctx, recipient, now); err != nil {
				metrics.IncDigestRecipientError()
				log.Error().Err(err).Str("recipient", recipient.ID).Msg("digest: ошибка обработки получателя")
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Info().Time("date", now).Int("recipients", len(recipients)).Msg("digest: цикл завершён")
	return nil
}

func (s *Service) processRecipient(ctx context.Context, recipient domain.Recipient, now time.Time) error {
	if strings.TrimSpace(recipient.Frequency) == "" {
		log.Debug().Str("recipient", recipient.ID).Msg("digest: периодичность не настроена, пропуск")
		return nil
	}
	freq, err := domain.ParseFrequency(recipient.Frequency)
	if err != nil {
		return fmt.Errorf("разбор периодичности: %w", err)
	}

	email, err := s.identity.VerifiedEmail(ctx, recipient.ID)
	if err != nil {
		return fmt.Errorf("поиск подтверждённого адреса: %w", err)
	}
	if email == "" {
		log.Info().Str("recipient", recipient.ID).Msg("digest: нет подтверждённого адреса, письмо пропущено")
		metrics.IncDigestSkipped("no_email")
		s.recordEvent(ctx, domain.DigestEvent{Event: domain.DigestEventSkippedNoEmail, RecipientID: recipient.ID, Frequency: freq, OccurredAt: now})
		return s.advance(ctx, recipient.ID, freq, now)
	}

	start, err := WindowStart(freq, now)
	if err != nil {
		return err
	}
	records, err := s.feed.ListTestimonyNotifications(ctx, recipient.ID, start, now)
	if err != nil {
		return fmt.Errorf("чтение ленты уведомлений: %w", err)
	}

	result := BuildDigest(records, freq, start, now, s.limits)
	if result.Empty() {
		log.Debug().Str("recipient", recipient.ID).Msg("digest: нет новой активности за окно")
		metrics.IncDigestSkipped("empty")
		s.recordEvent(ctx, domain.DigestEvent{Event: domain.DigestEventSkippedEmpty, RecipientID: recipient.ID, Frequency: freq, OccurredAt: now})
		return s.advance(ctx, recipient.ID, freq, now)
	}

	outbound := domain.OutboundEmail{
		ID:        uuid.NewString(),
		To:        []string{email},
		Subject:   Subject(result),
		TextBody:  FormatText(result),
		HTMLBody:  FormatHTML(result),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.mail.Enqueue(ctx, outbound); err != nil {
		return fmt.Errorf("постановка письма в очередь: %w", err)
	}
	metrics.IncDigestEmailEnqueued()
	s.recordEvent(ctx, domain.DigestEvent{
		Event:       domain.DigestEventSent,
		RecipientID: recipient.ID,
		Frequency:   freq,
		BillCount:   result.NumBillsWithNewTestimony,
		UserCount:   result.NumUsersWithNewTestimony,
		OccurredAt:  now,
	})

	return s.advance(ctx, recipient.ID, freq, now)
}

// advance сдвигает срок следующего дайджеста. Вызывается и для пустых окон,
// и для получателей без адреса, чтобы профиль не перепроверялся каждый цикл.
func (s *Service) advance(ctx context.Context, recipientID string, freq domain.Frequency, now time.Time) error {
	next, err := NextDigestAt(freq, now)
	if err != nil {
		return err
	}
	if err := s.recipients.UpdateNextDigestAt(ctx, recipientID, next); err != nil {
		return fmt.Errorf("обновление срока дайджеста: %w", err)
	}
	return nil
}

func (s *Service) recordEvent(ctx context.Context, event domain.DigestEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.RecordDigestEvent(ctx, event); err != nil {
		log.Warn().Err(err).Str("event", event.Event).Str("recipient", event.RecipientID).Msg("digest: не удалось записать событие цикла")
	}
}
