package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"testimony-digest/internal/domain"
	"testimony-digest/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.RecipientRepo = (*Postgres)(nil)
var _ domain.NotificationRepo = (*Postgres)(nil)
var _ domain.DigestEventRepo = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// ListDue возвращает получателей, у которых срок следующего дайджеста наступил.
func (p *Postgres) ListDue(ctx context.Context, now time.Time) ([]domain.Recipient, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, COALESCE(display_name, ''), COALESCE(notification_frequency, ''), next_digest_at
FROM profiles
WHERE next_digest_at IS NOT NULL AND next_digest_at <= $1
`, now)
	metrics.ObserveNetworkRequest("postgres", "profiles_list_due", "profiles", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []domain.Recipient
	for rows.Next() {
		var r domain.Recipient
		if err := rows.Scan(&r.ID, &r.DisplayName, &r.Frequency, &r.NextDigestAt); err != nil {
			return nil, err
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

// UpdateNextDigestAt сдвигает срок следующего дайджеста получателя.
func (p *Postgres) UpdateNextDigestAt(ctx context.Context, recipientID string, next time.Time) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE profiles SET next_digest_at = $2, updated_at = now() WHERE id = $1
`, recipientID, next)
	metrics.ObserveNetworkRequest("postgres", "profiles_update_next", "profiles", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecipientNotFound
	}
	return nil
}

// UpdateFrequency сохраняет новую периодичность дайджеста получателя.
func (p *Postgres) UpdateFrequency(ctx context.Context, recipientID string, freq domain.Frequency) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE profiles SET notification_frequency = $2, updated_at = now() WHERE id = $1
`, recipientID, string(freq))
	metrics.ObserveNetworkRequest("postgres", "profiles_update_frequency", "profiles", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecipientNotFound
	}
	return nil
}

// ListTestimonyNotifications возвращает записи ленты типа testimony за окно
// [windowStart, windowEnd), упорядоченные по времени появления.
func (p *Postgres) ListTestimonyNotifications(ctx context.Context, recipientID string, windowStart, windowEnd time.Time) ([]domain.NotificationRecord, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT type, timestamp, is_bill_match, is_user_match,
       COALESCE(bill_id, ''), COALESCE(bill_name, ''), COALESCE(court, ''),
       COALESCE(position, ''), COALESCE(author_id, ''), COALESCE(author_name, '')
FROM notification_events
WHERE profile_id = $1 AND type = $2 AND timestamp >= $3 AND timestamp < $4
ORDER BY timestamp, id
`, recipientID, domain.NotificationTypeTestimony, windowStart, windowEnd)
	metrics.ObserveNetworkRequest("postgres", "notifications_list", "notification_events", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.NotificationRecord
	for rows.Next() {
		var rec domain.NotificationRecord
		var position string
		if err := rows.Scan(&rec.Type, &rec.Timestamp, &rec.IsBillMatch, &rec.IsUserMatch,
			&rec.BillID, &rec.BillName, &rec.Court, &position, &rec.AuthorID, &rec.AuthorName); err != nil {
			return nil, err
		}
		rec.Position = domain.Position(position)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecordDigestEvent сохраняет событие цикла дайджеста.
func (p *Postgres) RecordDigestEvent(ctx context.Context, event domain.DigestEvent) error {
	if event.Event == "" {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO digest_events (event, profile_id, frequency, bill_count, user_count, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, event.Event, event.RecipientID, string(event.Frequency), event.BillCount, event.UserCount, event.OccurredAt)
	metrics.ObserveNetworkRequest("postgres", "digest_events_insert", "digest_events", start, err)
	return err
}
