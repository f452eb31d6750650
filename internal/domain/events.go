package domain

import (
	"context"
	"time"
)

// Имена событий цикла дайджеста.
const (
	DigestEventSent           = "digest_sent"
	DigestEventSkippedEmpty   = "digest_skipped_empty"
	DigestEventSkippedNoEmail = "digest_skipped_no_email"
)

// DigestEvent фиксирует исход обработки одного получателя за цикл.
type DigestEvent struct {
	Event       string
	RecipientID string
	Frequency   Frequency
	BillCount   int
	UserCount   int
	OccurredAt  time.Time
}

// DigestEventRepo сохраняет события цикла для операционной аналитики.
type DigestEventRepo interface {
	RecordDigestEvent(ctx context.Context, event DigestEvent) error
}
