package domain

import (
	"context"
	"errors"
	"time"
)

// ErrRecipientNotFound возвращается, когда профиль получателя отсутствует.
var ErrRecipientNotFound = errors.New("получатель не найден")

// RecipientRepo управляет профилями получателей дайджеста.
type RecipientRepo interface {
	// ListDue возвращает получателей, у которых срок следующего дайджеста наступил.
	ListDue(ctx context.Context, now time.Time) ([]Recipient, error)
	UpdateNextDigestAt(ctx context.Context, recipientID string, next time.Time) error
	UpdateFrequency(ctx context.Context, recipientID string, freq Frequency) error
}

// NotificationRepo читает ленту уведомлений получателя.
type NotificationRepo interface {
	// ListTestimonyNotifications возвращает записи типа testimony с
	// timestamp в полуинтервале [start, end), отфильтрованные на стороне
	// хранилища и упорядоченные по времени появления.
	ListTestimonyNotifications(ctx context.Context, recipientID string, start, end time.Time) ([]NotificationRecord, error)
}

// IdentityService возвращает подтверждённый адрес получателя.
// Пустая строка означает, что адреса нет или он не подтверждён.
type IdentityService interface {
	VerifiedEmail(ctx context.Context, recipientID string) (string, error)
}

// Cache используется для простых TTL-хранилищ и защёлок.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}
