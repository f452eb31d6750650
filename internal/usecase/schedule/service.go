package schedule

import (
	"context"
	"fmt"
	"time"

	"testimony-digest/internal/domain"
	"testimony-digest/internal/usecase/digest"
)

// Service отвечает за настройки рассылки получателя.
type Service struct {
	recipients domain.RecipientRepo
}

// NewService создаёт сервис.
func NewService(recipients domain.RecipientRepo) *Service {
	return &Service{recipients: recipients}
}

// UpdateFrequency сохраняет новую периодичность и пересчитывает срок
// следующего дайджеста от начала текущих суток, чтобы новая каденция
// вступила в силу сразу.
func (s *Service) UpdateFrequency(ctx context.Context, recipientID, raw string, now time.Time) (domain.Frequency, error) {
	freq, err := domain.ParseFrequency(raw)
	if err != nil {
		return "", err
	}
	if err := s.recipients.UpdateFrequency(ctx, recipientID, freq); err != nil {
		return "", fmt.Errorf("сохранение периодичности: %w", err)
	}
	next, err := digest.NextDigestAt(freq, digest.StartOfDay(now))
	if err != nil {
		return "", err
	}
	if err := s.recipients.UpdateNextDigestAt(ctx, recipientID, next); err != nil {
		return "", fmt.Errorf("обновление срока дайджеста: %w", err)
	}
	return freq, nil
}
