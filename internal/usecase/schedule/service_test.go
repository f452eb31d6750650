package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"testimony-digest/internal/domain"
)

type stubRecipients struct {
	frequency domain.Frequency
	next      time.Time
	updateErr error
}

func (s *stubRecipients) ListDue(context.Context, time.Time) ([]domain.Recipient, error) {
	return nil, nil
}

func (s *stubRecipients) UpdateNextDigestAt(_ context.Context, _ string, next time.Time) error {
	s.next = next
	return nil
}

func (s *stubRecipients) UpdateFrequency(_ context.Context, _ string, freq domain.Frequency) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.frequency = freq
	return nil
}

func TestUpdateFrequency(t *testing.T) {
	repo := &stubRecipients{}
	service := NewService(repo)
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	freq, err := service.UpdateFrequency(context.Background(), "r1", "Weekly", now)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if freq != domain.FrequencyWeekly || repo.frequency != domain.FrequencyWeekly {
		t.Fatalf("ожидали сохранение weekly, получили %q", repo.frequency)
	}
	want := time.Date(2026, 3, 22, 0, 0, 0, 0, time.UTC)
	if !repo.next.Equal(want) {
		t.Fatalf("ожидали пересчёт срока на %v, получили %v", want, repo.next)
	}
}

func TestUpdateFrequencyUnknown(t *testing.T) {
	repo := &stubRecipients{}
	service := NewService(repo)

	_, err := service.UpdateFrequency(context.Background(), "r1", "hourly", time.Now())
	if !errors.Is(err, domain.ErrUnknownFrequency) {
		t.Fatalf("ожидали ErrUnknownFrequency, получили %v", err)
	}
	if repo.frequency != "" {
		t.Fatalf("не ожидали сохранения некорректной периодичности")
	}
}

func TestUpdateFrequencyRecipientMissing(t *testing.T) {
	repo := &stubRecipients{updateErr: domain.ErrRecipientNotFound}
	service := NewService(repo)

	_, err := service.UpdateFrequency(context.Background(), "ghost", "daily", time.Now())
	if !errors.Is(err, domain.ErrRecipientNotFound) {
		t.Fatalf("ожидали ErrRecipientNotFound, получили %v", err)
	}
}
