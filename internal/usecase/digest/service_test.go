package digest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"testimony-digest/internal/domain"
)

type stubRecipients struct {
	mu       sync.Mutex
	due      []domain.Recipient
	listErr  error
	advanced map[string]time.Time
}

func (s *stubRecipients) ListDue(context.Context, time.Time) ([]domain.Recipient, error) {
	return s.due, s.listErr
}

func (s *stubRecipients) UpdateNextDigestAt(_ context.Context, recipientID string, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.advanced == nil {
		s.advanced = make(map[string]time.Time)
	}
	s.advanced[recipientID] = next
	return nil
}

func (s *stubRecipients) UpdateFrequency(context.Context, string, domain.Frequency) error { return nil }

type stubFeed struct {
	mu       sync.Mutex
	records  map[string][]domain.NotificationRecord
	err      error
	gotStart time.Time
	gotEnd   time.Time
}

func (s *stubFeed) ListTestimonyNotifications(_ context.Context, recipientID string, start, end time.Time) ([]domain.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gotStart, s.gotEnd = start, end
	if s.err != nil {
		return nil, s.err
	}
	return s.records[recipientID], nil
}

type stubIdentity struct {
	emails map[string]string
	errFor map[string]error
}

func (s *stubIdentity) VerifiedEmail(_ context.Context, recipientID string) (string, error) {
	if err := s.errFor[recipientID]; err != nil {
		return "", err
	}
	return s.emails[recipientID], nil
}

type stubMail struct {
	mu   sync.Mutex
	sent []domain.OutboundEmail
	err  error
}

func (s *stubMail) Enqueue(_ context.Context, email domain.OutboundEmail) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, email)
	return nil
}

type stubEvents struct {
	mu     sync.Mutex
	events []domain.DigestEvent
}

func (s *stubEvents) RecordDigestEvent(_ context.Context, event domain.DigestEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *stubEvents) byName(name string) []domain.DigestEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DigestEvent
	for _, e := range s.events {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

var cycleRef = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

func weeklyRecipient(id string) domain.Recipient {
	return domain.Recipient{ID: id, DisplayName: "Recipient " + id, Frequency: "weekly"}
}

func TestRunCycleSendsDigest(t *testing.T) {
	recipients := &stubRecipients{due: []domain.Recipient{weeklyRecipient("r1")}}
	feed := &stubFeed{records: map[string][]domain.NotificationRecord{
		"r1": {billRecord("H.100", domain.PositionEndorse)},
	}}
	identity := &stubIdentity{emails: map[string]string{"r1": "r1@example.org"}}
	mail := &stubMail{}
	events := &stubEvents{}
	service := NewService(recipients, feed, identity, mail, events, DefaultLimits(), 4)

	if err := service.RunCycle(context.Background(), cycleRef); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	if len(mail.sent) != 1 {
		t.Fatalf("ожидали одно письмо, получили %d", len(mail.sent))
	}
	email := mail.sent[0]
	if email.ID == "" {
		t.Fatalf("ожидали идентификатор письма")
	}
	if len(email.To) != 1 || email.To[0] != "r1@example.org" {
		t.Fatalf("ожидали адрес получателя, получили %v", email.To)
	}
	if !strings.Contains(email.HTMLBody, "An Act H.100") {
		t.Fatalf("ожидали название законопроекта в теле письма")
	}
	if email.TextBody == "" || email.Subject == "" {
		t.Fatalf("ожидали заполненные тему и текстовую версию")
	}

	wantNext := time.Date(2026, 3, 22, 0, 0, 0, 0, time.UTC)
	if got := recipients.advanced["r1"]; !got.Equal(wantNext) {
		t.Fatalf("ожидали сдвиг срока на %v, получили %v", wantNext, got)
	}
	sent := events.byName(domain.DigestEventSent)
	if len(sent) != 1 || sent[0].BillCount != 1 {
		t.Fatalf("ожидали событие digest_sent с одним законопроектом")
	}
}

func TestRunCyclePassesWindowToFeed(t *testing.T) {
	recipients := &stubRecipients{due: []domain.Recipient{weeklyRecipient("r1")}}
	feed := &stubFeed{}
	identity := &stubIdentity{emails: map[string]string{"r1": "r1@example.org"}}
	service := NewService(recipients, feed, identity, &stubMail{}, nil, DefaultLimits(), 1)

	if err := service.RunCycle(context.Background(), cycleRef); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	wantEnd := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	wantStart := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	if !feed.gotStart.Equal(wantStart) || !feed.gotEnd.Equal(wantEnd) {
		t.Fatalf("ожидали окно [%v, %v), получили [%v, %v)", wantStart, wantEnd, feed.gotStart, feed.gotEnd)
	}
}

func TestRunCycleEmptyWindowAdvancesWithoutSending(t *testing.T) {
	recipients := &stubRecipients{due: []domain.Recipient{weeklyRecipient("r1")}}
	identity := &stubIdentity{emails: map[string]string{"r1": "r1@example.org"}}
	mail := &stubMail{}
	events := &stubEvents{}
	service := NewService(recipients, &stubFeed{}, identity, mail, events, DefaultLimits(), 4)

	if err := service.RunCycle(context.Background(), cycleRef); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	if len(mail.sent) != 0 {
		t.Fatalf("не ожидали писем за пустое окно")
	}
	if _, ok := recipients.advanced["r1"]; !ok {
		t.Fatalf("ожидали сдвиг срока даже без письма")
	}
	if len(events.byName(domain.DigestEventSkippedEmpty)) != 1 {
		t.Fatalf("ожидали событие digest_skipped_empty")
	}
}

func TestRunCycleNoVerifiedEmailAdvances(t *testing.T) {
	recipients := &stubRecipients{due: []domain.Recipient{weeklyRecipient("r1")}}
	feed := &stubFeed{records: map[string][]domain.NotificationRecord{
		"r1": {billRecord("H.100", domain.PositionEndorse)},
	}}
	mail := &stubMail{}
	events := &stubEvents{}
	service := NewService(recipients, feed, &stubIdentity{}, mail, events, DefaultLimits(), 4)

	if err := service.RunCycle(context.Background(), cycleRef); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	if len(mail.sent) != 0 {
		t.Fatalf("не ожидали письма без подтверждённого адреса")
	}
	if _, ok := recipients.advanced["r1"]; !ok {
		t.Fatalf("ожидали сдвиг срока у получателя без адреса")
	}
	if len(events.byName(domain.DigestEventSkippedNoEmail)) != 1 {
		t.Fatalf("ожидали событие digest_skipped_no_email")
	}
}

func TestRunCycleSkipsRecipientWithoutFrequency(t *testing.T) {
	recipients := &stubRecipients{due: []domain.Recipient{{ID: "r1"}}}
	mail := &stubMail{}
	service := NewService(recipients, &stubFeed{}, &stubIdentity{}, mail, nil, DefaultLimits(), 4)

	if err := service.RunCycle(context.Background(), cycleRef); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(mail.sent) != 0 {
		t.Fatalf("не ожидали писем")
	}
	if len(recipients.advanced) != 0 {
		t.Fatalf("не ожидали сдвига срока без настроенной периодичности")
	}
}

func TestRunCycleSkipsUnknownFrequency(t *testing.T) {
	recipients := &stubRecipients{due: []domain.Recipient{{ID: "r1", Frequency: "hourly"}}}
	mail := &stubMail{}
	service := NewService(recipients, &stubFeed{}, &stubIdentity{}, mail, nil, DefaultLimits(), 4)

	if err := service.RunCycle(context.Background(), cycleRef); err != nil {
		t.Fatalf("не ожидали ошибку цикла: %v", err)
	}
	if len(mail.sent) != 0 || len(recipients.advanced) != 0 {
		t.Fatalf("ожидали пропуск получателя с неизвестной периодичностью")
	}
}

func TestRunCycleIsolatesRecipientFailures(t *testing.T) {
	recipients := &stubRecipients{due: []domain.Recipient{weeklyRecipient("r1"), weeklyRecipient("r2")}}
	feed := &stubFeed{records: map[string][]domain.NotificationRecord{
		"r2": {billRecord("H.100", domain.PositionEndorse)},
	}}
	identity := &stubIdentity{
		emails: map[string]string{"r2": "r2@example.org"},
		errFor: map[string]error{"r1": errors.New("identity unavailable")},
	}
	mail := &stubMail{}
	service := NewService(recipients, feed, identity, mail, nil, DefaultLimits(), 4)

	if err := service.RunCycle(context.Background(), cycleRef); err != nil {
		t.Fatalf("ошибка одного получателя не должна проваливать цикл: %v", err)
	}
	if len(mail.sent) != 1 || mail.sent[0].To[0] != "r2@example.org" {
		t.Fatalf("ожидали письмо второму получателю несмотря на сбой первого")
	}
	if _, ok := recipients.advanced["r1"]; ok {
		t.Fatalf("не ожидали сдвига срока у получателя со сбоем")
	}
}

func TestRunCycleListFailure(t *testing.T) {
	recipients := &stubRecipients{listErr: errors.New("db down")}
	service := NewService(recipients, &stubFeed{}, &stubIdentity{}, &stubMail{}, nil, DefaultLimits(), 4)

	if err := service.RunCycle(context.Background(), cycleRef); err == nil {
		t.Fatalf("ожидали ошибку цикла при недоступной выборке получателей")
	}
}
