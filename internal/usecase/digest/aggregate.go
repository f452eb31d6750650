package digest

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"testimony-digest/internal/domain"
)

// Limits задаёт лимиты отображения секций дайджеста. Лимиты применяются
// после подсчёта итогов, поэтому Num*WithNewTestimony всегда отражают
// полные значения.
type Limits struct {
	MaxBills        int
	MaxUsers        int
	MaxBillsPerUser int
}

// DefaultLimits возвращает лимиты отображения по умолчанию.
func DefaultLimits() Limits {
	return Limits{MaxBills: 4, MaxUsers: 4, MaxBillsPerUser: 6}
}

// BuildDigest агрегирует ленту уведомлений получателя за окно [start, end).
// Временные границы записей не перепроверяются: выборку по окну выполняет
// хранилище. Функция детерминирована при одинаковом порядке записей и не
// имеет побочных эффектов, кроме предупреждения в лог о неизвестной позиции.
func BuildDigest(records []domain.NotificationRecord, freq domain.Frequency, start, end time.Time, limits Limits) domain.DigestResult {
	billOrder := make([]string, 0)
	billByID := make(map[string]*domain.BillDigestEntry)
	userOrder := make([]string, 0)
	userByID := make(map[string]*domain.UserDigestEntry)

	for _, rec := range records {
		if rec.Type != domain.NotificationTypeTestimony {
			continue
		}

		if rec.IsBillMatch {
			entry, ok := billByID[rec.BillID]
			if !ok {
				entry = &domain.BillDigestEntry{BillID: rec.BillID, BillName: rec.BillName, Court: rec.Court}
				billByID[rec.BillID] = entry
				billOrder = append(billOrder, rec.BillID)
			}
			switch rec.Position {
			case domain.PositionEndorse:
				entry.EndorseCount++
			case domain.PositionNeutral:
				entry.NeutralCount++
			case domain.PositionOppose:
				entry.OpposeCount++
			default:
				log.Warn().Str("bill_id", rec.BillID).Str("position", string(rec.Position)).Msg("digest: неизвестная позиция, запись не учтена в счётчиках")
			}
		}

		if rec.IsUserMatch {
			entry, ok := userByID[rec.AuthorID]
			if !ok {
				entry = &domain.UserDigestEntry{UserID: rec.AuthorID, UserName: rec.AuthorName}
				userByID[rec.AuthorID] = entry
				userOrder = append(userOrder, rec.AuthorID)
			}
			entry.NewTestimonyCount++
			entry.Bills = append(entry.Bills, domain.UserBillRef{BillID: rec.BillID, Court: rec.Court, Position: rec.Position})
		}
	}

	result := domain.DigestResult{
		Frequency:                freq,
		StartDate:                start,
		EndDate:                  end,
		NumBillsWithNewTestimony: len(billOrder),
		NumUsersWithNewTestimony: len(userOrder),
	}

	bills := make([]domain.BillDigestEntry, 0, len(billOrder))
	for _, id := range billOrder {
		bills = append(bills, *billByID[id])
	}
	sort.SliceStable(bills, func(i, j int) bool { return bills[i].TotalCount() > bills[j].TotalCount() })
	if limits.MaxBills > 0 && len(bills) > limits.MaxBills {
		bills = bills[:limits.MaxBills]
	}
	result.Bills = bills

	users := make([]domain.UserDigestEntry, 0, len(userOrder))
	for _, id := range userOrder {
		users = append(users, *userByID[id])
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].NewTestimonyCount > users[j].NewTestimonyCount })
	if limits.MaxUsers > 0 && len(users) > limits.MaxUsers {
		users = users[:limits.MaxUsers]
	}
	for i := range users {
		if limits.MaxBillsPerUser > 0 && len(users[i].Bills) > limits.MaxBillsPerUser {
			users[i].Bills = users[i].Bills[:limits.MaxBillsPerUser]
		}
	}
	result.Users = users

	return result
}
