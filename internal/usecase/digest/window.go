package digest

import (
	"fmt"
	"time"

	"testimony-digest/internal/domain"
)

// StartOfDay нормализует момент к началу суток в UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WindowStart возвращает начало полуинтервала [start, ref), в котором
// активность считается новой. Функция чистая: одинаковые аргументы всегда
// дают одинаковый результат.
func WindowStart(freq domain.Frequency, ref time.Time) (time.Time, error) {
	switch freq {
	case domain.FrequencyDaily:
		return ref.AddDate(0, 0, -1), nil
	case domain.FrequencyWeekly:
		return ref.AddDate(0, 0, -7), nil
	case domain.FrequencyMonthly:
		return ref.AddDate(0, -1, 0), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", domain.ErrUnknownFrequency, freq)
}

// NextDigestAt возвращает момент, когда получателю положен следующий дайджест.
func NextDigestAt(freq domain.Frequency, ref time.Time) (time.Time, error) {
	switch freq {
	case domain.FrequencyDaily:
		return ref.AddDate(0, 0, 1), nil
	case domain.FrequencyWeekly:
		return ref.AddDate(0, 0, 7), nil
	case domain.FrequencyMonthly:
		return ref.AddDate(0, 1, 0), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", domain.ErrUnknownFrequency, freq)
}
