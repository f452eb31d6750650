package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Frequency задаёт периодичность дайджеста получателя.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ErrUnknownFrequency возвращается при неизвестном значении периодичности.
// Такие профили считаются некорректно настроенными и пропускаются с ошибкой
// в логе, а не получают окно по умолчанию.
var ErrUnknownFrequency = errors.New("неизвестная периодичность дайджеста")

// ParseFrequency разбирает сырое значение периодичности из профиля.
func ParseFrequency(raw string) (Frequency, error) {
	switch Frequency(strings.ToLower(strings.TrimSpace(raw))) {
	case FrequencyDaily:
		return FrequencyDaily, nil
	case FrequencyWeekly:
		return FrequencyWeekly, nil
	case FrequencyMonthly:
		return FrequencyMonthly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFrequency, raw)
}
