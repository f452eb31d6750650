package domain

import "time"

// NotificationTypeTestimony — единственный тип уведомлений, попадающий в дайджест.
const NotificationTypeTestimony = "testimony"

// Position описывает позицию автора свидетельства по законопроекту.
type Position string

const (
	PositionEndorse Position = "endorse"
	PositionNeutral Position = "neutral"
	PositionOppose  Position = "oppose"
)

// Known сообщает, входит ли позиция в известный набор значений.
func (p Position) Known() bool {
	switch p {
	case PositionEndorse, PositionNeutral, PositionOppose:
		return true
	}
	return false
}

// NotificationRecord описывает одно событие в ленте уведомлений получателя.
// Запись может одновременно относиться и к отслеживаемому законопроекту,
// и к отслеживаемому автору; в этом случае она учитывается в обеих группах.
type NotificationRecord struct {
	Type        string
	Timestamp   time.Time
	IsBillMatch bool
	IsUserMatch bool
	BillID      string
	BillName    string
	Court       string
	Position    Position
	AuthorID    string
	AuthorName  string
}

// BillDigestEntry агрегирует свидетельства по одному законопроекту за окно.
type BillDigestEntry struct {
	BillID       string
	BillName     string
	Court        string
	EndorseCount int
	NeutralCount int
	OpposeCount  int
}

// TotalCount возвращает суммарное число учтённых свидетельств по законопроекту.
func (e BillDigestEntry) TotalCount() int {
	return e.EndorseCount + e.NeutralCount + e.OpposeCount
}

// UserBillRef — одна позиция в списке законопроектов автора.
// Порядок появления в ленте сохраняется и не пересортировывается.
type UserBillRef struct {
	BillID   string
	Court    string
	Position Position
}

// UserDigestEntry агрегирует свидетельства одного автора за окно.
// NewTestimonyCount отражает полное число свидетельств и не меняется
// при усечении Bills до лимита отображения.
type UserDigestEntry struct {
	UserID            string
	UserName          string
	Bills             []UserBillRef
	NewTestimonyCount int
}

// DigestResult — итог агрегации ленты одного получателя за окно.
// NumBillsWithNewTestimony и NumUsersWithNewTestimony фиксируются до
// усечения списков.
type DigestResult struct {
	Frequency                Frequency
	StartDate                time.Time
	EndDate                  time.Time
	Bills                    []BillDigestEntry
	NumBillsWithNewTestimony int
	Users                    []UserDigestEntry
	NumUsersWithNewTestimony int
}

// Empty сообщает, что за окно не было новой активности и письмо не нужно.
func (d DigestResult) Empty() bool {
	return d.NumBillsWithNewTestimony == 0 && d.NumUsersWithNewTestimony == 0
}

// Recipient описывает получателя дайджеста. Frequency хранится как сырое
// значение из профиля: оно может быть пустым или некорректным, разбор
// выполняет оркестратор.
type Recipient struct {
	ID           string
	DisplayName  string
	Frequency    string
	NextDigestAt time.Time
}
