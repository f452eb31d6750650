package domain

import (
	"context"
	"time"
)

// OutboundEmail — запись исходящего письма для очереди отправки.
// Доставкой занимается потребитель очереди, сервис только публикует.
type OutboundEmail struct {
	ID        string    `json:"id"`
	To        []string  `json:"to"`
	Subject   string    `json:"subject"`
	TextBody  string    `json:"text_body"`
	HTMLBody  string    `json:"html_body"`
	CreatedAt time.Time `json:"created_at"`
}

// MailQueue описывает очередь исходящих писем.
type MailQueue interface {
	Enqueue(ctx context.Context, email OutboundEmail) error
}
