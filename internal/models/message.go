package models

import "time"

// Sender — от чьего имени запись в журнале обращения.
type Sender string

const (
	SenderClient       Sender = "client"
	SenderMediator     Sender = "mediator"
	SenderOrganization Sender = "organization"
	SenderSystem       Sender = "system" // служебные отметки о вехах
)

func ValidSender(s Sender) bool {
	switch s {
	case SenderClient, SenderMediator, SenderOrganization, SenderSystem:
		return true
	}
	return false
}

// Message — запись журнала (чата) обращения. Неизменяема после вставки;
// порядок — по created_at, при равенстве по id.
type Message struct {
	ID        int64     `json:"id"`
	RequestID string    `json:"request_id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
