package models

import "time"

// RequestStatus — закрытый набор статусов обращения. Любая проверка
// легальности перехода живёт в services.CanTransition, не здесь.
type RequestStatus string

const (
	StatusNew            RequestStatus = "new"
	StatusInProgress     RequestStatus = "in_progress"
	StatusDocumentSent   RequestStatus = "document_sent"
	StatusDocumentViewed RequestStatus = "document_viewed"
	StatusDocumentSigned RequestStatus = "document_signed"
	StatusResolved       RequestStatus = "resolved"
	StatusRejected       RequestStatus = "rejected"
)

// ValidStatus — известен ли статус (для десериализации входных данных).
func ValidStatus(s RequestStatus) bool {
	switch s {
	case StatusNew, StatusInProgress, StatusDocumentSent,
		StatusDocumentViewed, StatusDocumentSigned, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// ClientRequest — обращение клиента к медиатору.
// Milestone-поля (*At) выставляются один раз и больше не меняются.
type ClientRequest struct {
	ID              string        `json:"id"`
	Phone           string        `json:"phone"`
	IIN             string        `json:"iin,omitempty"`
	OrganizationRef string        `json:"organization_ref"`
	ReasonType      string        `json:"reason_type"`
	ReasonText      string        `json:"reason_text"`
	Status          RequestStatus `json:"status"`
	RejectReason    string        `json:"reject_reason,omitempty"`
	DocumentType    string        `json:"document_type,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`

	DocumentSentAt   *time.Time `json:"document_sent_at,omitempty"`
	DocumentViewedAt *time.Time `json:"document_viewed_at,omitempty"`
	DocumentSignedAt *time.Time `json:"document_signed_at,omitempty"`
}
