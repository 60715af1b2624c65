package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"mediation/internal/models"
)

// RequestRepository — хранилище обращений. Все смены статуса — условные
// обновления (CAS по текущему статусу): при гонке выигрывает ровно один
// писатель, проигравший видит rowsAffected=0 и перечитывает состояние.
// Milestone-колонки ставятся через COALESCE — однажды записанное время
// не перетирается.
type RequestRepository interface {
	Create(req *models.ClientRequest) error
	GetByID(id string) (*models.ClientRequest, error)
	ListByPhone(phone string) ([]*models.ClientRequest, error)
	// TransitionStatus — статус без milestone (in_progress, resolved).
	TransitionStatus(id string, from []models.RequestStatus, to models.RequestStatus) (bool, error)
	TransitionDocumentSent(id string, from []models.RequestStatus, docType string) (bool, error)
	TransitionViewed(id string, from []models.RequestStatus) (bool, error)
	TransitionSigned(id string, from []models.RequestStatus) (bool, error)
	TransitionRejected(id string, from []models.RequestStatus, reason string) (bool, error)
}

type requestRepository struct {
	DB *sql.DB
}

func NewRequestRepository(db *sql.DB) RequestRepository {
	return &requestRepository{DB: db}
}

const requestColumns = `
	id, phone, iin, organization_ref, reason_type, reason_text,
	status, reject_reason, document_type, created_at, updated_at,
	document_sent_at, document_viewed_at, document_signed_at
`

func (r *requestRepository) Create(req *models.ClientRequest) error {
	const q = `
		INSERT INTO requests (id, phone, iin, organization_ref, reason_type, reason_text, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := r.DB.Exec(q,
		req.ID, req.Phone, req.IIN, req.OrganizationRef, req.ReasonType, req.ReasonText,
		req.Status, req.CreatedAt, req.UpdatedAt,
	); err != nil {
		return fmt.Errorf("request create: %w", err)
	}
	return nil
}

func (r *requestRepository) GetByID(id string) (*models.ClientRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	req, err := scanRequest(r.DB.QueryRow(q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("request get: %w", err)
	}
	return req, nil
}

func (r *requestRepository) ListByPhone(phone string) ([]*models.ClientRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM requests WHERE phone = $1 ORDER BY created_at DESC, id`
	rows, err := r.DB.Query(q, phone)
	if err != nil {
		return nil, fmt.Errorf("request list: %w", err)
	}
	defer rows.Close()

	var out []*models.ClientRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("request list scan: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *requestRepository) TransitionStatus(id string, from []models.RequestStatus, to models.RequestStatus) (bool, error) {
	const q = `
		UPDATE requests
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`
	return r.exec(q, id, to, statusArray(from))
}

func (r *requestRepository) TransitionDocumentSent(id string, from []models.RequestStatus, docType string) (bool, error) {
	const q = `
		UPDATE requests
		SET status = $2,
		    document_type = $3,
		    document_sent_at = COALESCE(document_sent_at, NOW()),
		    updated_at = NOW()
		WHERE id = $1 AND status = ANY($4)
	`
	return r.exec(q, id, models.StatusDocumentSent, docType, statusArray(from))
}

func (r *requestRepository) TransitionViewed(id string, from []models.RequestStatus) (bool, error) {
	const q = `
		UPDATE requests
		SET status = $2,
		    document_viewed_at = COALESCE(document_viewed_at, NOW()),
		    updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`
	return r.exec(q, id, models.StatusDocumentViewed, statusArray(from))
}

func (r *requestRepository) TransitionSigned(id string, from []models.RequestStatus) (bool, error) {
	const q = `
		UPDATE requests
		SET status = $2,
		    document_signed_at = COALESCE(document_signed_at, NOW()),
		    updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
	`
	return r.exec(q, id, models.StatusDocumentSigned, statusArray(from))
}

func (r *requestRepository) TransitionRejected(id string, from []models.RequestStatus, reason string) (bool, error) {
	const q = `
		UPDATE requests
		SET status = $2, reject_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = ANY($4)
	`
	return r.exec(q, id, models.StatusRejected, reason, statusArray(from))
}

func (r *requestRepository) exec(q string, args ...any) (bool, error) {
	res, err := r.DB.Exec(q, args...)
	if err != nil {
		return false, fmt.Errorf("request transition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("request transition: %w", err)
	}
	return n == 1, nil
}

func statusArray(from []models.RequestStatus) pq.StringArray {
	arr := make(pq.StringArray, len(from))
	for i, s := range from {
		arr[i] = string(s)
	}
	return arr
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.ClientRequest, error) {
	var (
		req                      models.ClientRequest
		status                   string
		iin, rejectReason, dType sql.NullString
		sentAt, viewedAt, signAt sql.NullTime
	)
	if err := row.Scan(
		&req.ID, &req.Phone, &iin, &req.OrganizationRef, &req.ReasonType, &req.ReasonText,
		&status, &rejectReason, &dType, &req.CreatedAt, &req.UpdatedAt,
		&sentAt, &viewedAt, &signAt,
	); err != nil {
		return nil, err
	}
	req.Status = models.RequestStatus(status)
	req.IIN = iin.String
	req.RejectReason = rejectReason.String
	req.DocumentType = dType.String
	req.DocumentSentAt = nullableTime(sentAt)
	req.DocumentViewedAt = nullableTime(viewedAt)
	req.DocumentSignedAt = nullableTime(signAt)
	return &req, nil
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
