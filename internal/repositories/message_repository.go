package repositories

import (
	"database/sql"
	"fmt"

	"mediation/internal/models"
)

// MessageRepository — append-only журнал обращения. Время ставит БД;
// порядок чтения — created_at, затем id (разрешение ничьих по вставке).
type MessageRepository interface {
	Create(requestID string, sender models.Sender, text string) (*models.Message, error)
	ListByRequest(requestID string) ([]*models.Message, error)
}

type messageRepository struct {
	DB *sql.DB
}

func NewMessageRepository(db *sql.DB) MessageRepository {
	return &messageRepository{DB: db}
}

func (r *messageRepository) Create(requestID string, sender models.Sender, text string) (*models.Message, error) {
	const q = `
		INSERT INTO messages (request_id, sender, text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	msg := &models.Message{
		RequestID: requestID,
		Sender:    sender,
		Text:      text,
	}
	if err := r.DB.QueryRow(q, requestID, sender, text).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("message create: %w", err)
	}
	return msg, nil
}

func (r *messageRepository) ListByRequest(requestID string) ([]*models.Message, error) {
	const q = `
		SELECT id, request_id, sender, text, created_at
		FROM messages
		WHERE request_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.DB.Query(q, requestID)
	if err != nil {
		return nil, fmt.Errorf("message list: %w", err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.RequestID, &msg.Sender, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("message scan: %w", err)
		}
		out = append(out, &msg)
	}
	return out, rows.Err()
}
