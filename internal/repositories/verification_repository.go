package repositories

import (
	"database/sql"
	"fmt"

	"mediation/internal/models"
)

// VerificationRepository — хранилище кодов подтверждения. Каждая выдача —
// новая строка; активная запись телефона — последняя по sent_at. Старые
// строки остаются как аудит, их не чистим (ленивая проверка срока).
type VerificationRepository interface {
	Create(rec *models.VerificationRecord) (int64, error)
	GetLatestByPhone(phone string) (*models.VerificationRecord, error)
	// IncrementAttempts — атомарный +1, возвращает новое значение.
	IncrementAttempts(id int64) (int, error)
	// MarkVerified — выигрывает ровно один вызов; false, если код уже погашен.
	MarkVerified(id int64) (bool, error)
}

type verificationRepository struct {
	DB *sql.DB
}

func NewVerificationRepository(db *sql.DB) VerificationRepository {
	return &verificationRepository{DB: db}
}

func (r *verificationRepository) Create(rec *models.VerificationRecord) (int64, error) {
	const q = `
		INSERT INTO verifications (phone, code_hash, sent_at, expires_at, attempts, verified)
		VALUES ($1, $2, $3, $4, 0, FALSE)
		RETURNING id
	`
	if err := r.DB.QueryRow(q, rec.Phone, rec.CodeHash, rec.SentAt, rec.ExpiresAt).Scan(&rec.ID); err != nil {
		return 0, fmt.Errorf("verification create: %w", err)
	}
	return rec.ID, nil
}

func (r *verificationRepository) GetLatestByPhone(phone string) (*models.VerificationRecord, error) {
	const q = `
		SELECT id, phone, code_hash, sent_at, expires_at, attempts, verified
		FROM verifications
		WHERE phone = $1
		ORDER BY sent_at DESC, id DESC
		LIMIT 1
	`
	row := r.DB.QueryRow(q, phone)
	var v models.VerificationRecord
	if err := row.Scan(&v.ID, &v.Phone, &v.CodeHash, &v.SentAt, &v.ExpiresAt, &v.Attempts, &v.Verified); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("verification latest: %w", err)
	}
	return &v, nil
}

func (r *verificationRepository) IncrementAttempts(id int64) (int, error) {
	const q = `
		UPDATE verifications
		SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts
	`
	var attempts int
	if err := r.DB.QueryRow(q, id).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("verification increment attempts: %w", err)
	}
	return attempts, nil
}

func (r *verificationRepository) MarkVerified(id int64) (bool, error) {
	const q = `UPDATE verifications SET verified = TRUE WHERE id = $1 AND verified = FALSE`
	res, err := r.DB.Exec(q, id)
	if err != nil {
		return false, fmt.Errorf("verification mark verified: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("verification mark verified: %w", err)
	}
	return n == 1, nil
}
