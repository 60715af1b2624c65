package models

import "time"

// VerificationRecord — одна отправка кода на номер. Каждая выдача — новая
// строка; активной считается последняя по sent_at для данного телефона.
type VerificationRecord struct {
	ID        int64     `json:"id"`
	Phone     string    `json:"phone"` // каноничный вид: 7XXXXXXXXXX
	CodeHash  string    `json:"-"`     // bcrypt, сам код не храним
	SentAt    time.Time `json:"sent_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
	Verified  bool      `json:"verified"`
}

func (v *VerificationRecord) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}
