package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"mediation/internal/models"
	"mediation/internal/otp"
	"mediation/internal/repositories"
	"mediation/internal/sms"
	"mediation/internal/utils"
)

var (
	ErrCodeNotFound    = errors.New("no code issued for this phone")
	ErrCodeExpired     = errors.New("code expired")
	ErrCodeAlreadyUsed = errors.New("code already used")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrResendCooldown  = errors.New("resend cooldown is active")
	// ErrDeliveryFailed — шлюз исчерпал ретраи. Запись кода при этом уже
	// долговечна: если провайдер доставил SMS с опозданием, verify пройдёт.
	ErrDeliveryFailed = errors.New("sms delivery failed")
)

const (
	defaultCodeTTL        = 5 * time.Minute
	defaultMaxAttempts    = 3
	defaultResendCooldown = 60 * time.Second
	defaultCodeLength     = 4
)

type VerificationConfig struct {
	CodeTTL        time.Duration
	MaxAttempts    int
	ResendCooldown time.Duration
	CodeLength     int
}

func (c VerificationConfig) withDefaults() VerificationConfig {
	if c.CodeTTL <= 0 {
		c.CodeTTL = defaultCodeTTL
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.ResendCooldown <= 0 {
		c.ResendCooldown = defaultResendCooldown
	}
	if c.CodeLength <= 0 {
		c.CodeLength = defaultCodeLength
	}
	return c
}

// VerificationService — выдача, переотправка и проверка кодов. Мутации по
// одному телефону сериализованы KeyedMutex; поверх этого репозиторий даёт
// атомарные инкременты и одноразовое погашение.
type VerificationService struct {
	repo   repositories.VerificationRepository
	sender *sms.Sender
	cfg    VerificationConfig

	locks utils.KeyedMutex
	now   func() time.Time // подменяется в тестах
}

func NewVerificationService(repo repositories.VerificationRepository, sender *sms.Sender, cfg VerificationConfig) *VerificationService {
	return &VerificationService{
		repo:   repo,
		sender: sender,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
	}
}

// Issue — нормализует номер, пишет новую запись (она вытесняет прежний код
// для этого телефона) и отправляет SMS через шлюз. Возвращаемый id записи —
// корреляционный идентификатор выдачи; глобального состояния между issue и
// verify нет.
func (s *VerificationService) Issue(ctx context.Context, rawPhone string) (int64, error) {
	phone, err := utils.NormalizePhone(rawPhone)
	if err != nil {
		return 0, err
	}
	unlock := s.locks.Lock(phone)
	defer unlock()
	return s.issueLocked(ctx, phone)
}

// Resend — как Issue, но не раньше чем через cooldown после прошлой выдачи.
func (s *VerificationService) Resend(ctx context.Context, rawPhone string) (int64, error) {
	phone, err := utils.NormalizePhone(rawPhone)
	if err != nil {
		return 0, err
	}
	unlock := s.locks.Lock(phone)
	defer unlock()

	latest, err := s.repo.GetLatestByPhone(phone)
	if err != nil {
		return 0, err
	}
	if latest != nil && !latest.Verified && s.now().Sub(latest.SentAt) < s.cfg.ResendCooldown {
		return 0, ErrResendCooldown
	}
	return s.issueLocked(ctx, phone)
}

func (s *VerificationService) issueLocked(ctx context.Context, phone string) (int64, error) {
	code := otp.Generate(s.cfg.CodeLength)
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("bcrypt generate: %w", err)
	}

	now := s.now()
	rec := &models.VerificationRecord{
		Phone:     phone,
		CodeHash:  string(hash),
		SentAt:    now,
		ExpiresAt: now.Add(s.cfg.CodeTTL),
	}
	id, err := s.repo.Create(rec)
	if err != nil {
		return 0, err
	}

	text := fmt.Sprintf("Код подтверждения: %s", code)
	if _, err := s.sender.Send(ctx, phone, text); err != nil {
		log.Printf("[verify][issue] delivery failed: phone=%s verification_id=%d err=%v", phone, id, err)
		return id, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	log.Printf("[verify][issue] ok: phone=%s verification_id=%d", phone, id)
	return id, nil
}

// Verify — проверка кода. Попытка засчитывается до сравнения: вызов,
// упёршийся в лимит, сам расходуется и возвращает ErrTooManyAttempts, а не
// проходит молча. Несовпадение — (false, nil); остальное — ошибки-сентинелы.
func (s *VerificationService) Verify(ctx context.Context, rawPhone, code string) (bool, error) {
	_ = ctx

	phone, err := utils.NormalizePhone(rawPhone)
	if err != nil {
		return false, err
	}
	unlock := s.locks.Lock(phone)
	defer unlock()

	rec, err := s.repo.GetLatestByPhone(phone)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, ErrCodeNotFound
	}
	if rec.Verified {
		return false, ErrCodeAlreadyUsed
	}
	if rec.Expired(s.now()) {
		return false, ErrCodeExpired
	}

	attempts, err := s.repo.IncrementAttempts(rec.ID)
	if err != nil {
		return false, err
	}
	if attempts >= s.cfg.MaxAttempts {
		log.Printf("[verify][confirm] attempts exceeded: phone=%s verification_id=%d", phone, rec.ID)
		return false, ErrTooManyAttempts
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(code)) != nil {
		return false, nil
	}

	won, err := s.repo.MarkVerified(rec.ID)
	if err != nil {
		return false, err
	}
	if !won {
		// гонку выиграл параллельный verify с тем же кодом
		return false, ErrCodeAlreadyUsed
	}
	log.Printf("[verify][confirm] ok: phone=%s verification_id=%d", phone, rec.ID)
	return true, nil
}
