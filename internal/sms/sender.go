package sms

import (
	"context"
	"errors"
	"log"
	"time"
)

const (
	defaultAttempts      = 3
	defaultBackoff       = 2 * time.Second
	defaultPerTryTimeout = 15 * time.Second
)

// Sender — обёртка над Gateway с ограниченными ретраями. Ретраим только
// таймауты; ErrAuth и отказ провайдера возвращаем сразу. Общий дедлайн
// ограничен сверху attempts*(per_try+backoff) и контекстом вызывающего.
type Sender struct {
	Gateway       Gateway
	Attempts      int
	Backoff       time.Duration
	PerTryTimeout time.Duration
}

func NewSender(gw Gateway) *Sender {
	return &Sender{
		Gateway:       gw,
		Attempts:      defaultAttempts,
		Backoff:       defaultBackoff,
		PerTryTimeout: defaultPerTryTimeout,
	}
}

func (s *Sender) attempts() int {
	if s.Attempts > 0 {
		return s.Attempts
	}
	return defaultAttempts
}

func (s *Sender) perTryTimeout() time.Duration {
	if s.PerTryTimeout > 0 {
		return s.PerTryTimeout
	}
	return defaultPerTryTimeout
}

// Send — до Attempts попыток с фиксированной паузой между ними.
func (s *Sender) Send(ctx context.Context, phone, text string) (string, error) {
	var lastErr error
	for try := 1; try <= s.attempts(); try++ {
		if try > 1 && s.Backoff > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(s.Backoff):
			}
		}

		tryCtx, cancel := context.WithTimeout(ctx, s.perTryTimeout())
		id, err := s.Gateway.Send(tryCtx, phone, text)
		cancel()

		if err == nil {
			if try > 1 {
				log.Printf("[sms][%s] delivered on retry %d: phone=%s id=%s", s.Gateway.Name(), try, phone, id)
			}
			return id, nil
		}
		lastErr = err
		if !retryable(err) {
			return "", err
		}
		log.Printf("[sms][%s] attempt %d/%d failed: phone=%s err=%v", s.Gateway.Name(), try, s.attempts(), phone, err)

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

func retryable(err error) bool {
	return errors.Is(err, ErrTimeout)
}
