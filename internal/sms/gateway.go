package sms

import (
	"context"
	"errors"
	"fmt"
	"log"
)

var (
	// ErrAuth — провайдер отверг учётные данные. Не ретраится: это
	// конфигурационная авария, а не сетевой сбой.
	ErrAuth = errors.New("sms: provider rejected credentials")
	// ErrTimeout — запрос не уложился в таймаут попытки. Ретраится.
	ErrTimeout = errors.New("sms: request timed out")
)

// ProviderError — провайдер принял запрос, но отказал в отправке
// (неверный номер, стоп-лист и т.п.). Не ретраится.
type ProviderError struct {
	Provider string
	Code     int
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("sms: %s rejected message (code=%d): %s", e.Provider, e.Code, e.Message)
}

// Gateway — абстракция «отправить текст на номер». Номер приходит в
// каноничном виде 7XXXXXXXXXX; перевод в формат конкретного провайдера —
// забота реализации.
type Gateway interface {
	Name() string
	Send(ctx context.Context, phone, text string) (messageID string, err error)
}

// DryRunGateway — режим разработки: ничего не шлём, пишем в лог.
type DryRunGateway struct{}

func (DryRunGateway) Name() string { return "dry-run" }

func (DryRunGateway) Send(_ context.Context, phone, text string) (string, error) {
	log.Printf("[sms][dry-run] to=%s text=%q", phone, text)
	return "dry-run", nil
}
