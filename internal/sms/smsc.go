package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const smscURL = "https://smsc.kz/sys/send.php"

// SMSCGateway — запасной шлюз, smsc.kz. Взаимозаменяем с Mobizon:
// сервис верификации работает только с интерфейсом Gateway.
type SMSCGateway struct {
	Login    string
	Password string
	Sender   string
	Client   *http.Client
}

func NewSMSCGateway(login, password, sender string) *SMSCGateway {
	return &SMSCGateway{
		Login:    login,
		Password: password,
		Sender:   sender,
		Client:   &http.Client{},
	}
}

func (g *SMSCGateway) Name() string { return "smsc" }

type smscResponse struct {
	ID        json.Number `json:"id"`
	Cnt       int         `json:"cnt"`
	Error     string      `json:"error"`
	ErrorCode int         `json:"error_code"`
}

func (g *SMSCGateway) Send(ctx context.Context, phone, text string) (string, error) {
	form := url.Values{
		"login":   {g.Login},
		"psw":     {g.Password},
		"phones":  {"+" + phone}, // SMSC ждёт международный формат с «+»
		"mes":     {text},
		"fmt":     {"3"}, // JSON-ответ
		"charset": {"utf-8"},
	}
	if g.Sender != "" {
		form.Set("sender", g.Sender)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, smscURL+"?"+form.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("smsc request: %w", err)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("smsc read response: %w", err)
	}

	var result smscResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("smsc parse response: %w", err)
	}
	if result.ErrorCode != 0 {
		// error_code 2 — неверный логин/пароль
		if result.ErrorCode == 2 {
			return "", ErrAuth
		}
		return "", &ProviderError{Provider: g.Name(), Code: result.ErrorCode, Message: result.Error}
	}
	return result.ID.String(), nil
}
