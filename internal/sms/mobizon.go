package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
)

const mobizonURL = "https://api.mobizon.kz/service/message/sendsmsmessage"

// MobizonGateway — отправка через Mobizon (api.mobizon.kz).
type MobizonGateway struct {
	APIKey string
	Sender string // опционально: альфа-имя отправителя
	Client *http.Client
}

func NewMobizonGateway(apiKey, sender string) *MobizonGateway {
	return &MobizonGateway{
		APIKey: apiKey,
		Sender: sender,
		Client: &http.Client{},
	}
}

func (g *MobizonGateway) Name() string { return "mobizon" }

type mobizonResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MessageID string `json:"messageId"`
	} `json:"data"`
}

func (g *MobizonGateway) Send(ctx context.Context, phone, text string) (string, error) {
	form := url.Values{
		"apiKey":    {g.APIKey},
		"recipient": {phone}, // Mobizon принимает цифры без «+» — совпадает с каноном
		"text":      {text},
	}
	if g.Sender != "" {
		form.Set("from", g.Sender)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, mobizonURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("mobizon request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrAuth
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("mobizon read response: %w", err)
	}

	var result mobizonResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("mobizon parse response: %w", err)
	}
	if result.Code != 0 {
		// код 1 у Mobizon — невалидный apiKey
		if result.Code == 1 {
			return "", ErrAuth
		}
		return "", &ProviderError{Provider: g.Name(), Code: result.Code, Message: result.Message}
	}
	return result.Data.MessageID, nil
}

// classifyTransportError — превращает сетевые сбои в таксономию шлюза.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return fmt.Errorf("sms transport: %w", err)
}
