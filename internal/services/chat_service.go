package services

import (
	"errors"
	"log"
	"strings"

	"mediation/internal/models"
	"mediation/internal/realtime"
	"mediation/internal/repositories"
)

var (
	ErrEmptyMessage  = errors.New("message text is required")
	ErrUnknownSender = errors.New("unknown message sender")
)

// ChatService — журнал обращения: append-only лента сообщений плюс живые
// подписки. Подписчики после каждой записи получают полный актуальный
// список (клиенту не нужно склеивать дельты).
type ChatService struct {
	repo repositories.MessageRepository
	hub  *realtime.Hub
}

func NewChatService(repo repositories.MessageRepository, hub *realtime.Hub) *ChatService {
	return &ChatService{repo: repo, hub: hub}
}

func (s *ChatService) Append(requestID string, sender models.Sender, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if !models.ValidSender(sender) {
		return nil, ErrUnknownSender
	}

	msg, err := s.repo.Create(requestID, sender, text)
	if err != nil {
		return nil, err
	}

	// подписчикам — свежий полный список; сбой рассылки не валит запись
	list, err := s.repo.ListByRequest(requestID)
	if err != nil {
		log.Printf("[chat][append] list for broadcast failed: request_id=%s err=%v", requestID, err)
		return msg, nil
	}
	s.hub.Publish(requestID, list)
	return msg, nil
}

func (s *ChatService) List(requestID string) ([]*models.Message, error) {
	return s.repo.ListByRequest(requestID)
}

// Subscribe — живая подписка; отмена обязательна на стороне вызывающего.
func (s *ChatService) Subscribe(requestID string) *realtime.Subscription {
	return s.hub.Subscribe(requestID)
}
