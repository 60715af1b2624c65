package realtime

import (
	"sync"

	"mediation/internal/models"
)

// Hub — раздача снапшотов журнала подписчикам обращения. Каждое обновление —
// полный упорядоченный список сообщений; свежий снапшот делает предыдущий
// неактуальным, поэтому медленному подписчику старый снапшот вытесняем.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{} // requestID -> подписки
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscription — одна подписка на журнал обращения. Канал C закрывается
// после Cancel; после отмены доставок не бывает.
type Subscription struct {
	C <-chan []*models.Message

	hub       *Hub
	requestID string
	ch        chan []*models.Message
	once      sync.Once
}

func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.unregister(s)
	})
}

func (h *Hub) Subscribe(requestID string) *Subscription {
	sub := &Subscription{
		hub:       h,
		requestID: requestID,
		ch:        make(chan []*models.Message, 1),
	}
	sub.C = sub.ch

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[requestID] == nil {
		h.subs[requestID] = make(map[*Subscription]struct{})
	}
	h.subs[requestID][sub] = struct{}{}
	return sub
}

func (h *Hub) unregister(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subs[sub.requestID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, sub.requestID)
		}
	}
	close(sub.ch)
}

// Publish — неблокирующая рассылка: аппендер никогда не ждёт подписчиков.
// Отправки идут под RLock, закрытие канала — под Lock, поэтому отправка в
// закрытый канал исключена.
func (h *Hub) Publish(requestID string, msgs []*models.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[requestID] {
		select {
		case sub.ch <- msgs:
		default:
			// вытесняем устаревший снапшот
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- msgs:
			default:
			}
		}
	}
}

// Subscribers — количество активных подписок обращения.
func (h *Hub) Subscribers(requestID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[requestID])
}
