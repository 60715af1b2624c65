package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"mediation/internal/models"
	"mediation/internal/realtime"
	"mediation/internal/services"
)

type ChatHandler struct {
	Chat     *services.ChatService
	Requests *services.RequestService
}

func NewChatHandler(chat *services.ChatService, requests *services.RequestService) *ChatHandler {
	return &ChatHandler{Chat: chat, Requests: requests}
}

func (h *ChatHandler) List(c *gin.Context) {
	req, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	msgs, err := h.Chat.List(req.ID)
	if err != nil {
		log.Printf("[chat][http] list failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *ChatHandler) Append(c *gin.Context) {
	req, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	var input struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Текст сообщения обязателен"})
		return
	}

	// через кабинет пишет только клиент; медиатор и организация приходят
	// своими каналами
	msg, err := h.Chat.Append(req.ID, models.SenderClient, input.Text)
	if err != nil {
		if errors.Is(err, services.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Текст сообщения обязателен"})
			return
		}
		log.Printf("[chat][http] append failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// Stream — живая лента журнала: после каждой записи подписчик получает
// полный актуальный список. Отмена подписки гарантирована defer-ом при
// любом пути выхода.
func (h *ChatHandler) Stream(c *gin.Context) {
	req, ok := h.ownedRequest(c)
	if !ok {
		return
	}

	conn, err := realtime.Upgrade(c.Writer, c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "WebSocket upgrade failed"})
		return
	}
	defer conn.Close()

	sub := h.Chat.Subscribe(req.ID)
	defer sub.Cancel()

	// начальный снапшот
	if list, err := h.Chat.List(req.ID); err == nil {
		if err := conn.WriteJSON(list); err != nil {
			return
		}
	}

	closed := make(chan struct{})
	go func() {
		conn.WaitClose()
		close(closed)
	}()

	for {
		select {
		case msgs, open := <-sub.C:
			if !open {
				return
			}
			if err := conn.WriteJSON(msgs); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func (h *ChatHandler) ownedRequest(c *gin.Context) (*models.ClientRequest, bool) {
	phone, ok := phoneFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	req, err := h.Requests.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrRequestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Обращение не найдено"})
		} else {
			log.Printf("[chat][http] get request failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load request"})
		}
		return nil, false
	}
	if req.Phone != phone {
		c.JSON(http.StatusNotFound, gin.H{"error": "Обращение не найдено"})
		return nil, false
	}
	return req, true
}
