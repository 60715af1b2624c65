package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mediation/internal/services"
	"mediation/internal/utils"
)

// VerifyHandler — HTTP-поверхность верификации телефона. Путь чувствителен
// к доверию пользователя: на каждую ошибку — конкретное действие, никакой
// общей «что-то пошло не так».
type VerifyHandler struct {
	Service    *services.VerificationService
	JWTSecret  []byte
	SessionTTL time.Duration
}

func NewVerifyHandler(service *services.VerificationService, jwtSecret []byte, sessionTTL time.Duration) *VerifyHandler {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &VerifyHandler{Service: service, JWTSecret: jwtSecret, SessionTTL: sessionTTL}
}

type phoneInput struct {
	Phone string `json:"phone" binding:"required"`
}

func (h *VerifyHandler) Issue(c *gin.Context) {
	var input phoneInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Укажите номер телефона"})
		return
	}

	id, err := h.Service.Issue(c.Request.Context(), input.Phone)
	if err != nil {
		h.issueError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"correlation_id": id})
}

func (h *VerifyHandler) Resend(c *gin.Context) {
	var input phoneInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Укажите номер телефона"})
		return
	}

	id, err := h.Service.Resend(c.Request.Context(), input.Phone)
	if err != nil {
		h.issueError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"correlation_id": id})
}

func (h *VerifyHandler) issueError(c *gin.Context, id int64, err error) {
	switch {
	case errors.Is(err, utils.ErrInvalidPhone):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат номера телефона"})
	case errors.Is(err, services.ErrResendCooldown):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Код уже отправлен, повторная отправка будет доступна через минуту"})
	case errors.Is(err, services.ErrDeliveryFailed):
		// код записан и действителен; клиент может дождаться SMS или запросить повтор
		c.JSON(http.StatusBadGateway, gin.H{
			"error":          "Не удалось отправить SMS, попробуйте запросить код повторно",
			"correlation_id": id,
		})
	default:
		log.Printf("[verify][http] issue failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Внутренняя ошибка, попробуйте позже"})
	}
}

func (h *VerifyHandler) Confirm(c *gin.Context) {
	var input struct {
		Phone string `json:"phone" binding:"required"`
		Code  string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Укажите номер телефона и код"})
		return
	}

	ok, err := h.Service.Verify(c.Request.Context(), input.Phone, input.Code)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrInvalidPhone):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат номера телефона"})
		case errors.Is(err, services.ErrCodeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Код для этого номера не выдавался, запросите новый"})
		case errors.Is(err, services.ErrCodeExpired):
			c.JSON(http.StatusGone, gin.H{"error": "Срок действия кода истёк, запросите новый"})
		case errors.Is(err, services.ErrCodeAlreadyUsed):
			c.JSON(http.StatusConflict, gin.H{"error": "Код уже использован"})
		case errors.Is(err, services.ErrTooManyAttempts):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Превышено число попыток, запросите новый код"})
		default:
			log.Printf("[verify][http] confirm failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Внутренняя ошибка, попробуйте позже"})
		}
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"verified": false, "error": "Неверный код"})
		return
	}

	phone, _ := utils.NormalizePhone(input.Phone)
	token, err := utils.NewSessionToken(h.JWTSecret, phone, h.SessionTTL)
	if err != nil {
		log.Printf("[verify][http] session token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Внутренняя ошибка, попробуйте позже"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true, "token": token})
}
