package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"mediation/internal/models"
	"mediation/internal/services"
	"mediation/internal/utils"
)

type RequestHandler struct {
	Service *services.RequestService
}

func NewRequestHandler(service *services.RequestService) *RequestHandler {
	return &RequestHandler{Service: service}
}

func (h *RequestHandler) Create(c *gin.Context) {
	phone, ok := phoneFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var input struct {
		IIN             string `json:"iin"`
		OrganizationRef string `json:"organization_ref"`
		ReasonType      string `json:"reason_type"`
		ReasonText      string `json:"reason_text"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	req, err := h.Service.Create(services.CreateRequestInput{
		Phone:           phone,
		IIN:             input.IIN,
		OrganizationRef: input.OrganizationRef,
		ReasonType:      input.ReasonType,
		ReasonText:      input.ReasonText,
	})
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrInvalidPhone), errors.Is(err, services.ErrMissingFields):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			log.Printf("[request][http] create failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create request"})
		}
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *RequestHandler) Get(c *gin.Context) {
	req, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *RequestHandler) List(c *gin.Context) {
	phone, ok := phoneFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	reqs, err := h.Service.ListByPhone(phone)
	if err != nil {
		log.Printf("[request][http] list failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list requests"})
		return
	}
	if reqs == nil {
		reqs = []*models.ClientRequest{}
	}
	c.JSON(http.StatusOK, reqs)
}

func (h *RequestHandler) Take(c *gin.Context) {
	req, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	h.respondTransition(c, h.Service.Take(req.ID))
}

func (h *RequestHandler) SendDocument(c *gin.Context) {
	req, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	var input struct {
		DocType string `json:"doc_type"`
	}
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	h.respondTransition(c, h.Service.SendDocument(req.ID, input.DocType))
}

func (h *RequestHandler) MarkViewed(c *gin.Context) {
	req, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	h.respondTransition(c, h.Service.MarkViewed(req.ID))
}

func (h *RequestHandler) MarkSigned(c *gin.Context) {
	req, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	h.respondTransition(c, h.Service.MarkSigned(req.ID))
}

func (h *RequestHandler) Resolve(c *gin.Context) {
	req, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	h.respondTransition(c, h.Service.Resolve(req.ID))
}

func (h *RequestHandler) Reject(c *gin.Context) {
	req, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	h.respondTransition(c, h.Service.Reject(req.ID, input.Reason))
}

// ServeDocument — отдача PDF соглашения. Сам факт отдачи файла клиенту UI
// сопровождает вызовом /viewed — сервер не угадывает просмотр по скачиванию.
func (h *RequestHandler) ServeDocument(c *gin.Context) {
	req, ok := h.ownedRequest(c)
	if !ok {
		return
	}
	abs, name, err := h.Service.ResolveDocumentFile(req.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Документ недоступен"})
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+name+`"`)
	c.File(abs)
}

// ownedRequest — загрузка обращения с проверкой принадлежности телефону
// из токена; обращение чужого номера неотличимо от несуществующего.
func (h *RequestHandler) ownedRequest(c *gin.Context) (*models.ClientRequest, bool) {
	phone, ok := phoneFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	req, err := h.Service.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrRequestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Обращение не найдено"})
		} else {
			log.Printf("[request][http] get failed: %v", err)
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

func (h *RequestHandler) respondTransition(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Недопустимый переход статуса"})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Обращение обновляется, повторите попытку"})
	case errors.Is(err, services.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Обращение не найдено"})
	default:
		log.Printf("[request][http] transition failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update request"})
	}
}
