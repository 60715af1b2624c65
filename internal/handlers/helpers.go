package handlers

import (
	"github.com/gin-gonic/gin"

	"mediation/internal/middleware"
)

// phoneFromCtx — телефон аутентифицированного клиента из контекста.
func phoneFromCtx(c *gin.Context) (string, bool) {
	v, ok := c.Get(middleware.ContextPhone)
	if !ok {
		return "", false
	}
	phone, ok := v.(string)
	if !ok || phone == "" {
		return "", false
	}
	return phone, true
}
