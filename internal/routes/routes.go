package routes

import (
	"github.com/gin-gonic/gin"

	"mediation/internal/handlers"
	"mediation/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	verifyHandler *handlers.VerifyHandler,
	requestHandler *handlers.RequestHandler,
	chatHandler *handlers.ChatHandler,
	jwtSecret []byte,
) *gin.Engine {

	// ---- public: верификация телефона
	verify := r.Group("/verify")
	{
		verify.POST("/issue", verifyHandler.Issue)
		verify.POST("/resend", verifyHandler.Resend)
		verify.POST("/confirm", verifyHandler.Confirm)
	}

	// ---- protected: кабинет клиента (токен выдаёт /verify/confirm)
	r.Use(middleware.AuthMiddleware(jwtSecret))

	requests := r.Group("/requests")
	{
		requests.POST("/", requestHandler.Create)
		requests.GET("/", requestHandler.List)
		requests.GET("/:id", requestHandler.Get)
		requests.POST("/:id/take", requestHandler.Take)
		requests.POST("/:id/document", requestHandler.SendDocument)
		requests.GET("/:id/document/file", requestHandler.ServeDocument)
		requests.POST("/:id/viewed", requestHandler.MarkViewed)
		requests.POST("/:id/signed", requestHandler.MarkSigned)
		requests.POST("/:id/resolve", requestHandler.Resolve)
		requests.POST("/:id/reject", requestHandler.Reject)

		requests.GET("/:id/messages", chatHandler.List)
		requests.POST("/:id/messages", chatHandler.Append)
		requests.GET("/:id/messages/ws", chatHandler.Stream)
	}

	return r
}
