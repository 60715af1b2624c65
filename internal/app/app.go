package app

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	gomail "gopkg.in/gomail.v2"

	"mediation/internal/config"
	"mediation/internal/handlers"
	"mediation/internal/pdf"
	"mediation/internal/realtime"
	"mediation/internal/repositories"
	"mediation/internal/routes"
	"mediation/internal/services"
	"mediation/internal/sms"
)

func Run() {
	cfg := config.LoadConfig()

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("Ошибка подключения к БД: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Ошибка закрытия БД: %v", err)
		}
	}()

	// === Repos ===
	verificationRepo := repositories.NewVerificationRepository(db)
	requestRepo := repositories.NewRequestRepository(db)
	messageRepo := repositories.NewMessageRepository(db)

	// === SMS-шлюз из конфига ===
	var gateway sms.Gateway
	switch cfg.SMS.Provider {
	case "mobizon":
		gateway = sms.NewMobizonGateway(cfg.SMS.Mobizon.APIKey, cfg.SMS.Mobizon.SenderID)
	case "smsc":
		gateway = sms.NewSMSCGateway(cfg.SMS.SMSC.Login, cfg.SMS.SMSC.Password, cfg.SMS.SMSC.SenderID)
	default:
		gateway = sms.DryRunGateway{}
	}
	sender := sms.NewSender(gateway)
	if cfg.SMS.Attempts > 0 {
		sender.Attempts = cfg.SMS.Attempts
	}
	if cfg.SMS.BackoffSeconds > 0 {
		sender.Backoff = time.Duration(cfg.SMS.BackoffSeconds) * time.Second
	}
	if cfg.SMS.PerTryTimeoutSeconds > 0 {
		sender.PerTryTimeout = time.Duration(cfg.SMS.PerTryTimeoutSeconds) * time.Second
	}

	// === Services ===
	verificationService := services.NewVerificationService(verificationRepo, sender, services.VerificationConfig{
		CodeTTL:        time.Duration(cfg.Verification.CodeTTLMinutes) * time.Minute,
		MaxAttempts:    cfg.Verification.MaxAttempts,
		ResendCooldown: time.Duration(cfg.Verification.ResendCooldownSeconds) * time.Second,
		CodeLength:     cfg.Verification.CodeLength,
	})

	hub := realtime.NewHub()
	chatService := services.NewChatService(messageRepo, hub)

	// PDF соглашения (нужен TTF с кириллицей)
	pdfGen := pdf.NewAgreementGenerator(cfg.Files.RootDir, cfg.Files.FontPath)

	var dialer *gomail.Dialer
	if cfg.Email.SMTPHost != "" {
		dialer = gomail.NewDialer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPassword)
	}
	notifier := services.NewNotifier(
		cfg.Telegram.BotToken,
		cfg.Telegram.ChatID,
		dialer,
		cfg.Email.FromEmail,
		cfg.Email.OrgEmail,
	)

	requestService := services.NewRequestService(requestRepo, chatService, pdfGen, notifier, cfg.Files.RootDir)

	// === Handlers ===
	jwtSecret := []byte(cfg.Auth.JWTSecret)
	sessionTTL := time.Duration(cfg.Auth.SessionTTLHours) * time.Hour
	verifyHandler := handlers.NewVerifyHandler(verificationService, jwtSecret, sessionTTL)
	requestHandler := handlers.NewRequestHandler(requestService)
	chatHandler := handlers.NewChatHandler(chatService, requestService)

	// === Gin ===
	router := gin.Default()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	routes.SetupRoutes(router, verifyHandler, requestHandler, chatHandler, jwtSecret)

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Сервер запущен на %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("Ошибка запуска сервера: ", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
