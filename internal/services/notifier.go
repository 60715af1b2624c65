package services

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	gomail "gopkg.in/gomail.v2"

	"mediation/internal/models"
)

// Notifier — побочные уведомления о вехах: медиаторам в Telegram-канал,
// организации на почту. Любая часть может быть не сконфигурирована; сбой
// уведомления логируется и никогда не валит вызвавшую операцию.
type Notifier struct {
	bot      *tgbotapi.BotAPI
	tgChatID int64

	dialer   *gomail.Dialer
	from     string
	orgEmail string
}

func NewNotifier(botToken string, tgChatID int64, dialer *gomail.Dialer, from, orgEmail string) *Notifier {
	n := &Notifier{
		tgChatID: tgChatID,
		dialer:   dialer,
		from:     from,
		orgEmail: orgEmail,
	}
	if botToken != "" {
		bot, err := tgbotapi.NewBotAPI(botToken)
		if err != nil {
			log.Printf("[notify][tg] bot init failed, telegram disabled: %v", err)
		} else {
			n.bot = bot
		}
	}
	return n
}

func (n *Notifier) RequestCreated(req *models.ClientRequest) {
	n.telegram(fmt.Sprintf("Новое обращение %s: %s / %s", req.ID, req.OrganizationRef, req.ReasonType))
}

func (n *Notifier) DocumentSent(req *models.ClientRequest) {
	n.telegram(fmt.Sprintf("Обращение %s: документ «%s» отправлен клиенту", req.ID, req.DocumentType))
	n.email(
		fmt.Sprintf("Обращение %s: документ отправлен", req.ID),
		fmt.Sprintf("По обращению %s клиенту направлен документ типа «%s».", req.ID, req.DocumentType),
	)
}

func (n *Notifier) DocumentSigned(req *models.ClientRequest) {
	n.telegram(fmt.Sprintf("Обращение %s: документ подписан клиентом", req.ID))
	n.email(
		fmt.Sprintf("Обращение %s: документ подписан", req.ID),
		fmt.Sprintf("Клиент подписал документ по обращению %s (организация: %s).", req.ID, req.OrganizationRef),
	)
}

func (n *Notifier) telegram(text string) {
	if n == nil || n.bot == nil || n.tgChatID == 0 {
		return
	}
	if _, err := n.bot.Send(tgbotapi.NewMessage(n.tgChatID, text)); err != nil {
		log.Printf("[notify][tg] send failed: %v", err)
	}
}

func (n *Notifier) email(subject, body string) {
	if n == nil || n.dialer == nil || n.orgEmail == "" {
		return
	}
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.orgEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	if err := n.dialer.DialAndSend(m); err != nil {
		log.Printf("[notify][email] send failed: to=%s err=%v", n.orgEmail, err)
	}
}
