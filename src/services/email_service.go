package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/el-kamal/auctify/backend/src/config"
	"github.com/el-kamal/auctify/backend/src/logger"
	"github.com/mailgun/mailgun-go/v4"
)

// EmailService sends the payment advice a seller receives once their
// settlement is included in a payment file.
type EmailService interface {
	SendPaymentAdvice(toEmail, sellerName, auctionName string, amount float64) error
}

func NewEmailService() EmailService {
	provider := strings.ToLower(config.Cfg.EmailServiceProvider)
	logger.L.Info("Initializing email service", "provider", provider)

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, or SenderEmail missing). Falling back to MockEmailService.")
			return &MockEmailService{}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		logger.L.Info("Mailgun client initialized", "domain", config.Cfg.MailgunDomain)
		return &MailgunEmailService{
			mg:          mg,
			senderEmail: config.Cfg.SenderEmail,
			senderName:  config.Cfg.SenderName,
		}
	case "smtp":
		if config.Cfg.SMTPServer == "" || config.Cfg.SMTPUser == "" || config.Cfg.SMTPPassword == "" || config.Cfg.SenderEmail == "" {
			logger.L.Warn("SMTP configuration incomplete. Falling back to MockEmailService.")
			return &MockEmailService{}
		}
		return &SMTPEmailService{
			SMTPServer:   config.Cfg.SMTPServer,
			SMTPPort:     config.Cfg.SMTPPort,
			SMTPUser:     config.Cfg.SMTPUser,
			SMTPPassword: config.Cfg.SMTPPassword,
			SenderEmail:  config.Cfg.SenderEmail,
		}
	default:
		logger.L.Info("Defaulting to MockEmailService.")
		return &MockEmailService{}
	}
}

func paymentAdviceSubject(auctionName string) string {
	return fmt.Sprintf("Avis de paiement - Vente %s", auctionName)
}

func paymentAdviceBody(sellerName, auctionName string, amount float64) string {
	return fmt.Sprintf(`Bonjour %s,

Le règlement de vos lots pour la vente %s a été intégré à notre prochaine remise bancaire.

Montant du virement : %.2f EUR

Le virement sera exécuté sous quelques jours ouvrés.

Cordialement,
L'équipe Auctify`, sellerName, auctionName, amount)
}

type SMTPEmailService struct {
	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SenderEmail  string
}

func (s *SMTPEmailService) SendPaymentAdvice(toEmail, sellerName, auctionName string, amount float64) error {
	from := s.SenderEmail
	to := []string{toEmail}
	subject := paymentAdviceSubject(auctionName)
	body := paymentAdviceBody(sellerName, auctionName, amount)

	header := make(map[string]string)
	header["From"] = from
	header["To"] = toEmail
	header["Subject"] = subject
	header["MIME-version"] = "1.0"
	header["Content-Type"] = "text/plain; charset=\"UTF-8\""
	message := ""
	for k, v := range header {
		message += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	message += "\r\n" + body
	auth := smtp.PlainAuth("", s.SMTPUser, s.SMTPPassword, s.SMTPServer)
	addr := fmt.Sprintf("%s:%d", s.SMTPServer, s.SMTPPort)
	if err := smtp.SendMail(addr, auth, from, to, []byte(message)); err != nil {
		logger.L.Error("Failed to send payment advice via SMTP", "error", err, "to", toEmail)
		return fmt.Errorf("failed to send payment advice via SMTP: %w", err)
	}
	logger.L.Info("Payment advice sent successfully via SMTP", "to", toEmail)
	return nil
}

type MailgunEmailService struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
}

func (s *MailgunEmailService) SendPaymentAdvice(toEmail, sellerName, auctionName string, amount float64) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	subject := paymentAdviceSubject(auctionName)
	body := paymentAdviceBody(sellerName, auctionName, amount)

	message := s.mg.NewMessage(from, subject, body, toEmail)
	message.AddTag("payment-advice")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()
	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send payment advice via Mailgun", "error", err, "to", toEmail, "mailgunResp", resp, "mailgunId", id)
		return fmt.Errorf("mailgun send failed: %w. Response: %s", err, resp)
	}
	logger.L.Info("Payment advice sent successfully via Mailgun", "to", toEmail, "id", id)
	return nil
}

type MockEmailService struct{}

func (m *MockEmailService) SendPaymentAdvice(toEmail, sellerName, auctionName string, amount float64) error {
	logger.L.Info("MockEmailService: Would send payment advice.",
		"to", toEmail, "seller", sellerName, "auction", auctionName, "amount", amount)
	return nil
}
