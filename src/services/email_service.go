package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/username/budgetfolio/backend/src/config"
	"github.com/username/budgetfolio/backend/src/logger"
)

type EmailService interface {
	SendVerificationEmail(toEmail, username, token string) error
	SendPasswordResetEmail(toEmail, username, token string) error
	SendPaymentReminderEmail(toEmail, clientName, invoiceNumber string, remaining float64, dueDate time.Time) error
	SendOverdueSummaryEmail(toEmail, username string, overdueCount int, totalOutstanding float64) error
}

func NewEmailService() EmailService {
	if config.Cfg == nil {
		slog.Error("Configuration (config.Cfg) is nil. Email service will default to mock.")
		return &MockEmailService{}
	}

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

func reminderBodies(clientName, invoiceNumber string, remaining float64, dueDate time.Time) (subject, plain, html string) {
	subject = fmt.Sprintf("Promemoria pagamento fattura %s", invoiceNumber)
	plain = fmt.Sprintf(`Gentile %s,

la fattura %s risulta ancora da saldare per un importo di %.2f EUR.
La scadenza era il %s.

La preghiamo di provvedere al pagamento.

Grazie`, clientName, invoiceNumber, remaining, dueDate.Format("02/01/2006"))

	html = fmt.Sprintf(`
	<html>
		<body style="font-family: Arial, sans-serif; line-height: 1.6;">
			<p>Gentile %s,</p>
			<p>la fattura <strong>%s</strong> risulta ancora da saldare per un importo di <strong>%.2f EUR</strong>.</p>
			<p>La scadenza era il %s.</p>
			<p>La preghiamo di provvedere al pagamento.</p>
			<p>Grazie</p>
		</body>
	</html>`, clientName, invoiceNumber, remaining, dueDate.Format("02/01/2006"))
	return subject, plain, html
}

func summaryBodies(username string, overdueCount int, totalOutstanding float64) (subject, plain string) {
	subject = "Fatture scadute in attesa di pagamento"
	plain = fmt.Sprintf(`Ciao %s,

hai %d fatture scadute per un totale di %.2f EUR ancora da incassare.
Accedi per i dettagli e per inviare i solleciti.`, username, overdueCount, totalOutstanding)
	return subject, plain
}

func verificationBodies(username, token string) (subject, plain string) {
	link := fmt.Sprintf("%s/verify-email?token=%s", config.Cfg.FrontendBaseURL, token)
	subject = "Conferma il tuo indirizzo email"
	plain = fmt.Sprintf(`Ciao %s,

per completare la registrazione conferma il tuo indirizzo email:

%s

Il link scade tra 24 ore. Se non hai richiesto la registrazione ignora questa email.`, username, link)
	return subject, plain
}

func resetBodies(username, token string) (subject, plain string) {
	link := fmt.Sprintf("%s/reset-password?token=%s", config.Cfg.FrontendBaseURL, token)
	subject = "Reimposta la tua password"
	plain = fmt.Sprintf(`Ciao %s,

abbiamo ricevuto una richiesta di reimpostazione della password:

%s

Il link scade tra 1 ora. Se non hai fatto tu la richiesta ignora questa email.`, username, link)
	return subject, plain
}

type SMTPEmailService struct {
	SMTPServer   string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SenderEmail  string
}

func (s *SMTPEmailService) sendPlain(toEmail, subject, body string) error {
	header := make(map[string]string)
	header["From"] = s.SenderEmail
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
	return smtp.SendMail(addr, auth, s.SenderEmail, []string{toEmail}, []byte(message))
}

func (s *SMTPEmailService) SendVerificationEmail(toEmail, username, token string) error {
	subject, plain := verificationBodies(username, token)
	if err := s.sendPlain(toEmail, subject, plain); err != nil {
		logger.L.Error("Failed to send verification email via SMTP", "error", err, "to", toEmail)
		return fmt.Errorf("failed to send verification email via SMTP: %w", err)
	}
	logger.L.Info("Verification email sent via SMTP", "to", toEmail)
	return nil
}

func (s *SMTPEmailService) SendPasswordResetEmail(toEmail, username, token string) error {
	subject, plain := resetBodies(username, token)
	if err := s.sendPlain(toEmail, subject, plain); err != nil {
		logger.L.Error("Failed to send password reset email via SMTP", "error", err, "to", toEmail)
		return fmt.Errorf("failed to send password reset email via SMTP: %w", err)
	}
	logger.L.Info("Password reset email sent via SMTP", "to", toEmail)
	return nil
}

func (s *SMTPEmailService) SendPaymentReminderEmail(toEmail, clientName, invoiceNumber string, remaining float64, dueDate time.Time) error {
	subject, plain, _ := reminderBodies(clientName, invoiceNumber, remaining, dueDate)
	if err := s.sendPlain(toEmail, subject, plain); err != nil {
		logger.L.Error("Failed to send payment reminder via SMTP", "error", err, "to", toEmail)
		return fmt.Errorf("failed to send payment reminder via SMTP: %w", err)
	}
	logger.L.Info("Payment reminder sent via SMTP", "to", toEmail, "invoice", invoiceNumber)
	return nil
}

func (s *SMTPEmailService) SendOverdueSummaryEmail(toEmail, username string, overdueCount int, totalOutstanding float64) error {
	subject, plain := summaryBodies(username, overdueCount, totalOutstanding)
	if err := s.sendPlain(toEmail, subject, plain); err != nil {
		logger.L.Error("Failed to send overdue summary via SMTP", "error", err, "to", toEmail)
		return fmt.Errorf("failed to send overdue summary via SMTP: %w", err)
	}
	logger.L.Info("Overdue summary sent via SMTP", "to", toEmail)
	return nil
}

type MailgunEmailService struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
}

func (s *MailgunEmailService) sendTagged(toEmail, subject, plain, tag string) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	message := s.mg.NewMessage(from, subject, plain, toEmail)
	message.AddTag(tag)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()
	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send email via Mailgun", "error", err, "to", toEmail, "tag", tag, "mailgunResp", resp, "mailgunId", id)
		return fmt.Errorf("mailgun send failed: %w. Response: %s", err, resp)
	}
	logger.L.Info("Email sent via Mailgun", "to", toEmail, "tag", tag, "id", id)
	return nil
}

func (s *MailgunEmailService) SendVerificationEmail(toEmail, username, token string) error {
	subject, plain := verificationBodies(username, token)
	return s.sendTagged(toEmail, subject, plain, "email-verification")
}

func (s *MailgunEmailService) SendPasswordResetEmail(toEmail, username, token string) error {
	subject, plain := resetBodies(username, token)
	return s.sendTagged(toEmail, subject, plain, "password-reset")
}

func (s *MailgunEmailService) SendPaymentReminderEmail(toEmail, clientName, invoiceNumber string, remaining float64, dueDate time.Time) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	subject, plain, html := reminderBodies(clientName, invoiceNumber, remaining, dueDate)

	message := s.mg.NewMessage(from, subject, plain, toEmail)
	message.SetHtml(html)
	message.AddTag("payment-reminder")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()
	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send payment reminder via Mailgun", "error", err, "to", toEmail, "mailgunResp", resp, "mailgunId", id)
		return fmt.Errorf("mailgun send failed: %w. Response: %s", err, resp)
	}
	logger.L.Info("Payment reminder sent via Mailgun", "to", toEmail, "invoice", invoiceNumber, "id", id)
	return nil
}

func (s *MailgunEmailService) SendOverdueSummaryEmail(toEmail, username string, overdueCount int, totalOutstanding float64) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	subject, plain := summaryBodies(username, overdueCount, totalOutstanding)

	message := s.mg.NewMessage(from, subject, plain, toEmail)
	message.AddTag("overdue-summary")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()
	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send overdue summary via Mailgun", "error", err, "to", toEmail, "mailgunResp", resp, "mailgunId", id)
		return fmt.Errorf("mailgun send failed for overdue summary: %w. Response: %s", err, resp)
	}
	logger.L.Info("Overdue summary sent via Mailgun", "to", toEmail, "id", id)
	return nil
}

type MockEmailService struct{}

func (m *MockEmailService) SendVerificationEmail(toEmail, username, token string) error {
	logger.L.Info("MockEmailService: Would send verification email.",
		"to", toEmail, "username", username, "token", token)
	return nil
}

func (m *MockEmailService) SendPasswordResetEmail(toEmail, username, token string) error {
	logger.L.Info("MockEmailService: Would send password reset email.",
		"to", toEmail, "username", username, "token", token)
	return nil
}

func (m *MockEmailService) SendPaymentReminderEmail(toEmail, clientName, invoiceNumber string, remaining float64, dueDate time.Time) error {
	logger.L.Info("MockEmailService: Would send payment reminder.",
		"to", toEmail, "client", clientName, "invoice", invoiceNumber,
		"remaining", remaining, "dueDate", dueDate.Format("2006-01-02"))
	return nil
}

func (m *MockEmailService) SendOverdueSummaryEmail(toEmail, username string, overdueCount int, totalOutstanding float64) error {
	logger.L.Info("MockEmailService: Would send overdue summary.",
		"to", toEmail, "username", username, "overdueCount", overdueCount, "totalOutstanding", totalOutstanding)
	return nil
}
