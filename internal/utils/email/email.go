package email

import (
	"fmt"
	"net/smtp"

	"github.com/Dan9191/bank-cards/internal/config"
	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	s := &Sender{
		cfg:    cfg,
		logger: logger,
	}
	s.send = s.sendSMTP
	return s
}

// TransferCompleted sends a receipt for a completed transfer
func (s *Sender) TransferCompleted(to, username string, t *models.Transfer) error {
	return s.deliver(to, "Transfer Receipt", transferBody(username, t))
}

// CardBlocked tells the owner that one of their cards has been blocked
func (s *Sender) CardBlocked(to, username string, card *models.Card) error {
	return s.deliver(to, "Card Blocked", cardBlockedBody(username, card))
}

func (s *Sender) deliver(to, subject, body string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

func (s *Sender) sendSMTP(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	return e.Send(addr, auth)
}

func transferBody(username string, t *models.Transfer) string {
	body := fmt.Sprintf("Dear %s,\n\n", username)
	body += fmt.Sprintf(
		"Your transfer of %s RUB from card %s to card %s has been completed.\n"+
			"Transfer number: %d\n"+
			"Transfer time: %s\n",
		t.Amount.StringFixed(2), t.FromCardMasked, t.ToCardMasked, t.ID,
		t.CreatedAt.Format("2006-01-02 15:04:05"),
	)
	if t.Description != "" {
		body += fmt.Sprintf("Description: %s\n", t.Description)
	}
	body += "\nBest regards,\nBank Cards"
	return body
}

func cardBlockedBody(username string, card *models.Card) string {
	body := fmt.Sprintf("Dear %s,\n\n", username)
	body += fmt.Sprintf(
		"Your card %s has been blocked.\n"+
			"If you did not request this, please contact support.\n",
		card.MaskedNumber(),
	)
	body += "\nBest regards,\nBank Cards"
	return body
}
