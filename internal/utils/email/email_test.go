package email

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/bank-cards/internal/config"
	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func newTestSender(send func(e *email.Email) error) *Sender {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	s := NewSender(&config.Config{SenderEmail: "bank@example.com"}, log)
	s.send = send
	return s
}

func TestTransferCompleted(t *testing.T) {
	var sent *email.Email
	s := newTestSender(func(e *email.Email) error {
		sent = e
		return nil
	})

	tr := &models.Transfer{
		ID:             12,
		FromCardMasked: "**** **** **** 1111",
		ToCardMasked:   "**** **** **** 2222",
		Amount:         decimal.RequireFromString("1000.5"),
		Description:    "rent",
		CreatedAt:      time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC),
	}
	if err := s.TransferCompleted("alice@example.com", "alice", tr); err != nil {
		t.Fatalf("TransferCompleted failed: %v", err)
	}

	if sent == nil {
		t.Fatal("Expected an email to be sent")
	}
	if sent.From != "bank@example.com" || len(sent.To) != 1 || sent.To[0] != "alice@example.com" {
		t.Errorf("Unexpected envelope: from %s to %v", sent.From, sent.To)
	}
	body := string(sent.Text)
	for _, want := range []string{"Dear alice", "1000.50 RUB", "**** **** **** 1111", "**** **** **** 2222", "Transfer number: 12", "2026-03-15 10:30:00", "Description: rent"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected body to contain %q, got:\n%s", want, body)
		}
	}
}

func TestCardBlocked(t *testing.T) {
	var sent *email.Email
	s := newTestSender(func(e *email.Email) error {
		sent = e
		return nil
	})

	card := &models.Card{CardNumber: "4000001234567890"}
	if err := s.CardBlocked("alice@example.com", "alice", card); err != nil {
		t.Fatalf("CardBlocked failed: %v", err)
	}
	body := string(sent.Text)
	if !strings.Contains(body, "**** **** **** 7890") {
		t.Errorf("Expected masked number in body, got:\n%s", body)
	}
	if strings.Contains(body, "4000001234567890") {
		t.Error("Body must not contain the full card number")
	}
	if sent.Subject != "Card Blocked" {
		t.Errorf("Unexpected subject %s", sent.Subject)
	}
}

func TestDeliver_SendError(t *testing.T) {
	s := newTestSender(func(e *email.Email) error {
		return errors.New("connection refused")
	})
	err := s.CardBlocked("alice@example.com", "alice", &models.Card{CardNumber: "4000001234567890"})
	if err == nil || !strings.Contains(err.Error(), "failed to send email") {
		t.Errorf("Expected wrapped send error, got %v", err)
	}
}
