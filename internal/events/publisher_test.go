package events

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestNewEvent_Envelope(t *testing.T) {
	at := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.FixedZone("MSK", 3*3600))
	ev := NewEvent(CardBlocked, at, CardEvent{CardID: 7, OwnerID: 3, MaskedNumber: "**** **** **** 1234", Status: "BLOCKED"})

	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["type"] != CardBlocked {
		t.Errorf("Expected type %s, got %v", CardBlocked, decoded["type"])
	}
	if decoded["timestamp"] != "2026-03-15T09:00:00Z" {
		t.Errorf("Expected UTC timestamp, got %v", decoded["timestamp"])
	}
	data, ok := decoded["data"].(map[string]any)
	if !ok {
		t.Fatalf("Expected data object, got %T", decoded["data"])
	}
	if data["cardId"] != float64(7) || data["maskedNumber"] != "**** **** **** 1234" {
		t.Errorf("Unexpected data payload: %v", data)
	}
}

func TestLogPublisher_Publish(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)

	p := NewLogPublisher(log)
	if err := p.Publish(context.Background(), TransferEventsStream, TransferCompleted, TransferCompletedEvent{TransferID: 1}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"stream":"transfer.events"`) || !strings.Contains(out, `"type":"transfer.completed"`) {
		t.Errorf("Expected stream and type in log output, got %s", out)
	}
}
