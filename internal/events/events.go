package events

import "time"

// Event types
const (
	CardCreated       = "card.created"
	CardBlocked       = "card.blocked"
	CardActivated     = "card.activated"
	CardDeleted       = "card.deleted"
	CardsExpired      = "cards.expired"
	TransferCompleted = "transfer.completed"
)

// Stream names
const (
	CardEventsStream     = "card.events"
	TransferEventsStream = "transfer.events"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Card events
type CardEvent struct {
	CardID       int64  `json:"cardId"`
	OwnerID      int64  `json:"ownerId"`
	MaskedNumber string `json:"maskedNumber"`
	Status       string `json:"status"`
}

type CardsExpiredEvent struct {
	Count int64  `json:"count"`
	Day   string `json:"day"`
}

// Transfer events
type TransferCompletedEvent struct {
	TransferID  int64  `json:"transferId"`
	UserID      int64  `json:"userId"`
	FromCard    string `json:"fromCard"`
	ToCard      string `json:"toCard"`
	Amount      string `json:"amount"`
	FromBalance string `json:"fromBalance"`
	ToBalance   string `json:"toBalance"`
}
