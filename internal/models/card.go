package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// CardStatus is the lifecycle state of a card.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

// Valid reports whether s is one of the known card statuses.
func (s CardStatus) Valid() bool {
	switch s {
	case CardStatusActive, CardStatusBlocked, CardStatusExpired:
		return true
	}
	return false
}

// MaxBalance is the largest amount a card balance, transfer or filter bound may
// carry. Money is stored as int64 minor units.
var MaxBalance = decimal.New(math.MaxInt64, -2)

// AmountInRange reports whether d lies within [-MaxBalance, MaxBalance].
func AmountInRange(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(MaxBalance)
}

// Card represents a bank card. Status holds the stored value; use Effective
// for anything that makes a decision.
type Card struct {
	ID         int64           `json:"id"`
	CardNumber string          `json:"-"`
	OwnerID    int64           `json:"owner_id"`
	OwnerName  string          `json:"-"`
	ExpiryDate time.Time       `json:"expiry_date"`
	Status     CardStatus      `json:"status"`
	Balance    decimal.Decimal `json:"balance"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Effective returns the status derived from the stored status and expiry date.
func (c *Card) Effective(today time.Time) CardStatus {
	return EffectiveStatus(c.Status, c.ExpiryDate, today)
}

// MaskedNumber returns the card number with everything but the last four digits hidden.
func (c *Card) MaskedNumber() string {
	return MaskCardNumber(c.CardNumber)
}

// MaskCardNumber formats a card number as "**** **** **** 1234".
func MaskCardNumber(number string) string {
	if len(number) < 4 {
		return "**** **** **** " + number
	}
	return "**** **** **** " + number[len(number)-4:]
}
