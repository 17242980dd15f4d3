package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus is the processing state of a transfer.
type TransferStatus string

// Only COMPLETED is produced today. The remaining values are reserved for
// asynchronous processing and reversals.
const (
	TransferStatusPending    TransferStatus = "PENDING"
	TransferStatusProcessing TransferStatus = "PROCESSING"
	TransferStatusCompleted  TransferStatus = "COMPLETED"
	TransferStatusFailed     TransferStatus = "FAILED"
	TransferStatusCancelled  TransferStatus = "CANCELLED"
	TransferStatusReversed   TransferStatus = "REVERSED"
)

// MaxTransferDescription bounds the free-text description of a transfer.
const MaxTransferDescription = 255

// Transfer represents a balance movement between two cards of the same user.
// FromCardID and ToCardID are nil once the referenced card has been deleted;
// the masked numbers are kept so history stays readable.
type Transfer struct {
	ID             int64           `json:"id"`
	FromCardID     *int64          `json:"from_card_id,omitempty"`
	ToCardID       *int64          `json:"to_card_id,omitempty"`
	FromCardMasked string          `json:"from_card_masked"`
	ToCardMasked   string          `json:"to_card_masked"`
	Amount         decimal.Decimal `json:"amount"`
	Status         TransferStatus  `json:"status"`
	Description    string          `json:"description,omitempty"`
	InitiatedBy    int64           `json:"initiated_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
}
