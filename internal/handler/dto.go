package handler

import (
	"fmt"
	"time"

	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/shopspring/decimal"
)

const dateLayout = time.DateOnly

type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type LoginRequest struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type CreateUserRequest struct {
	Name     string   `json:"name" validate:"required,min=3,max=50"`
	Password string   `json:"password" validate:"required,min=6"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Roles    []string `json:"roles" validate:"required,min=1,dive,oneof=user admin"`
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *models.User) UserResponse {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Roles:     roles,
		CreatedAt: u.CreatedAt,
	}
}

type CreateCardRequest struct {
	OwnerID    int64            `json:"owner_id" validate:"required,gt=0"`
	CardNumber string           `json:"card_number" validate:"required,len=16,number"`
	ExpiryDate string           `json:"expiry_date" validate:"required,datetime=2006-01-02"`
	Balance    *decimal.Decimal `json:"balance" validate:"required"`
}

type SearchCardsRequest struct {
	Number string `json:"number" validate:"required,min=4,max=19,number"`
}

// CardResponse is the owner's view of a card
type CardResponse struct {
	ID         int64  `json:"id"`
	CardNumber string `json:"card_number"`
	ExpiryDate string `json:"expiry_date"`
	Status     string `json:"status"`
	Balance    string `json:"balance"`
}

// AdminCardResponse adds the owner to the card view
type AdminCardResponse struct {
	CardResponse
	Owner string `json:"owner"`
}

func toCardResponse(c models.Card) CardResponse {
	return CardResponse{
		ID:         c.ID,
		CardNumber: c.MaskedNumber(),
		ExpiryDate: c.ExpiryDate.Format(dateLayout),
		Status:     string(c.Status),
		Balance:    c.Balance.StringFixed(2),
	}
}

func toAdminCardResponse(c models.Card) AdminCardResponse {
	return AdminCardResponse{
		CardResponse: toCardResponse(c),
		Owner:        fmt.Sprintf("id = %d, %s", c.OwnerID, c.OwnerName),
	}
}

type TransferRequest struct {
	FromCardID  int64            `json:"from_card_id" validate:"required,gt=0"`
	ToCardID    int64            `json:"to_card_id" validate:"required,gt=0"`
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	Description string           `json:"description" validate:"max=255"`
}

type TransferResponse struct {
	ID          int64      `json:"id"`
	FromCardID  *int64     `json:"from_card_id,omitempty"`
	ToCardID    *int64     `json:"to_card_id,omitempty"`
	FromCard    string     `json:"from_card"`
	ToCard      string     `json:"to_card"`
	Amount      string     `json:"amount"`
	Status      string     `json:"status"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func toTransferResponse(t models.Transfer) TransferResponse {
	return TransferResponse{
		ID:          t.ID,
		FromCardID:  t.FromCardID,
		ToCardID:    t.ToCardID,
		FromCard:    t.FromCardMasked,
		ToCard:      t.ToCardMasked,
		Amount:      t.Amount.StringFixed(2),
		Status:      string(t.Status),
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
}
