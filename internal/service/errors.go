package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrOwnerNotFound       = errors.New("card owner not found")
	ErrUserAlreadyExists   = errors.New("user with this name already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrCardNotFound        = errors.New("card not found")
	ErrCardNotActive       = errors.New("card is blocked or expired")
	ErrCardExpired         = errors.New("card has expired")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidTransfer     = errors.New("cannot transfer to the same card")
	ErrDuplicateCardNumber = errors.New("card number already exists")
	ErrInvalidCard         = errors.New("invalid card data")
	ErrInternal            = errors.New("internal error")
)

// InsufficientFundsError describes a transfer rejected for lack of funds.
type InsufficientFundsError struct {
	MaskedNumber string
	Balance      decimal.Decimal
	Amount       decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on card %s (%s) for transfer of %s",
		e.MaskedNumber, e.Balance.StringFixed(2), e.Amount.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// internal wraps an unexpected persistence failure so callers only see ErrInternal.
func internal(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}

var (
	ErrInvalidDescription = errors.New("description is too long")
	ErrInvalidRole        = errors.New("unknown role")
)
