package service

import (
	"context"
	"errors"
	"sort"
	"unicode/utf8"

	"github.com/Dan9191/bank-cards/internal/events"
	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const DefaultTransferPageSize = 20

// TransferInput is a request to move money between two cards of the same user
type TransferInput struct {
	UserID      int64
	FromCardID  int64
	ToCardID    int64
	Amount      decimal.Decimal
	Description string
}

// CreateTransfer moves Amount from one card of the user to another and records the transfer.
// All checks run before any balance changes and the whole operation is one transaction.
// Both cards are row-locked in ascending id order.
func (s *Service) CreateTransfer(ctx context.Context, in TransferInput) (*models.Transfer, error) {
	if utf8.RuneCountInString(in.Description) > models.MaxTransferDescription {
		return nil, ErrInvalidDescription
	}

	txCtx, cancel := context.WithTimeout(ctx, s.config.TransferTimeout)
	defer cancel()

	var (
		user     *models.User
		from, to *models.Card
		transfer *models.Transfer
	)
	err := s.inTx(txCtx, func(tx *repository.Repository) error {
		var err error
		user, err = tx.FindUserByID(txCtx, in.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return internal("find user", err)
		}

		locked, err := lockOwnedCards(txCtx, tx, user.ID, in.FromCardID, in.ToCardID)
		if err != nil {
			return err
		}

		today := s.today()
		from = locked[in.FromCardID]
		if from == nil {
			return ErrCardNotFound
		}
		if from.Effective(today) != models.CardStatusActive {
			return ErrCardNotActive
		}
		to = locked[in.ToCardID]
		if to == nil {
			return ErrCardNotFound
		}
		if to.Effective(today) != models.CardStatusActive {
			return ErrCardNotActive
		}
		if from.ID == to.ID {
			return ErrInvalidTransfer
		}
		if from.Balance.LessThan(in.Amount) {
			return &InsufficientFundsError{
				MaskedNumber: from.MaskedNumber(),
				Balance:      from.Balance,
				Amount:       in.Amount,
			}
		}
		if !in.Amount.IsPositive() || !hasMinorScale(in.Amount) {
			return ErrInvalidAmount
		}
		credited := to.Balance.Add(in.Amount)
		if !models.AmountInRange(credited) {
			return ErrInvalidAmount
		}

		now := s.now()
		from.Balance = from.Balance.Sub(in.Amount)
		to.Balance = credited
		if err := tx.UpdateCardBalance(txCtx, from, now); err != nil {
			return internal("debit card", err)
		}
		if err := tx.UpdateCardBalance(txCtx, to, now); err != nil {
			return internal("credit card", err)
		}

		transfer = &models.Transfer{
			FromCardID:     &from.ID,
			ToCardID:       &to.ID,
			FromCardMasked: from.MaskedNumber(),
			ToCardMasked:   to.MaskedNumber(),
			Amount:         in.Amount,
			Status:         models.TransferStatusCompleted,
			Description:    in.Description,
			InitiatedBy:    user.ID,
			CreatedAt:      now,
			UpdatedAt:      now,
			ProcessedAt:    &now,
			CompletedAt:    &now,
		}
		if err := tx.InsertTransfer(txCtx, transfer); err != nil {
			return internal("record transfer", err)
		}
		return nil
	})
	if err != nil {
		s.logTransferRejected(in, err)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"transfer_id": transfer.ID,
		"user_id":     user.ID,
		"amount":      in.Amount.StringFixed(2),
	}).Infof("Transfer %d completed", transfer.ID)

	s.publish(ctx, events.TransferEventsStream, events.TransferCompleted, events.TransferCompletedEvent{
		TransferID:  transfer.ID,
		UserID:      user.ID,
		FromCard:    transfer.FromCardMasked,
		ToCard:      transfer.ToCardMasked,
		Amount:      in.Amount.StringFixed(2),
		FromBalance: from.Balance.StringFixed(2),
		ToBalance:   to.Balance.StringFixed(2),
	})
	if s.notifier != nil && user.Email != "" {
		if err := s.notifier.TransferCompleted(user.Email, user.Name, transfer); err != nil {
			s.log.Errorf("Failed to send transfer receipt for transfer %d: %v", transfer.ID, err)
		}
	}
	return transfer, nil
}

// lockOwnedCards locks the distinct requested cards owned by userID in ascending id order.
// Cards that do not exist or belong to someone else are absent from the result.
func lockOwnedCards(ctx context.Context, tx *repository.Repository, userID int64, ids ...int64) (map[int64]*models.Card, error) {
	ordered := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			ordered = append(ordered, id)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	locked := make(map[int64]*models.Card, len(ordered))
	for _, id := range ordered {
		card, err := tx.FindCardByIDAndOwnerForUpdate(ctx, id, userID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, internal("lock card", err)
		}
		locked[id] = card
	}
	return locked, nil
}

// GetTransferHistory returns a page of the transfers the user initiated, newest first by default
func (s *Service) GetTransferHistory(ctx context.Context, userID int64, page models.PageRequest) (models.Page[models.Transfer], error) {
	page = normalizePage(page, DefaultTransferPageSize).
		WithDefaultSort(models.SortOrder{Field: "createdAt", Desc: true})

	transfers, total, err := s.repo.FindTransfersByInitiator(ctx, userID, page)
	if err != nil {
		return models.Page[models.Transfer]{}, internal("list transfers", err)
	}
	return models.NewPage(transfers, page, total), nil
}

func (s *Service) logTransferRejected(in TransferInput, err error) {
	entry := s.log.WithFields(logrus.Fields{
		"user_id":      in.UserID,
		"from_card_id": in.FromCardID,
		"to_card_id":   in.ToCardID,
		"amount":       in.Amount.String(),
	})
	if errors.Is(err, ErrInternal) {
		entry.Errorf("Transfer failed: %v", err)
		return
	}
	entry.Warnf("Transfer rejected: %v", err)
}
