package service

import (
	"context"
	"errors"
	"time"

	"github.com/Dan9191/bank-cards/internal/cardquery"
	"github.com/Dan9191/bank-cards/internal/events"
	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/repository"
	"github.com/Dan9191/bank-cards/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DefaultUserCardPageSize  = 5
	DefaultAdminCardPageSize = 100
	MaxPageSize              = 100

	issueAttempts = 5
)

// CreateCardInput is an admin request for a card with explicit data
type CreateCardInput struct {
	OwnerID    int64
	CardNumber string
	ExpiryDate time.Time
	Balance    decimal.Decimal
}

// CreateCard creates a card with the given number, expiry and opening balance
func (s *Service) CreateCard(ctx context.Context, in CreateCardInput) (*models.Card, error) {
	if !utils.IsValidCardNumber(in.CardNumber) {
		return nil, ErrInvalidCard
	}
	if in.Balance.IsNegative() || !hasMinorScale(in.Balance) || !models.AmountInRange(in.Balance) {
		return nil, ErrInvalidAmount
	}
	return s.createCard(ctx, in)
}

// IssueCard creates a card with a generated number, a three year term and zero balance
func (s *Service) IssueCard(ctx context.Context, ownerID int64) (*models.Card, error) {
	for attempt := 0; attempt < issueAttempts; attempt++ {
		number, err := utils.GenerateCardNumber(utils.CardNumberPrefix, utils.CardNumberLength)
		if err != nil {
			return nil, internal("generate card number", err)
		}
		card, err := s.createCard(ctx, CreateCardInput{
			OwnerID:    ownerID,
			CardNumber: number,
			ExpiryDate: utils.GenerateExpiryDate(s.today()),
			Balance:    decimal.Zero,
		})
		if errors.Is(err, ErrDuplicateCardNumber) {
			s.log.Warnf("Generated card number collided, retrying (attempt %d)", attempt+1)
			continue
		}
		return card, err
	}
	return nil, internal("issue card", errors.New("could not generate a unique card number"))
}

func (s *Service) createCard(ctx context.Context, in CreateCardInput) (*models.Card, error) {
	now := s.now()
	card := &models.Card{
		CardNumber: in.CardNumber,
		OwnerID:    in.OwnerID,
		ExpiryDate: models.DateOnly(in.ExpiryDate),
		Balance:    in.Balance,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	card.Status = models.EffectiveStatus(models.CardStatusActive, card.ExpiryDate, s.today())

	err := s.inTx(ctx, func(tx *repository.Repository) error {
		owner, err := tx.FindUserByID(ctx, in.OwnerID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOwnerNotFound
		}
		if err != nil {
			return internal("find owner", err)
		}
		card.OwnerName = owner.Name

		exists, err := tx.ExistsByCardNumber(ctx, in.CardNumber)
		if err != nil {
			return internal("check card number", err)
		}
		if exists {
			return ErrDuplicateCardNumber
		}

		if err := tx.CreateCard(ctx, card); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrDuplicateCardNumber
			}
			return internal("create card", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Card %d created for user %d", card.ID, card.OwnerID)
	s.publish(ctx, events.CardEventsStream, events.CardCreated, cardEvent(card))
	return card, nil
}

// BlockCard blocks a card on behalf of an administrator. Expired cards cannot be blocked.
func (s *Service) BlockCard(ctx context.Context, cardID int64) error {
	var card *models.Card
	err := s.inTx(ctx, func(tx *repository.Repository) error {
		var err error
		card, err = s.lockCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if card.Effective(s.today()) == models.CardStatusExpired {
			return ErrCardExpired
		}
		return s.setStatus(ctx, tx, card, models.CardStatusBlocked)
	})
	if err != nil {
		s.logRejected("block card", cardID, err)
		return err
	}

	s.log.Infof("Card %d blocked", cardID)
	s.afterBlock(ctx, card)
	return nil
}

// ActivateCard lifts a block. Already active cards are left untouched.
func (s *Service) ActivateCard(ctx context.Context, cardID int64) error {
	changed := false
	var card *models.Card
	err := s.inTx(ctx, func(tx *repository.Repository) error {
		var err error
		card, err = s.lockCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		today := s.today()
		if card.Effective(today) == models.CardStatusActive {
			return nil
		}
		if !card.ExpiryDate.After(today) {
			return ErrCardExpired
		}
		changed = true
		return s.setStatus(ctx, tx, card, models.CardStatusActive)
	})
	if err != nil {
		s.logRejected("activate card", cardID, err)
		return err
	}
	if !changed {
		s.log.Debugf("Card %d already active", cardID)
		return nil
	}

	s.log.Infof("Card %d activated", cardID)
	s.publish(ctx, events.CardEventsStream, events.CardActivated, cardEvent(card))
	return nil
}

// DeleteCard removes a card. Its transfer history is kept.
func (s *Service) DeleteCard(ctx context.Context, cardID int64) error {
	var card *models.Card
	err := s.inTx(ctx, func(tx *repository.Repository) error {
		var err error
		card, err = s.lockCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if err := tx.DeleteCard(ctx, cardID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrCardNotFound
			}
			return internal("delete card", err)
		}
		return nil
	})
	if err != nil {
		s.logRejected("delete card", cardID, err)
		return err
	}

	s.log.Infof("Card %d deleted", cardID)
	s.publish(ctx, events.CardEventsStream, events.CardDeleted, cardEvent(card))
	return nil
}

// RequestBlock blocks a card on behalf of its owner. Only active cards can be blocked this way.
func (s *Service) RequestBlock(ctx context.Context, userID, cardID int64) error {
	var card *models.Card
	err := s.inTx(ctx, func(tx *repository.Repository) error {
		var err error
		card, err = tx.FindCardByIDAndOwnerForUpdate(ctx, cardID, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCardNotFound
		}
		if err != nil {
			return internal("find card", err)
		}
		if card.Effective(s.today()) != models.CardStatusActive {
			return ErrCardNotActive
		}
		return s.setStatus(ctx, tx, card, models.CardStatusBlocked)
	})
	if err != nil {
		s.logRejected("request block", cardID, err)
		return err
	}

	s.log.Infof("Card %d blocked by owner %d", cardID, userID)
	s.afterBlock(ctx, card)
	return nil
}

// GetCard returns any card by id
func (s *Service) GetCard(ctx context.Context, cardID int64) (*models.Card, error) {
	card, err := s.repo.FindCardByID(ctx, cardID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCardNotFound
	}
	if err != nil {
		return nil, internal("find card", err)
	}
	s.refreshStatus(card)
	return card, nil
}

// GetCardBalance returns a card of the user, including its balance
func (s *Service) GetCardBalance(ctx context.Context, userID, cardID int64) (*models.Card, error) {
	card, err := s.repo.FindCardByIDAndOwner(ctx, cardID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCardNotFound
	}
	if err != nil {
		return nil, internal("find card", err)
	}
	s.refreshStatus(card)
	return card, nil
}

// ListCards returns a page of all cards, ordered by id unless told otherwise
func (s *Service) ListCards(ctx context.Context, page models.PageRequest) (models.Page[models.Card], error) {
	page = normalizePage(page, DefaultAdminCardPageSize).WithDefaultSort(models.SortOrder{Field: "id"})
	return s.findCards(ctx, cardquery.Predicate{}, page)
}

// ListUserCards returns a page of the user's cards narrowed by filter
func (s *Service) ListUserCards(ctx context.Context, userID int64, filter cardquery.Filter, page models.PageRequest) (models.Page[models.Card], error) {
	if !boundInRange(filter.BalanceFrom) || !boundInRange(filter.BalanceTo) {
		return models.Page[models.Card]{}, ErrInvalidAmount
	}
	page = normalizePage(page, DefaultUserCardPageSize).WithDefaultSort(defaultUserCardSort()...)
	return s.findCards(ctx, cardquery.Build(userID, filter), page)
}

// SearchUserCards finds the user's cards whose number starts or ends with number
func (s *Service) SearchUserCards(ctx context.Context, userID int64, number string, page models.PageRequest) (models.Page[models.Card], error) {
	return s.ListUserCards(ctx, userID, cardquery.Filter{Number: number}, page)
}

// ExpireCards stores EXPIRED on cards past their expiry date and returns how many changed
func (s *Service) ExpireCards(ctx context.Context) (int64, error) {
	today := s.today()
	n, err := s.repo.MarkExpiredCards(ctx, today, s.now())
	if err != nil {
		return 0, internal("expire cards", err)
	}
	if n > 0 {
		s.log.Infof("Marked %d cards as expired", n)
		s.publish(ctx, events.CardEventsStream, events.CardsExpired, events.CardsExpiredEvent{
			Count: n,
			Day:   today.Format(time.DateOnly),
		})
	}
	return n, nil
}

func (s *Service) findCards(ctx context.Context, p cardquery.Predicate, page models.PageRequest) (models.Page[models.Card], error) {
	cards, total, err := s.repo.FindCards(ctx, p, s.today(), page)
	if err != nil {
		return models.Page[models.Card]{}, internal("list cards", err)
	}
	for i := range cards {
		s.refreshStatus(&cards[i])
	}
	return models.NewPage(cards, page, total), nil
}

func (s *Service) lockCard(ctx context.Context, tx *repository.Repository, cardID int64) (*models.Card, error) {
	card, err := tx.FindCardByIDForUpdate(ctx, cardID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCardNotFound
	}
	if err != nil {
		return nil, internal("find card", err)
	}
	return card, nil
}

func (s *Service) setStatus(ctx context.Context, tx *repository.Repository, card *models.Card, status models.CardStatus) error {
	now := s.now()
	if err := tx.UpdateCardStatus(ctx, card.ID, status, now); err != nil {
		return internal("update card status", err)
	}
	card.Status = status
	card.UpdatedAt = now
	return nil
}

// refreshStatus replaces the stored status with the one derived for today
func (s *Service) refreshStatus(card *models.Card) {
	card.Status = card.Effective(s.today())
}

func (s *Service) afterBlock(ctx context.Context, card *models.Card) {
	s.publish(ctx, events.CardEventsStream, events.CardBlocked, cardEvent(card))
	if s.notifier == nil {
		return
	}
	owner, err := s.repo.FindUserByID(ctx, card.OwnerID)
	if err != nil || owner.Email == "" {
		return
	}
	if err := s.notifier.CardBlocked(owner.Email, owner.Name, card); err != nil {
		s.log.Errorf("Failed to notify user %d about blocked card %d: %v", owner.ID, card.ID, err)
	}
}

func (s *Service) logRejected(op string, cardID int64, err error) {
	entry := s.log.WithFields(logrus.Fields{"op": op, "card_id": cardID})
	if errors.Is(err, ErrInternal) {
		entry.Errorf("Card operation failed: %v", err)
		return
	}
	entry.Warnf("Card operation rejected: %v", err)
}

func cardEvent(card *models.Card) events.CardEvent {
	return events.CardEvent{
		CardID:       card.ID,
		OwnerID:      card.OwnerID,
		MaskedNumber: card.MaskedNumber(),
		Status:       string(card.Status),
	}
}

func defaultUserCardSort() []models.SortOrder {
	return []models.SortOrder{
		{Field: "balance", Desc: true},
		{Field: "expiryDate", Desc: true},
	}
}

func normalizePage(page models.PageRequest, defaultSize int) models.PageRequest {
	if page.Page < 0 {
		page.Page = 0
	}
	if page.Size <= 0 {
		page.Size = defaultSize
	}
	if page.Size > MaxPageSize {
		page.Size = MaxPageSize
	}
	return page
}

func boundInRange(d *decimal.Decimal) bool {
	return d == nil || models.AmountInRange(*d)
}

// hasMinorScale reports whether d has at most two decimal places
func hasMinorScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}
