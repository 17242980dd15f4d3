package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/bank-cards/internal/cardquery"
	"github.com/Dan9191/bank-cards/internal/models"
)

const cardColumns = `c.id, c.card_number, c.owner_id, u.name, c.expiry_date, c.status, c.balance_minor, c.created_at, c.updated_at`

const cardFrom = ` FROM cards c JOIN users u ON u.id = c.owner_id`

func scanCard(row rowScanner) (*models.Card, error) {
	card := &models.Card{}
	var status string
	var balance int64
	err := row.Scan(&card.ID, &card.CardNumber, &card.OwnerID, &card.OwnerName,
		&card.ExpiryDate, &status, &balance, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return nil, err
	}
	card.Status = models.CardStatus(status)
	card.Balance = fromMinor(balance)
	card.ExpiryDate = models.DateOnly(card.ExpiryDate)
	return card, nil
}

// CreateCard inserts a card and sets its ID
func (r *Repository) CreateCard(ctx context.Context, card *models.Card) error {
	query := `
		INSERT INTO cards (card_number, owner_id, expiry_date, status, balance_minor, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	balance, err := toMinor(card.Balance)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	err = r.q.QueryRowContext(ctx, query,
		card.CardNumber, card.OwnerID, models.DateOnly(card.ExpiryDate), string(card.Status),
		balance, card.CreatedAt.UTC(), card.UpdatedAt.UTC(),
	).Scan(&card.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("card number already exists: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

func (r *Repository) findCard(ctx context.Context, where string, lock bool, args ...any) (*models.Card, error) {
	query := `SELECT ` + cardColumns + cardFrom + ` WHERE ` + where
	if lock {
		query += r.lockSuffix("c")
	}
	card, err := scanCard(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card: %w", err)
	}
	return card, nil
}

// FindCardByID retrieves a card by id
func (r *Repository) FindCardByID(ctx context.Context, id int64) (*models.Card, error) {
	return r.findCard(ctx, `c.id = $1`, false, id)
}

// FindCardByIDForUpdate retrieves a card by id and locks its row until the transaction ends
func (r *Repository) FindCardByIDForUpdate(ctx context.Context, id int64) (*models.Card, error) {
	return r.findCard(ctx, `c.id = $1`, true, id)
}

// FindCardByIDAndOwner retrieves a card by id only if it belongs to ownerID
func (r *Repository) FindCardByIDAndOwner(ctx context.Context, id, ownerID int64) (*models.Card, error) {
	return r.findCard(ctx, `c.id = $1 AND c.owner_id = $2`, false, id, ownerID)
}

// FindCardByIDAndOwnerForUpdate is FindCardByIDAndOwner with a row lock
func (r *Repository) FindCardByIDAndOwnerForUpdate(ctx context.Context, id, ownerID int64) (*models.Card, error) {
	return r.findCard(ctx, `c.id = $1 AND c.owner_id = $2`, true, id, ownerID)
}

// FindCardByNumber retrieves a card by its full number
func (r *Repository) FindCardByNumber(ctx context.Context, number string) (*models.Card, error) {
	return r.findCard(ctx, `c.card_number = $1`, false, number)
}

// ExistsByCardNumber reports whether a card with the number exists
func (r *Repository) ExistsByCardNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cards WHERE card_number = $1)`, number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check card number: %w", err)
	}
	return exists, nil
}

// UpdateCardStatus sets the stored status of a card
func (r *Repository) UpdateCardStatus(ctx context.Context, id int64, status models.CardStatus, now time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE cards SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), now.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update card status: %w", err)
	}
	return expectAffected(res)
}

// UpdateCardBalance sets the balance of a card
func (r *Repository) UpdateCardBalance(ctx context.Context, card *models.Card, now time.Time) error {
	balance, err := toMinor(card.Balance)
	if err != nil {
		return fmt.Errorf("failed to update card balance: %w", err)
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE cards SET balance_minor = $1, updated_at = $2 WHERE id = $3`,
		balance, now.UTC(), card.ID)
	if err != nil {
		return fmt.Errorf("failed to update card balance: %w", err)
	}
	card.UpdatedAt = now
	return expectAffected(res)
}

// DeleteCard removes a card. Transfers referencing it keep their masked numbers.
func (r *Repository) DeleteCard(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	return expectAffected(res)
}

// FindCards returns one page of cards matching the predicate and the total number of matches
func (r *Repository) FindCards(ctx context.Context, p cardquery.Predicate, today time.Time, page models.PageRequest) ([]models.Card, int64, error) {
	b := &queryBuilder{}
	if err := compileCardPredicate(b, p, today); err != nil {
		return nil, 0, fmt.Errorf("failed to compile card filter: %w", err)
	}
	order, err := orderBy(page.Sort, cardSortColumns, "c.id")
	if err != nil {
		return nil, 0, err
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM cards c` + b.whereSQL()
	if err := r.q.QueryRowContext(ctx, countQuery, b.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cards: %w", err)
	}
	if total == 0 {
		return []models.Card{}, 0, nil
	}

	where := b.whereSQL()
	query := `SELECT ` + cardColumns + cardFrom + where + order +
		` LIMIT ` + b.arg(page.Size) + ` OFFSET ` + b.arg(page.Offset())
	rows, err := r.q.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	cards := []models.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, total, nil
}

// MarkExpiredCards stores EXPIRED on every card whose expiry date is before today
func (r *Repository) MarkExpiredCards(ctx context.Context, today, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE cards SET status = $1, updated_at = $2 WHERE expiry_date < $3 AND status <> $4`,
		string(models.CardStatusExpired), now.UTC(), models.DateOnly(today), string(models.CardStatusExpired))
	if err != nil {
		return 0, fmt.Errorf("failed to mark expired cards: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
