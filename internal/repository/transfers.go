package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dan9191/bank-cards/internal/models"
)

const transferColumns = `t.id, t.from_card_id, t.to_card_id, t.from_card_masked, t.to_card_masked, t.amount_minor,
	t.status, t.description, t.initiated_by, t.created_at, t.updated_at, t.processed_at, t.completed_at, t.cancelled_at`

func scanTransfer(row rowScanner) (*models.Transfer, error) {
	t := &models.Transfer{}
	var (
		fromID, toID                    sql.NullInt64
		amount                          int64
		status                          string
		processed, completed, cancelled sql.NullTime
	)
	err := row.Scan(&t.ID, &fromID, &toID, &t.FromCardMasked, &t.ToCardMasked, &amount,
		&status, &t.Description, &t.InitiatedBy, &t.CreatedAt, &t.UpdatedAt,
		&processed, &completed, &cancelled)
	if err != nil {
		return nil, err
	}
	if fromID.Valid {
		t.FromCardID = &fromID.Int64
	}
	if toID.Valid {
		t.ToCardID = &toID.Int64
	}
	t.Amount = fromMinor(amount)
	t.Status = models.TransferStatus(status)
	if processed.Valid {
		t.ProcessedAt = &processed.Time
	}
	if completed.Valid {
		t.CompletedAt = &completed.Time
	}
	if cancelled.Valid {
		t.CancelledAt = &cancelled.Time
	}
	return t, nil
}

// InsertTransfer stores a transfer record and sets its ID
func (r *Repository) InsertTransfer(ctx context.Context, t *models.Transfer) error {
	query := `
		INSERT INTO transfers (from_card_id, to_card_id, from_card_masked, to_card_masked, amount_minor,
			status, description, initiated_by, created_at, updated_at, processed_at, completed_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	amount, err := toMinor(t.Amount)
	if err != nil {
		return fmt.Errorf("failed to create transfer: %w", err)
	}
	err = r.q.QueryRowContext(ctx, query,
		nullInt64(t.FromCardID), nullInt64(t.ToCardID), t.FromCardMasked, t.ToCardMasked, amount,
		string(t.Status), t.Description, t.InitiatedBy, t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
		nullTimePtr(t.ProcessedAt), nullTimePtr(t.CompletedAt), nullTimePtr(t.CancelledAt),
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create transfer: %w", err)
	}
	return nil
}

// FindTransfersByInitiator returns one page of the transfers a user initiated and their total count
func (r *Repository) FindTransfersByInitiator(ctx context.Context, userID int64, page models.PageRequest) ([]models.Transfer, int64, error) {
	order, err := orderBy(page.Sort, transferSortColumns, "t.id")
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM transfers WHERE initiated_by = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transfers: %w", err)
	}
	if total == 0 {
		return []models.Transfer{}, 0, nil
	}

	query := `SELECT ` + transferColumns + ` FROM transfers t WHERE t.initiated_by = $1` + order + ` LIMIT $2 OFFSET $3`
	rows, err := r.q.QueryContext(ctx, query, userID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	transfers := []models.Transfer{}
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list transfers: %w", err)
	}
	return transfers, total, nil
}
