package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/bank-cards/internal/cardquery"
	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/shopspring/decimal"
)

var cardSortColumns = map[string]string{
	"id":         "c.id",
	"balance":    "c.balance_minor",
	"expiryDate": "c.expiry_date",
	"status":     "c.status",
	"createdAt":  "c.created_at",
}

var transferSortColumns = map[string]string{
	"id":        "t.id",
	"amount":    "t.amount_minor",
	"status":    "t.status",
	"createdAt": "t.created_at",
}

// queryBuilder numbers placeholders in the order arguments are added.
// Each placeholder is used exactly once so positional binding works on both drivers.
type queryBuilder struct {
	conds []string
	args  []any
}

func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *queryBuilder) where(cond string) {
	b.conds = append(b.conds, cond)
}

func (b *queryBuilder) whereSQL() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// compileCardPredicate translates a card predicate into conditions on the cards table aliased as c.
func compileCardPredicate(b *queryBuilder, p cardquery.Predicate, today time.Time) error {
	for _, cl := range p.Clauses {
		switch cl := cl.(type) {
		case cardquery.Equals:
			switch cl.Field {
			case cardquery.FieldOwner:
				b.where("c.owner_id = " + b.arg(cl.Value))
			default:
				return fmt.Errorf("unsupported equality field %q", cl.Field)
			}
		case cardquery.PrefixOrSuffix:
			if cl.Field != cardquery.FieldNumber {
				return fmt.Errorf("unsupported partial match field %q", cl.Field)
			}
			v := escapeLike(cl.Value)
			b.where(fmt.Sprintf(`(c.card_number LIKE %s ESCAPE '\' OR c.card_number LIKE %s ESCAPE '\')`,
				b.arg(v+"%"), b.arg("%"+v)))
		case cardquery.StatusIs:
			day := models.DateOnly(today)
			switch cl.Status {
			case models.CardStatusExpired:
				b.where("c.expiry_date < " + b.arg(day))
			case models.CardStatusBlocked:
				b.where(fmt.Sprintf("(c.expiry_date >= %s AND c.status = %s)", b.arg(day), b.arg(string(models.CardStatusBlocked))))
			case models.CardStatusActive:
				b.where(fmt.Sprintf("(c.expiry_date >= %s AND c.status <> %s)", b.arg(day), b.arg(string(models.CardStatusBlocked))))
			default:
				return fmt.Errorf("unsupported status %q", cl.Status)
			}
		case cardquery.Range:
			if err := compileRange(b, cl); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported clause %T", cl)
		}
	}
	return nil
}

func compileRange(b *queryBuilder, r cardquery.Range) error {
	switch r.Field {
	case cardquery.FieldExpiry:
		if r.From != nil {
			from, ok := r.From.(time.Time)
			if !ok {
				return fmt.Errorf("expiry bound must be a time, got %T", r.From)
			}
			b.where("c.expiry_date >= " + b.arg(models.DateOnly(from)))
		}
		if r.To != nil {
			to, ok := r.To.(time.Time)
			if !ok {
				return fmt.Errorf("expiry bound must be a time, got %T", r.To)
			}
			b.where("c.expiry_date <= " + b.arg(models.DateOnly(to)))
		}
	case cardquery.FieldBalance:
		// Balances are stored in minor units, so round bounds inward to stay inclusive and exact.
		if r.From != nil {
			from, ok := r.From.(decimal.Decimal)
			if !ok {
				return fmt.Errorf("balance bound must be a decimal, got %T", r.From)
			}
			minor, err := minorUnits(from.Shift(2).Ceil())
			if err != nil {
				return fmt.Errorf("balance lower bound: %w", err)
			}
			b.where("c.balance_minor >= " + b.arg(minor))
		}
		if r.To != nil {
			to, ok := r.To.(decimal.Decimal)
			if !ok {
				return fmt.Errorf("balance bound must be a decimal, got %T", r.To)
			}
			minor, err := minorUnits(to.Shift(2).Floor())
			if err != nil {
				return fmt.Errorf("balance upper bound: %w", err)
			}
			b.where("c.balance_minor <= " + b.arg(minor))
		}
	default:
		return fmt.Errorf("unsupported range field %q", r.Field)
	}
	return nil
}

// orderBy renders an ORDER BY clause. The id column is always the final key so
// pagination is stable.
func orderBy(sort []models.SortOrder, columns map[string]string, idColumn string) (string, error) {
	parts := make([]string, 0, len(sort)+1)
	hasID := false
	for _, s := range sort {
		col, ok := columns[s.Field]
		if !ok {
			return "", fmt.Errorf("unsupported sort field %q", s.Field)
		}
		if col == idColumn {
			hasID = true
		}
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	if !hasID {
		parts = append(parts, idColumn+" ASC")
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
