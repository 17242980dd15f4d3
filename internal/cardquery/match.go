package cardquery

import (
	"strings"
	"time"

	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/shopspring/decimal"
)

// Matches evaluates the predicate against a single card in memory.
func (p Predicate) Matches(c models.Card, today time.Time) bool {
	for _, cl := range p.Clauses {
		if !matchClause(cl, c, today) {
			return false
		}
	}
	return true
}

func matchClause(cl Clause, c models.Card, today time.Time) bool {
	switch cl := cl.(type) {
	case Equals:
		switch cl.Field {
		case FieldOwner:
			id, ok := cl.Value.(int64)
			return ok && c.OwnerID == id
		}
	case PrefixOrSuffix:
		if cl.Field == FieldNumber {
			return strings.HasSuffix(c.CardNumber, cl.Value) || strings.HasPrefix(c.CardNumber, cl.Value)
		}
	case StatusIs:
		return c.Effective(today) == cl.Status
	case Range:
		switch cl.Field {
		case FieldExpiry:
			expiry := models.DateOnly(c.ExpiryDate)
			if from, ok := cl.From.(time.Time); ok && expiry.Before(models.DateOnly(from)) {
				return false
			}
			if to, ok := cl.To.(time.Time); ok && expiry.After(models.DateOnly(to)) {
				return false
			}
			return true
		case FieldBalance:
			if from, ok := cl.From.(decimal.Decimal); ok && c.Balance.LessThan(from) {
				return false
			}
			if to, ok := cl.To.(decimal.Decimal); ok && c.Balance.GreaterThan(to) {
				return false
			}
			return true
		}
	}
	return false
}
