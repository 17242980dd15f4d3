// Package cardquery composes the predicate used to list and search cards.
//
// A Predicate is a conjunction of clauses. Each clause is one of a small set of
// tagged variants (Equals, Range, PrefixOrSuffix, StatusIs) that the storage layer
// compiles into its own query language. Filter fields that are not set contribute
// no clause at all.
package cardquery

import (
	"strings"
	"time"

	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/shopspring/decimal"
)

// Field names a card attribute a clause can constrain.
type Field string

const (
	FieldOwner   Field = "owner"
	FieldNumber  Field = "number"
	FieldExpiry  Field = "expiry"
	FieldBalance Field = "balance"
)

// Clause is one conjunct of a Predicate.
type Clause interface {
	clause()
}

// Equals constrains Field to exactly Value.
type Equals struct {
	Field Field
	Value any
}

// Range constrains Field to [From, To]. A nil bound is open.
// Expiry bounds are time.Time, balance bounds are decimal.Decimal.
type Range struct {
	Field Field
	From  any
	To    any
}

// PrefixOrSuffix matches when Field starts with or ends with Value.
type PrefixOrSuffix struct {
	Field Field
	Value string
}

// StatusIs matches cards whose effective status on the query day equals Status.
type StatusIs struct {
	Status models.CardStatus
}

func (Equals) clause()         {}
func (Range) clause()          {}
func (PrefixOrSuffix) clause() {}
func (StatusIs) clause()       {}

// Predicate is the AND of its clauses. The zero value matches every card.
type Predicate struct {
	Clauses []Clause
}

// And returns a predicate with c appended.
func (p Predicate) And(c Clause) Predicate {
	clauses := make([]Clause, len(p.Clauses), len(p.Clauses)+1)
	copy(clauses, p.Clauses)
	p.Clauses = append(clauses, c)
	return p
}

// Filter carries the optional listing constraints. Nil pointers and an empty
// Number mean "no constraint".
type Filter struct {
	Status      *models.CardStatus
	ExpiryFrom  *time.Time
	ExpiryTo    *time.Time
	BalanceFrom *decimal.Decimal
	BalanceTo   *decimal.Decimal
	Number      string
}

// Build composes the predicate for the cards of ownerID narrowed by f.
func Build(ownerID int64, f Filter) Predicate {
	p := Predicate{}.And(Equals{Field: FieldOwner, Value: ownerID})

	if number := strings.TrimSpace(f.Number); number != "" {
		p = p.And(PrefixOrSuffix{Field: FieldNumber, Value: number})
	}
	if f.Status != nil {
		p = p.And(StatusIs{Status: *f.Status})
	}
	if f.ExpiryFrom != nil || f.ExpiryTo != nil {
		r := Range{Field: FieldExpiry}
		if f.ExpiryFrom != nil {
			r.From = models.DateOnly(*f.ExpiryFrom)
		}
		if f.ExpiryTo != nil {
			r.To = models.DateOnly(*f.ExpiryTo)
		}
		p = p.And(r)
	}
	if f.BalanceFrom != nil || f.BalanceTo != nil {
		r := Range{Field: FieldBalance}
		if f.BalanceFrom != nil {
			r.From = *f.BalanceFrom
		}
		if f.BalanceTo != nil {
			r.To = *f.BalanceTo
		}
		p = p.And(r)
	}
	return p
}
