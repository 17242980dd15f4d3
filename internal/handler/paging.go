package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/bank-cards/internal/cardquery"
	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/shopspring/decimal"
)

const maxPageSize = 100

// parsePageRequest reads page, size and repeated sort=field,dir query parameters.
// A zero size leaves the choice of default to the service.
func parsePageRequest(r *http.Request, sortable []string) (models.PageRequest, []ValidationError) {
	var (
		req  models.PageRequest
		errs []ValidationError
	)
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, ValidationError{Field: "page", Message: "Page must be a non-negative integer", Type: "gte"})
		}
		req.Page = n
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			errs = append(errs, ValidationError{Field: "size", Message: "Size must be between 1 and 100", Type: "max"})
		}
		req.Size = n
	}

	for _, v := range q["sort"] {
		field, dir, _ := strings.Cut(v, ",")
		field = strings.TrimSpace(field)
		if !models.SortFieldAllowed(field, sortable) {
			errs = append(errs, ValidationError{
				Field:   "sort",
				Message: "Cannot sort by " + field + ", allowed: " + strings.Join(sortable, ", "),
				Type:    "oneof",
			})
			continue
		}
		order := models.SortOrder{Field: field}
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc":
		case "desc":
			order.Desc = true
		default:
			errs = append(errs, ValidationError{Field: "sort", Message: "Direction must be asc or desc", Type: "oneof"})
			continue
		}
		req.Sort = append(req.Sort, order)
	}
	return req, errs
}

// parseCardFilter reads the card listing filter from query parameters
func parseCardFilter(r *http.Request) (cardquery.Filter, []ValidationError) {
	var (
		f    cardquery.Filter
		errs []ValidationError
	)
	q := r.URL.Query()

	if v := q.Get("status"); v != "" {
		status := models.CardStatus(strings.ToUpper(v))
		if !status.Valid() {
			errs = append(errs, ValidationError{Field: "status", Message: "Value must be one of: ACTIVE BLOCKED EXPIRED", Type: "oneof"})
		} else {
			f.Status = &status
		}
	}

	parseDate := func(name string) *time.Time {
		v := q.Get(name)
		if v == "" {
			return nil
		}
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			errs = append(errs, ValidationError{Field: name, Message: "Date must have the format 2006-01-02", Type: "datetime"})
			return nil
		}
		return &t
	}
	f.ExpiryFrom = parseDate("expiryFrom")
	f.ExpiryTo = parseDate("expiryTo")

	parseAmount := func(name string) *decimal.Decimal {
		v := q.Get(name)
		if v == "" {
			return nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			errs = append(errs, ValidationError{Field: name, Message: "Value must be a non-negative amount", Type: "gte"})
			return nil
		}
		if !models.AmountInRange(d) {
			errs = append(errs, ValidationError{Field: name, Message: "Value must not exceed " + models.MaxBalance.StringFixed(2), Type: "lte"})
			return nil
		}
		return &d
	}
	f.BalanceFrom = parseAmount("balanceFrom")
	f.BalanceTo = parseAmount("balanceTo")

	return f, errs
}
