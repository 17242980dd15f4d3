package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/service"
)

// ListMyCards returns a page of the caller's cards narrowed by the query filter
func (h *Handler) ListMyCards(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	filter, errs := parseCardFilter(r)
	page, pageErrs := parsePageRequest(r, models.CardSortFields)
	if errs = append(errs, pageErrs...); len(errs) > 0 {
		RespondWithValidationError(w, errs)
		return
	}

	cards, err := h.cards.ListUserCards(r.Context(), user.ID, filter, page)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MapPage(cards, toCardResponse))
}

// SearchMyCards finds the caller's cards whose number starts or ends with the given digits
func (h *Handler) SearchMyCards(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	page, errs := parsePageRequest(r, models.CardSortFields)
	if len(errs) > 0 {
		RespondWithValidationError(w, errs)
		return
	}
	var req SearchCardsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cards, err := h.cards.SearchUserCards(r.Context(), user.ID, req.Number, page)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MapPage(cards, toCardResponse))
}

// GetMyCard returns one of the caller's cards with its balance
func (h *Handler) GetMyCard(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid card id")
		return
	}

	card, err := h.cards.GetCardBalance(r.Context(), user.ID, id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCardResponse(*card))
}

// RequestBlock blocks one of the caller's active cards
func (h *Handler) RequestBlock(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid card id")
		return
	}

	if err := h.cards.RequestBlock(r.Context(), user.ID, id); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ListCards returns a page of every card in the system
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	page, errs := parsePageRequest(r, models.CardSortFields)
	if len(errs) > 0 {
		RespondWithValidationError(w, errs)
		return
	}

	cards, err := h.cards.ListCards(r.Context(), page)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MapPage(cards, toAdminCardResponse))
}

// GetCard returns any card by id
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid card id")
		return
	}

	card, err := h.cards.GetCard(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdminCardResponse(*card))
}

// CreateCard creates a card from explicit data
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	expiry, err := time.Parse(dateLayout, req.ExpiryDate)
	if err != nil {
		RespondWithValidationError(w, []ValidationError{{Field: "expiry_date", Message: "Date must have the format 2006-01-02", Type: "datetime"}})
		return
	}

	card, err := h.cards.CreateCard(r.Context(), service.CreateCardInput{
		OwnerID:    req.OwnerID,
		CardNumber: req.CardNumber,
		ExpiryDate: expiry,
		Balance:    *req.Balance,
	})
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdminCardResponse(*card))
}

// IssueCard creates a card with a generated number for the user in the path
func (h *Handler) IssueCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	card, err := h.cards.IssueCard(r.Context(), id)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdminCardResponse(*card))
}

// ActivateCard lifts a block
func (h *Handler) ActivateCard(w http.ResponseWriter, r *http.Request) {
	h.cardCommand(w, r, h.cards.ActivateCard)
}

// BlockCard blocks a card
func (h *Handler) BlockCard(w http.ResponseWriter, r *http.Request) {
	h.cardCommand(w, r, h.cards.BlockCard)
}

// DeleteCard removes a card
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	h.cardCommand(w, r, h.cards.DeleteCard)
}

func (h *Handler) cardCommand(w http.ResponseWriter, r *http.Request, cmd func(ctx context.Context, id int64) error) {
	id, ok := pathID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid card id")
		return
	}
	if err := cmd(r.Context(), id); err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
