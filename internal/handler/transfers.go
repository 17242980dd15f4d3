package handler

import (
	"net/http"

	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/service"
)

// CreateTransfer moves money between two of the caller's cards
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req TransferRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	transfer, err := h.transfers.CreateTransfer(r.Context(), service.TransferInput{
		UserID:      user.ID,
		FromCardID:  req.FromCardID,
		ToCardID:    req.ToCardID,
		Amount:      *req.Amount,
		Description: req.Description,
	})
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransferResponse(*transfer))
}

// TransferHistory returns a page of the transfers the caller initiated
func (h *Handler) TransferHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	page, errs := parsePageRequest(r, models.TransferSortFields)
	if len(errs) > 0 {
		RespondWithValidationError(w, errs)
		return
	}

	history, err := h.transfers.GetTransferHistory(r.Context(), user.ID, page)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MapPage(history, toTransferResponse))
}
