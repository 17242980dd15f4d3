package handler

import "net/http"

// Signup registers a user and returns an access token
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	token, err := h.accounts.Signup(r.Context(), req.Name, req.Password, req.Email)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, TokenResponse{Token: token})
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	token, err := h.accounts.Login(r.Context(), req.Name, req.Password)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}
