package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Dan9191/bank-cards/internal/cardquery"
	"github.com/Dan9191/bank-cards/internal/middleware"
	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/service"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// AccountService covers sign-up, login and user administration
type AccountService interface {
	Signup(ctx context.Context, name, password, email string) (string, error)
	Login(ctx context.Context, name, password string) (string, error)
	CreateUser(ctx context.Context, in service.CreateUserInput) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// CardService covers card administration and the owner's card views
type CardService interface {
	CreateCard(ctx context.Context, in service.CreateCardInput) (*models.Card, error)
	IssueCard(ctx context.Context, ownerID int64) (*models.Card, error)
	BlockCard(ctx context.Context, cardID int64) error
	ActivateCard(ctx context.Context, cardID int64) error
	DeleteCard(ctx context.Context, cardID int64) error
	RequestBlock(ctx context.Context, userID, cardID int64) error
	GetCard(ctx context.Context, cardID int64) (*models.Card, error)
	GetCardBalance(ctx context.Context, userID, cardID int64) (*models.Card, error)
	ListCards(ctx context.Context, page models.PageRequest) (models.Page[models.Card], error)
	ListUserCards(ctx context.Context, userID int64, filter cardquery.Filter, page models.PageRequest) (models.Page[models.Card], error)
	SearchUserCards(ctx context.Context, userID int64, number string, page models.PageRequest) (models.Page[models.Card], error)
}

// TransferService covers transfers between the user's own cards
type TransferService interface {
	CreateTransfer(ctx context.Context, in service.TransferInput) (*models.Transfer, error)
	GetTransferHistory(ctx context.Context, userID int64, page models.PageRequest) (models.Page[models.Transfer], error)
}

type Handler struct {
	accounts  AccountService
	cards     CardService
	transfers TransferService
	log       *logrus.Logger
}

func NewHandler(accounts AccountService, cards CardService, transfers TransferService, log *logrus.Logger) *Handler {
	return &Handler{accounts: accounts, cards: cards, transfers: transfers, log: log}
}

// Routes registers every endpoint. authn guards everything under /api except /api/auth.
func (h *Handler) Routes(authn mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/signup", h.Signup).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)

	user := api.NewRoute().Subrouter()
	user.Use(authn)
	user.Use(middleware.RequireRole(models.RoleUser, models.RoleAdmin))
	user.HandleFunc("/cards", h.ListMyCards).Methods(http.MethodGet)
	user.HandleFunc("/cards/search", h.SearchMyCards).Methods(http.MethodPost)
	user.HandleFunc("/cards/{id:[0-9]+}", h.GetMyCard).Methods(http.MethodGet)
	user.HandleFunc("/cards/{id:[0-9]+}/block", h.RequestBlock).Methods(http.MethodPut)
	user.HandleFunc("/transfers", h.CreateTransfer).Methods(http.MethodPost)
	user.HandleFunc("/transfers", h.TransferHistory).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authn)
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	admin.HandleFunc("/cards", h.ListCards).Methods(http.MethodGet)
	admin.HandleFunc("/cards", h.CreateCard).Methods(http.MethodPost)
	admin.HandleFunc("/cards/{id:[0-9]+}", h.GetCard).Methods(http.MethodGet)
	admin.HandleFunc("/cards/{id:[0-9]+}", h.DeleteCard).Methods(http.MethodDelete)
	admin.HandleFunc("/cards/{id:[0-9]+}/activate", h.ActivateCard).Methods(http.MethodPatch)
	admin.HandleFunc("/cards/{id:[0-9]+}/block", h.BlockCard).Methods(http.MethodPatch)
	admin.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users", h.CreateUser).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id:[0-9]+}", h.GetUser).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id:[0-9]+}", h.DeleteUser).Methods(http.MethodDelete)
	admin.HandleFunc("/users/{id:[0-9]+}/cards", h.IssueCard).Methods(http.MethodPost)

	return r
}

// NewRouter wraps the routes with request logging, panic recovery and CORS
func NewRouter(h *Handler, authn mux.MiddlewareFunc, corsOrigins []string) http.Handler {
	r := h.Routes(authn)
	r.Use(middleware.RequestLogger(h.log))
	r.Use(middleware.Recoverer(h.log))

	cors := handlers.CORS(
		handlers.AllowedOrigins(corsOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", middleware.RequestIDHeader}),
		handlers.ExposedHeaders([]string{middleware.RequestIDHeader}),
		handlers.AllowCredentials(),
	)
	return cors(r)
}

// Health reports that the process is serving
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

// respondWithServiceError maps a service error kind to its HTTP status
func (h *Handler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var funds *service.InsufficientFundsError
	switch {
	case errors.Is(err, service.ErrCardNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrOwnerNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &funds):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Message: service.ErrInsufficientFunds.Error(),
			Details: []ValidationError{{
				Field:   "amount",
				Message: funds.Error(),
				Type:    "funds",
			}},
		})
	case errors.Is(err, service.ErrCardNotActive),
		errors.Is(err, service.ErrCardExpired),
		errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidTransfer),
		errors.Is(err, service.ErrInvalidCard),
		errors.Is(err, service.ErrInvalidDescription),
		errors.Is(err, service.ErrInvalidRole):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrDuplicateCardNumber),
		errors.Is(err, service.ErrUserAlreadyExists):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, err.Error())
	default:
		h.log.WithFields(logrus.Fields{
			"request_id": middleware.RequestID(r.Context()),
			"path":       r.URL.Path,
		}).Errorf("Request failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
	}
	return user, ok
}

// decodeAndValidate reads a JSON body into req and runs its validation tags.
// It writes the 400 response itself and reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if errs := ValidateRequest(req); len(errs) > 0 {
		RespondWithValidationError(w, errs)
		return false
	}
	return true
}
