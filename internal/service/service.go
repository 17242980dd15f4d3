package service

import (
	"context"
	"time"

	"github.com/Dan9191/bank-cards/internal/config"
	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/repository"
	"github.com/sirupsen/logrus"
)

// EventPublisher receives domain events after the change is committed
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// Notifier sends customer notifications after the change is committed
type Notifier interface {
	TransferCompleted(to, username string, t *models.Transfer) error
	CardBlocked(to, username string, card *models.Card) error
}

// TokenIssuer signs access tokens for authenticated users
type TokenIssuer interface {
	Issue(user *models.User) (string, error)
}

// Service handles business logic
type Service struct {
	repo      *repository.Repository
	log       *logrus.Logger
	config    *config.Config
	tokens    TokenIssuer
	publisher EventPublisher
	notifier  Notifier
	now       func() time.Time
	loc       *time.Location
}

// Option customises a Service
type Option func(*Service)

// WithPublisher enables domain events
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithNotifier enables email notifications
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService initializes a new service
func NewService(repo *repository.Repository, log *logrus.Logger, cfg *config.Config, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		log:    log,
		config: cfg,
		tokens: tokens,
		now:    time.Now,
		loc:    cfg.Location,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	return s
}

// today is the calendar day used for expiry decisions
func (s *Service) today() time.Time {
	return models.Today(s.now(), s.loc)
}

func (s *Service) publish(ctx context.Context, stream, eventType string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, stream, eventType, data); err != nil {
		s.log.WithFields(logrus.Fields{
			"stream": stream,
			"type":   eventType,
		}).Errorf("Failed to publish event: %v", err)
	}
}

// inTx runs fn in a transaction. Failures to begin or commit are reported as internal errors.
func (s *Service) inTx(ctx context.Context, fn func(tx *repository.Repository) error) error {
	var fnErr error
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		fnErr = fn(tx)
		return fnErr
	})
	if err != nil && fnErr == nil {
		return internal("transaction", err)
	}
	return err
}
