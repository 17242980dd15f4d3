package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Dan9191/bank-cards/internal/auth"
	"github.com/Dan9191/bank-cards/internal/models"
	"github.com/Dan9191/bank-cards/internal/repository"
)

// CreateUserInput describes a new user account
type CreateUserInput struct {
	Name     string
	Password string
	Email    string
	Roles    []string
}

// Signup registers a user with the "user" role and returns an access token
func (s *Service) Signup(ctx context.Context, name, password, email string) (string, error) {
	user, err := s.CreateUser(ctx, CreateUserInput{
		Name:     name,
		Password: password,
		Email:    email,
		Roles:    []string{models.RoleUser},
	})
	if err != nil {
		return "", err
	}
	return s.issueToken(user)
}

// Login authenticates a user and returns an access token
func (s *Service) Login(ctx context.Context, name, password string) (string, error) {
	user, err := s.repo.FindUserByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", internal("find user", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		s.log.Warnf("Failed login for user %s", name)
		return "", ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", err
	}
	s.log.Infof("User logged in: %s", user.Name)
	return token, nil
}

// CreateUser creates a user with the given roles, defaulting to "user"
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	roles := in.Roles
	if len(roles) == 0 {
		roles = []string{models.RoleUser}
	}
	for _, r := range roles {
		if !models.ValidRole(r) {
			return nil, ErrInvalidRole
		}
	}

	exists, err := s.repo.ExistsByName(ctx, in.Name)
	if err != nil {
		return nil, internal("check user name", err)
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	hash, err := auth.HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return nil, internal("hash password", err)
	}

	user := &models.User{
		Name:         in.Name,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    s.now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, internal("create user", err)
	}

	s.log.Infof("User registered: %s", user.Name)
	return user, nil
}

// GetUser returns a user by id
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.FindUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, internal("find user", err)
	}
	return user, nil
}

// ResolveUser returns the user behind an authenticated name
func (s *Service) ResolveUser(ctx context.Context, name string) (*models.User, error) {
	user, err := s.repo.FindUserByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, internal("find user", err)
	}
	return user, nil
}

// ListUsers returns every user
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, internal("list users", err)
	}
	return users, nil
}

// DeleteUser removes a user together with its cards
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return internal("delete user", err)
	}
	s.log.Infof("User %d deleted", id)
	return nil
}

// EnsureAdmin creates the bootstrap administrator unless a user with that name exists
func (s *Service) EnsureAdmin(ctx context.Context, name, password string) error {
	if name == "" {
		return nil
	}
	_, err := s.CreateUser(ctx, CreateUserInput{
		Name:     name,
		Password: password,
		Roles:    []string{models.RoleAdmin, models.RoleUser},
	})
	if errors.Is(err, ErrUserAlreadyExists) {
		s.log.Debugf("Admin user %s already exists", name)
		return nil
	}
	return err
}

func (s *Service) issueToken(user *models.User) (string, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", internal("issue token", err)
	}
	return token, nil
}
