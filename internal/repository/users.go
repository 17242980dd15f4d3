package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/bank-cards/internal/models"
)

// CreateUser creates a new user together with its roles
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.WithTx(ctx, func(tx *Repository) error {
		query := `
			INSERT INTO users (name, email, password_hash, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id`
		err := tx.q.QueryRowContext(ctx, query,
			user.Name, nullString(user.Email), user.PasswordHash, user.CreatedAt.UTC(),
		).Scan(&user.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("user name already exists: %w", ErrDuplicate)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		seen := make(map[string]bool, len(user.Roles))
		for _, role := range user.Roles {
			if seen[role] {
				continue
			}
			seen[role] = true
			if _, err := tx.q.ExecContext(ctx,
				`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, user.ID, role); err != nil {
				return fmt.Errorf("failed to assign role %s: %w", role, err)
			}
		}
		return nil
	})
}

func (r *Repository) findUser(ctx context.Context, where string, arg any) (*models.User, error) {
	user := &models.User{}
	var email sql.NullString
	query := `SELECT id, name, email, password_hash, created_at FROM users WHERE ` + where
	err := r.q.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Name, &email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	user.Email = email.String

	roles, err := r.rolesByUser(ctx, &user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles[user.ID]
	if user.Roles == nil {
		user.Roles = []string{}
	}
	return user, nil
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findUser(ctx, `id = $1`, id)
}

// FindUserByName retrieves a user by name
func (r *Repository) FindUserByName(ctx context.Context, name string) (*models.User, error) {
	return r.findUser(ctx, `name = $1`, name)
}

// ExistsByName reports whether a user with the name exists
func (r *Repository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user name: %w", err)
	}
	return exists, nil
}

// ListUsers returns all users ordered by id
func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, email, password_hash, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		var email sql.NullString
		if err := rows.Scan(&u.ID, &u.Name, &email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Email = email.String
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	rows.Close()

	roles, err := r.rolesByUser(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Roles = roles[users[i].ID]
		if users[i].Roles == nil {
			users[i].Roles = []string{}
		}
	}
	return users, nil
}

// DeleteUser removes a user, its roles, its cards and the transfers it initiated
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectAffected(res)
}

// rolesByUser loads roles in assignment order, for one user or for everyone when userID is nil
func (r *Repository) rolesByUser(ctx context.Context, userID *int64) (map[int64][]string, error) {
	query := `SELECT user_id, role FROM user_roles ORDER BY user_id, id`
	var args []any
	if userID != nil {
		query = `SELECT user_id, role FROM user_roles WHERE user_id = $1 ORDER BY id`
		args = append(args, *userID)
	}
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	defer rows.Close()

	roles := make(map[int64][]string)
	for rows.Next() {
		var uid int64
		var role string
		if err := rows.Scan(&uid, &role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles[uid] = append(roles[uid], role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	return roles, nil
}
