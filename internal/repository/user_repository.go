package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-scheduling-api/internal/models"
)

// UserRepository reads parties (students, instructors, committee members).
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const userColumns = `id, email, full_name, role, active, created_at, updated_at`

// FindByID returns a user or sql.ErrNoRows.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// LockByID takes a row lock on the user for the duration of the transaction.
// Concurrent enrollments of the same student serialise on this lock.
func (r *UserRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.User, error) {
	var user models.User
	if err := sqlx.GetContext(ctx, r.exec(exec), &user, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	return &user, nil
}
