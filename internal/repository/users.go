package repository

import (
	"context"
	"database/sql"

	"busline/internal/database"
	apperrors "busline/internal/errors"
	"busline/internal/models"
)

// UserRepository reads actor profiles. Identity issuance is external; rows
// are provisioned by the auth service that signs the JWTs we verify.
type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, name, email, phone, role, created_at FROM users WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.Role,
		&user.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("user %d does not exist", id)
	}

	return user, err
}
