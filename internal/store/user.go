package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/flaskr-go/flaskr/types"
	"go.opentelemetry.io/otel/attribute"
)

var userColumns = []string{"id", "username", "password"}

// UserRepository handles persistence for users.
type UserRepository struct {
	conn ConnFunc
}

func NewUserRepository(conn ConnFunc) *UserRepository {
	return &UserRepository{conn: conn}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (user types.User, err error) {
	ctx, span := startSpan(ctx, "UserRepository.GetByID", attribute.Int("user.id", id))
	defer func() { endSpan(span, err) }()

	query, args, err := sq.Select(userColumns...).
		From("user").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return types.User{}, err
	}
	return r.get(ctx, query, args...)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (user types.User, err error) {
	ctx, span := startSpan(ctx, "UserRepository.GetByUsername")
	defer func() { endSpan(span, err) }()

	query, args, err := sq.Select(userColumns...).
		From("user").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return types.User{}, err
	}
	return r.get(ctx, query, args...)
}

// Create inserts the user and returns it with its assigned ID.
// A taken username yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user types.User) (_ types.User, err error) {
	ctx, span := startSpan(ctx, "UserRepository.Create")
	defer func() { endSpan(span, err) }()

	db, err := r.conn(ctx)
	if err != nil {
		return types.User{}, err
	}

	query, args, err := sq.Insert("user").
		Columns("username", "password").
		Values(user.Username, user.PasswordHash).
		ToSql()
	if err != nil {
		return types.User{}, err
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return types.User{}, fmt.Errorf("user %q: %w", user.Username, ErrDuplicate)
		}
		return types.User{}, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return types.User{}, err
	}
	user.ID = int(id)
	return user, nil
}

func (r *UserRepository) get(ctx context.Context, query string, args ...any) (types.User, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return types.User{}, err
	}

	var user types.User
	if err := db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}
