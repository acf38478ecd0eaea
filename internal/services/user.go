package services

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/flaskr-go/flaskr/types"
	"golang.org/x/crypto/bcrypt"
)

// ErrIncorrectPassword is returned when a password does not match the stored hash.
var ErrIncorrectPassword = errors.New("incorrect password")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo     UserRepository
	hashCost int
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo, hashCost: bcrypt.DefaultCost}
}

// WithHashCost returns a copy of the service hashing at cost. Tests use
// bcrypt.MinCost to stay fast.
func (s *UserService) WithHashCost(cost int) *UserService {
	clone := *s
	clone.hashCost = cost
	return &clone
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// Register hashes password and stores a new user. A taken username
// surfaces as store.ErrDuplicate.
func (s *UserService) Register(ctx context.Context, username, password string) (types.User, error) {
	hashed, err := bcrypt.GenerateFromPassword(passwordKey(password), s.hashCost)
	if err != nil {
		return types.User{}, err
	}
	return s.repo.Create(ctx, types.User{
		Username:     username,
		PasswordHash: string(hashed),
	})
}

// Authenticate looks the user up by username and verifies password.
// An unknown username surfaces as store.ErrNotFound.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return types.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), passwordKey(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return types.User{}, ErrIncorrectPassword
		}
		return types.User{}, err
	}
	return user, nil
}

// passwordKey is what bcrypt sees instead of the raw password. bcrypt
// rejects input over 72 bytes; the encoded SHA-256 digest is always 44.
func passwordKey(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}
