package services

import (
	"context"
	"errors"

	"github.com/flaskr-go/flaskr/types"
)

// ErrForbidden is returned when a user tries to change a post they did not write.
var ErrForbidden = errors.New("forbidden")

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	List(ctx context.Context) ([]types.Post, error)
	Get(ctx context.Context, id int) (types.Post, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
	Update(ctx context.Context, post types.Post) (types.Post, error)
	Delete(ctx context.Context, id int) error
}

// PostService encapsulates post use-cases.
type PostService struct {
	repo PostRepository
}

func NewPostService(repo PostRepository) *PostService {
	return &PostService{repo: repo}
}

func (s *PostService) List(ctx context.Context) ([]types.Post, error) {
	return s.repo.List(ctx)
}

func (s *PostService) Create(ctx context.Context, post types.Post) (types.Post, error) {
	return s.repo.Create(ctx, post)
}

// GetForMutation loads a post that userID intends to change. A missing
// post yields store.ErrNotFound; with enforceAuthor set, a post written by
// someone else yields ErrForbidden.
func (s *PostService) GetForMutation(ctx context.Context, id, userID int, enforceAuthor bool) (types.Post, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Post{}, err
	}
	if enforceAuthor && post.AuthorID != userID {
		return types.Post{}, ErrForbidden
	}
	return post, nil
}

// Update rewrites title and body only; author and creation time are kept.
func (s *PostService) Update(ctx context.Context, post types.Post, title, body string) (types.Post, error) {
	post.Title = title
	post.Body = body
	return s.repo.Update(ctx, post)
}

func (s *PostService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}
