package store

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/flaskr-go/flaskr/types"
	"go.opentelemetry.io/otel/attribute"
)

// PostRepository handles persistence for posts.
type PostRepository struct {
	conn ConnFunc
}

func NewPostRepository(conn ConnFunc) *PostRepository {
	return &PostRepository{conn: conn}
}

// selectPosts joins every post with its author's username.
func selectPosts() sq.SelectBuilder {
	return sq.Select(
		"p.id AS id",
		"p.title AS title",
		"p.body AS body",
		"p.created AS created",
		"p.author_id AS author_id",
		"u.username AS username",
	).
		From("post p").
		Join("user u ON p.author_id = u.id")
}

// List returns all posts, newest first.
func (r *PostRepository) List(ctx context.Context) (posts []types.Post, err error) {
	ctx, span := startSpan(ctx, "PostRepository.List")
	defer func() { endSpan(span, err) }()

	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := selectPosts().
		OrderBy("p.created DESC", "p.id DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	posts = make([]types.Post, 0)
	if err := db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *PostRepository) Get(ctx context.Context, id int) (post types.Post, err error) {
	ctx, span := startSpan(ctx, "PostRepository.Get", attribute.Int("post.id", id))
	defer func() { endSpan(span, err) }()

	db, err := r.conn(ctx)
	if err != nil {
		return types.Post{}, err
	}

	query, args, err := selectPosts().
		Where(sq.Eq{"p.id": id}).
		ToSql()
	if err != nil {
		return types.Post{}, err
	}

	if err := db.GetContext(ctx, &post, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	return post, nil
}

// Create inserts the post and returns it with its assigned ID.
// Created is left to the storage default and is not populated.
func (r *PostRepository) Create(ctx context.Context, post types.Post) (_ types.Post, err error) {
	ctx, span := startSpan(ctx, "PostRepository.Create", attribute.Int("post.author_id", post.AuthorID))
	defer func() { endSpan(span, err) }()

	db, err := r.conn(ctx)
	if err != nil {
		return types.Post{}, err
	}

	query, args, err := sq.Insert("post").
		Columns("title", "body", "author_id").
		Values(post.Title, post.Body, post.AuthorID).
		ToSql()
	if err != nil {
		return types.Post{}, err
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return types.Post{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return types.Post{}, err
	}
	post.ID = int(id)
	return post, nil
}

// Update rewrites the title and body of an existing post.
func (r *PostRepository) Update(ctx context.Context, post types.Post) (_ types.Post, err error) {
	ctx, span := startSpan(ctx, "PostRepository.Update", attribute.Int("post.id", post.ID))
	defer func() { endSpan(span, err) }()

	db, err := r.conn(ctx)
	if err != nil {
		return types.Post{}, err
	}

	query, args, err := sq.Update("post").
		Set("title", post.Title).
		Set("body", post.Body).
		Where(sq.Eq{"id": post.ID}).
		ToSql()
	if err != nil {
		return types.Post{}, err
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return types.Post{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Post{}, err
	}
	if affected == 0 {
		return types.Post{}, ErrNotFound
	}
	return post, nil
}

func (r *PostRepository) Delete(ctx context.Context, id int) (err error) {
	ctx, span := startSpan(ctx, "PostRepository.Delete", attribute.Int("post.id", id))
	defer func() { endSpan(span, err) }()

	db, err := r.conn(ctx)
	if err != nil {
		return err
	}

	query, args, err := sq.Delete("post").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
