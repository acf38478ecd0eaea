package types

import "time"

// Post represents a blog entry written by a user.
type Post struct {
	// ID is the unique identifier of the post, assigned by storage.
	ID int `json:"id" db:"id"`

	// Title is the required headline of the post.
	Title string `json:"title" db:"title"`

	// Body is the free-form text of the post. It may be empty.
	Body string `json:"body" db:"body"`

	// Created is the timestamp set by storage when the post was inserted.
	Created time.Time `json:"created" db:"created"`

	// AuthorID identifies the user who wrote the post.
	AuthorID int `json:"author_id" db:"author_id"`

	// Username is the author's username, populated by queries that join
	// the user table.
	Username string `json:"username" db:"username"`
}
