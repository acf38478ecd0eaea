package types

// User represents a registered author.
type User struct {
	// ID is the unique identifier of the user, assigned by storage.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen at registration.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the salted bcrypt hash of the user's password,
	// including the algorithm and cost prefix.
	// This field is never exposed in responses.
	PasswordHash string `json:"-" db:"password"`
}
