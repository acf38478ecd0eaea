package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/flaskr-go/flaskr/types"
	"github.com/go-chi/chi/v5"
)

type contextKey string

const contextUserKey contextKey = "user"

// currentUser returns the user resolved for this request, if any.
func currentUser(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok
}

func withUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

func parsePostID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "postID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid post id")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	http.Error(w, message, status)
}

func internalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "internal server error")
}
