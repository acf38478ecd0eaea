package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/flaskr-go/flaskr/internal/logging"
	"github.com/flaskr-go/flaskr/internal/services"
	"github.com/flaskr-go/flaskr/internal/session"
	"github.com/flaskr-go/flaskr/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	loginPath = "/auth/login"
	indexPath = "/"

	formFieldUsername = "username"
	formFieldPassword = "password"
)

// AuthHandler provides registration and session endpoints.
type AuthHandler struct {
	userService *services.UserService
	sessions    *session.Manager
	renderer    *Renderer
	logger      logging.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, sessions *session.Manager, renderer *Renderer, logger logging.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		sessions:    sessions,
		renderer:    renderer,
		logger:      logger,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Get("/register", handler.RegisterForm)
	r.Post("/register", handler.Register)
	r.Get("/login", handler.LoginForm)
	r.Post("/login", handler.Login)
	r.Get("/logout", handler.Logout)
}

// LoadLoggedInUser resolves the session's user id into a user record for
// every request. A missing id, or an id with no matching user, leaves the
// request anonymous; the stale cookie is not cleared.
func LoadLoggedInUser(userService *services.UserService, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID, ok := session.FromContext(ctx).UserID()
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := userService.GetByID(ctx, userID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					next.ServeHTTP(w, r)
					return
				}
				logger.Error(ctx, "load logged in user failed", "user_id", userID, "error", err, "request_id", middleware.GetReqID(ctx))
				internalError(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(ctx, user)))
		})
	}
}

// RequireLogin sends anonymous callers to the login page instead of next.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := currentUser(r.Context()); !ok {
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, pageRegister, pageData{})
}

// Register creates a new account and sends the caller to the login page.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, msg := parseCredentials(r)
	if msg == "" {
		_, err := h.userService.Register(ctx, req.Username, req.Password)
		switch {
		case err == nil:
			h.logger.Info(ctx, "user registered", "username", req.Username)
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		case errors.Is(err, store.ErrDuplicate):
			msg = fmt.Sprintf("User %s is already registered.", req.Username)
		default:
			h.logger.Error(ctx, "register failed", "error", err, "request_id", middleware.GetReqID(ctx))
			internalError(w)
			return
		}
	}

	session.FromContext(ctx).AddFlash(msg)
	h.renderer.Render(w, r, pageRegister, pageData{Form: map[string]string{formFieldUsername: req.Username}})
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, pageLogin, pageData{})
}

// Login verifies credentials and starts a fresh session for the user.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, msg := parseCredentials(r)
	if msg == "" {
		user, err := h.userService.Authenticate(ctx, req.Username, req.Password)
		switch {
		case err == nil:
			sess := session.FromContext(ctx)
			sess.Clear()
			sess.SetUserID(user.ID)
			if err := h.sessions.Save(w, sess); err != nil {
				h.logger.Error(ctx, "save session failed", "error", err, "request_id", middleware.GetReqID(ctx))
				internalError(w)
				return
			}
			http.Redirect(w, r, indexPath, http.StatusFound)
			return
		case errors.Is(err, store.ErrNotFound):
			msg = "Incorrect username."
		case errors.Is(err, services.ErrIncorrectPassword):
			msg = "Incorrect password."
		default:
			h.logger.Error(ctx, "login failed", "error", err, "request_id", middleware.GetReqID(ctx))
			internalError(w)
			return
		}
	}

	session.FromContext(ctx).AddFlash(msg)
	h.renderer.Render(w, r, pageLogin, pageData{Form: map[string]string{formFieldUsername: req.Username}})
}

// Logout clears the session unconditionally.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)
	sess.Clear()
	if err := h.sessions.Save(w, sess); err != nil {
		h.logger.Error(ctx, "save session failed", "error", err, "request_id", middleware.GetReqID(ctx))
		internalError(w)
		return
	}
	http.Redirect(w, r, indexPath, http.StatusFound)
}

type CredentialsRequest struct {
	Username string
	Password string
}

// parseCredentials reads the auth form. The returned message is empty when
// both fields are present.
func parseCredentials(r *http.Request) (CredentialsRequest, string) {
	req := CredentialsRequest{
		Username: strings.TrimSpace(r.PostFormValue(formFieldUsername)),
		Password: r.PostFormValue(formFieldPassword),
	}
	switch {
	case req.Username == "":
		return req, "Username is required."
	case req.Password == "":
		return req, "Password is required."
	}
	return req, ""
}
