package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/flaskr-go/flaskr/config"
	"github.com/flaskr-go/flaskr/internal/logging"
	"github.com/flaskr-go/flaskr/internal/services"
	"github.com/flaskr-go/flaskr/internal/session"
	"github.com/flaskr-go/flaskr/internal/store"
	"github.com/flaskr-go/flaskr/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers struct {
	users map[int]types.User
	err   error
}

func (s *stubUsers) GetByID(_ context.Context, id int) (types.User, error) {
	if s.err != nil {
		return types.User{}, s.err
	}
	user, ok := s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (s *stubUsers) GetByUsername(context.Context, string) (types.User, error) {
	return types.User{}, store.ErrNotFound
}

func (s *stubUsers) Create(_ context.Context, user types.User) (types.User, error) {
	return user, nil
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestParseCredentials(t *testing.T) {
	cases := []struct {
		name     string
		form     url.Values
		username string
		message  string
	}{
		{name: "ok", form: url.Values{"username": {" alice "}, "password": {"pw"}}, username: "alice"},
		{name: "no username", form: url.Values{"password": {"pw"}}, message: "Username is required."},
		{name: "blank username", form: url.Values{"username": {"  "}, "password": {"pw"}}, message: "Username is required."},
		{name: "no password", form: url.Values{"username": {"alice"}}, username: "alice", message: "Password is required."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, msg := parseCredentials(formRequest(http.MethodPost, "/auth/login", tc.form))
			assert.Equal(t, tc.message, msg)
			assert.Equal(t, tc.username, req.Username)
		})
	}
}

func TestParsePostForm(t *testing.T) {
	req, msg := parsePostForm(formRequest(http.MethodPost, "/create", url.Values{"title": {" t "}, "body": {" b "}}))
	assert.Empty(t, msg)
	assert.Equal(t, "t", req.Title)
	assert.Equal(t, " b ", req.Body)

	req, msg = parsePostForm(formRequest(http.MethodPost, "/create", url.Values{"title": {"  "}, "body": {"kept"}}))
	assert.Equal(t, "Title is required.", msg)
	assert.Equal(t, map[string]string{"title": "", "body": "kept"}, req.form())
}

func TestParsePostID(t *testing.T) {
	r := chi.NewRouter()
	var got int
	var gotErr error
	r.Get("/{postID}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = parsePostID(r)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/42", nil))
	require.NoError(t, gotErr)
	assert.Equal(t, 42, got)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/0", nil))
	assert.Error(t, gotErr)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/99999999999999999999", nil))
	assert.Error(t, gotErr)
}

func TestRequireLogin(t *testing.T) {
	reached := false
	h := RequireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/create", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, loginPath, rec.Header().Get("Location"))
	assert.False(t, reached)

	req := httptest.NewRequest(http.MethodGet, "/create", nil)
	req = req.WithContext(withUser(req.Context(), types.User{ID: 1, Username: "a"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestLoadLoggedInUser(t *testing.T) {
	repo := &stubUsers{users: map[int]types.User{7: {ID: 7, Username: "seven"}}}
	mw := LoadLoggedInUser(services.NewUserService(repo), logging.Discard())

	run := func(userID int) (types.User, bool, int) {
		var user types.User
		var ok bool
		h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok = currentUser(r.Context())
		}))
		sess := &session.Session{}
		if userID > 0 {
			sess.SetUserID(userID)
		}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(session.WithSession(req.Context(), sess))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return user, ok, rec.Code
	}

	user, ok, code := run(7)
	assert.True(t, ok)
	assert.Equal(t, "seven", user.Username)
	assert.Equal(t, http.StatusOK, code)

	_, ok, code = run(0)
	assert.False(t, ok)
	assert.Equal(t, http.StatusOK, code)

	_, ok, code = run(99)
	assert.False(t, ok)
	assert.Equal(t, http.StatusOK, code)

	repo.err = errors.New("disk gone")
	_, ok, code = run(7)
	assert.False(t, ok)
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestRenderer(t *testing.T) {
	sessions := session.NewManager("secret", config.SessionConfig{CookieName: "session", TTL: time.Hour})
	renderer, err := NewRenderer(sessions, logging.Discard())
	require.NoError(t, err)

	sess := &session.Session{}
	sess.SetUserID(3)
	sess.AddFlash("Title is required.")

	req := httptest.NewRequest(http.MethodGet, "/create", nil)
	ctx := session.WithSession(req.Context(), sess)
	ctx = withUser(ctx, types.User{ID: 3, Username: "writer"})
	rec := httptest.NewRecorder()

	renderer.Render(rec, req.WithContext(ctx), pageCreate, pageData{Form: map[string]string{"title": "<b>draft</b>"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "Title is required.")
	assert.Contains(t, body, "<span>writer</span>")
	assert.Contains(t, body, "&lt;b&gt;draft&lt;/b&gt;")
	assert.NotContains(t, body, "<no value>")

	assert.Empty(t, sess.Flashes())
	assert.NotEmpty(t, rec.Result().Cookies())
}

func TestRendererUnknownPage(t *testing.T) {
	renderer, err := NewRenderer(session.NewManager("secret", config.SessionConfig{TTL: time.Hour}), logging.Discard())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	renderer.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), "missing.html", pageData{})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthAndHello(t *testing.T) {
	rec := httptest.NewRecorder()
	Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Hello(rec, httptest.NewRequest(http.MethodGet, "/hello", nil))
	assert.Equal(t, "Hello, World!", rec.Body.String())
}
