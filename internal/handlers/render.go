package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/flaskr-go/flaskr/internal/logging"
	"github.com/flaskr-go/flaskr/internal/session"
	"github.com/flaskr-go/flaskr/types"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed templates
var templatesFS embed.FS

const (
	pageRegister = "auth/register.html"
	pageLogin    = "auth/login.html"
	pageIndex    = "blog/index.html"
	pageCreate   = "blog/create.html"
	pageUpdate   = "blog/update.html"
)

var pages = []string{pageRegister, pageLogin, pageIndex, pageCreate, pageUpdate}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("2006-01-02")
	},
}

// pageData is handed to every template.
type pageData struct {
	User    *types.User
	Flashes []string
	Form    map[string]string
	Posts   []types.Post
	Post    types.Post
}

// Renderer executes page templates on top of the shared base layout.
type Renderer struct {
	templates map[string]*template.Template
	sessions  *session.Manager
	logger    logging.Logger
}

func NewRenderer(sessions *session.Manager, logger logging.Logger) (*Renderer, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New(page).Option("missingkey=zero").Funcs(templateFuncs).ParseFS(templatesFS, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		templates[page] = tmpl
	}
	return &Renderer{templates: templates, sessions: sessions, logger: logger}, nil
}

// Render writes page with status 200. Pending flash messages are consumed
// and the session cookie is refreshed before anything is written.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, page string, data pageData) {
	ctx := r.Context()

	tmpl, ok := rd.templates[page]
	if !ok {
		rd.logger.Error(ctx, "unknown template", "page", page, "request_id", middleware.GetReqID(ctx))
		internalError(w)
		return
	}

	if user, ok := currentUser(ctx); ok {
		data.User = &user
	}
	if data.Form == nil {
		data.Form = map[string]string{}
	}

	sess := session.FromContext(ctx)
	data.Flashes = sess.Flashes()

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		rd.logger.Error(ctx, "render failed", "page", page, "error", err, "request_id", middleware.GetReqID(ctx))
		internalError(w)
		return
	}

	if sess.Modified() {
		if err := rd.sessions.Save(w, sess); err != nil {
			rd.logger.Error(ctx, "save session failed", "error", err, "request_id", middleware.GetReqID(ctx))
			internalError(w)
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
