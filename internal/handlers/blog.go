package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/flaskr-go/flaskr/internal/logging"
	"github.com/flaskr-go/flaskr/internal/services"
	"github.com/flaskr-go/flaskr/internal/session"
	"github.com/flaskr-go/flaskr/internal/store"
	"github.com/flaskr-go/flaskr/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	formFieldTitle = "title"
	formFieldBody  = "body"
)

// BlogHandler provides the post pages.
type BlogHandler struct {
	postService *services.PostService
	renderer    *Renderer
	logger      logging.Logger
}

// NewBlogHandler constructs a handler with the provided service.
func NewBlogHandler(postService *services.PostService, renderer *Renderer, logger logging.Logger) *BlogHandler {
	return &BlogHandler{
		postService: postService,
		renderer:    renderer,
		logger:      logger,
	}
}

// BlogRouter registers post routes on the given router.
func BlogRouter(r chi.Router, handler *BlogHandler) {
	r.Get("/", handler.Index)
	r.Group(func(r chi.Router) {
		r.Use(RequireLogin)
		r.Get("/create", handler.CreateForm)
		r.Post("/create", handler.Create)
		r.Route("/{postID:[0-9]+}", func(r chi.Router) {
			r.Get("/update", handler.Update)
			r.Post("/update", handler.Update)
			r.Post("/delete", handler.Delete)
		})
	})
}

// Index lists every post, newest first.
func (h *BlogHandler) Index(w http.ResponseWriter, r *http.Request) {
	posts, err := h.postService.List(r.Context())
	if err != nil {
		h.fail(w, r, "list posts failed", err)
		return
	}
	h.renderer.Render(w, r, pageIndex, pageData{Posts: posts})
}

func (h *BlogHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, pageCreate, pageData{})
}

func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, _ := currentUser(ctx)

	req, msg := parsePostForm(r)
	if msg != "" {
		session.FromContext(ctx).AddFlash(msg)
		h.renderer.Render(w, r, pageCreate, pageData{Form: req.form()})
		return
	}

	post, err := h.postService.Create(ctx, types.Post{
		Title:    req.Title,
		Body:     req.Body,
		AuthorID: user.ID,
	})
	if err != nil {
		h.fail(w, r, "create post failed", err)
		return
	}

	h.logger.Info(ctx, "post created", "post_id", post.ID, "author_id", user.ID)
	http.Redirect(w, r, indexPath, http.StatusFound)
}

// Update shows the edit form on GET and applies it on POST. Only the
// author may do either.
func (h *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	post, ok := h.loadOwnPost(w, r)
	if !ok {
		return
	}

	if r.Method != http.MethodPost {
		form := map[string]string{formFieldTitle: post.Title, formFieldBody: post.Body}
		h.renderer.Render(w, r, pageUpdate, pageData{Post: post, Form: form})
		return
	}

	req, msg := parsePostForm(r)
	if msg != "" {
		session.FromContext(ctx).AddFlash(msg)
		h.renderer.Render(w, r, pageUpdate, pageData{Post: post, Form: req.form()})
		return
	}

	if _, err := h.postService.Update(ctx, post, req.Title, req.Body); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, strconv.Itoa(post.ID))
			return
		}
		h.fail(w, r, "update post failed", err)
		return
	}

	http.Redirect(w, r, indexPath, http.StatusFound)
}

func (h *BlogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	post, ok := h.loadOwnPost(w, r)
	if !ok {
		return
	}

	if err := h.postService.Delete(ctx, post.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, strconv.Itoa(post.ID))
			return
		}
		h.fail(w, r, "delete post failed", err)
		return
	}

	h.logger.Info(ctx, "post deleted", "post_id", post.ID)
	http.Redirect(w, r, indexPath, http.StatusFound)
}

// loadOwnPost fetches the routed post for the current user and writes the
// 404/403 response itself when that fails.
func (h *BlogHandler) loadOwnPost(w http.ResponseWriter, r *http.Request) (types.Post, bool) {
	id, err := parsePostID(r)
	if err != nil {
		notFound(w, chi.URLParam(r, "postID"))
		return types.Post{}, false
	}

	user, _ := currentUser(r.Context())
	post, err := h.postService.GetForMutation(r.Context(), id, user.ID, true)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			notFound(w, strconv.Itoa(id))
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, http.StatusText(http.StatusForbidden))
		default:
			h.fail(w, r, "load post failed", err)
		}
		return types.Post{}, false
	}
	return post, true
}

func (h *BlogHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	h.logger.Error(ctx, msg, "error", err, "request_id", middleware.GetReqID(ctx))
	internalError(w)
}

// notFound takes the id as routed, so ids too large for an int are
// reported verbatim.
func notFound(w http.ResponseWriter, id string) {
	writeError(w, http.StatusNotFound, fmt.Sprintf("Post id %s doesn't exist.", id))
}

type PostRequest struct {
	Title string
	Body  string
}

func (p PostRequest) form() map[string]string {
	return map[string]string{formFieldTitle: p.Title, formFieldBody: p.Body}
}

// parsePostForm reads the post form. The returned message is empty when
// the title is present; the body may be empty.
func parsePostForm(r *http.Request) (PostRequest, string) {
	req := PostRequest{
		Title: strings.TrimSpace(r.PostFormValue(formFieldTitle)),
		Body:  r.PostFormValue(formFieldBody),
	}
	if req.Title == "" {
		return req, "Title is required."
	}
	return req, ""
}
