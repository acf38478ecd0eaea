//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/flaskr-go/flaskr/config"
	"github.com/flaskr-go/flaskr/internal/db"
	"github.com/flaskr-go/flaskr/internal/server"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dir, err := os.MkdirTemp("", "flaskr-e2e")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	if err := initDatabase(ctx, filepath.Join(dir, "flaskr.sqlite")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init database: %v\n", err)
		_ = os.RemoveAll(dir)
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = os.RemoveAll(dir)
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = os.RemoveAll(dir)
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func TestPostLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	username := fmt.Sprintf("author_%d", time.Now().UnixNano())
	password := "testpass123!"

	author, err := newClient()
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if err := expectRedirect(author, http.MethodPost, baseURL+"/auth/register", credentials(username, password), "/auth/login"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := expectRedirect(author, http.MethodPost, baseURL+"/auth/login", credentials(username, password), "/"); err != nil {
		t.Fatalf("login: %v", err)
	}

	title := fmt.Sprintf("Cat Post %d", time.Now().UnixNano())
	if err := expectRedirect(author, http.MethodPost, baseURL+"/create", url.Values{"title": {title}, "body": {"meow"}}, "/"); err != nil {
		t.Fatalf("create post: %v", err)
	}

	id, err := findOwnPost(author, baseURL, title)
	if err != nil {
		t.Fatalf("find post: %v", err)
	}

	updated := title + " Updated"
	if err := expectRedirect(author, http.MethodPost, fmt.Sprintf("%s/%d/update", baseURL, id), url.Values{"title": {updated}, "body": {"purr"}}, "/"); err != nil {
		t.Fatalf("update post: %v", err)
	}

	stranger, err := newClient()
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	other := username + "_other"
	if err := expectRedirect(stranger, http.MethodPost, baseURL+"/auth/register", credentials(other, password), "/auth/login"); err != nil {
		t.Fatalf("register other: %v", err)
	}
	if err := expectRedirect(stranger, http.MethodPost, baseURL+"/auth/login", credentials(other, password), "/"); err != nil {
		t.Fatalf("login other: %v", err)
	}
	if err := expectStatus(stranger, http.MethodPost, fmt.Sprintf("%s/%d/delete", baseURL, id), nil, http.StatusForbidden); err != nil {
		t.Fatalf("delete by other user: %v", err)
	}

	body, err := getBody(stranger, baseURL+"/")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if !strings.Contains(body, updated) {
		t.Fatalf("expected updated title %q on index", updated)
	}

	if err := expectRedirect(author, http.MethodPost, fmt.Sprintf("%s/%d/delete", baseURL, id), nil, "/"); err != nil {
		t.Fatalf("delete post: %v", err)
	}
	if err := expectStatus(author, http.MethodGet, fmt.Sprintf("%s/%d/update", baseURL, id), nil, http.StatusNotFound); err != nil {
		t.Fatalf("expected deleted post to be missing: %v", err)
	}
}

func credentials(username, password string) url.Values {
	return url.Values{"username": {username}, "password": {password}}
}

func newClient() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Jar:     jar,
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, nil
}

func send(client *http.Client, method, target string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequest(method, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return client.Do(req)
}

func expectRedirect(client *http.Client, method, target string, form url.Values, location string) error {
	resp, err := send(client, method, target, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != location {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("expected redirect to %s, got %d %q: %s", location, resp.StatusCode, resp.Header.Get("Location"), strings.TrimSpace(string(msg)))
	}
	return nil
}

func expectStatus(client *http.Client, method, target string, form url.Values, status int) error {
	resp, err := send(client, method, target, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != status {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("expected status %d, got %d: %s", status, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func getBody(client *http.Client, target string) (string, error) {
	resp, err := send(client, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get %s status %d", target, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	return string(body), err
}

// findOwnPost scans the index for title and returns the id from its edit link.
func findOwnPost(client *http.Client, baseURL, title string) (int, error) {
	body, err := getBody(client, baseURL+"/")
	if err != nil {
		return 0, err
	}

	idx := strings.Index(body, "<h1>"+title+"</h1>")
	if idx < 0 {
		return 0, fmt.Errorf("post %q not listed", title)
	}
	var id int
	rest := body[idx:]
	start := strings.Index(rest, `href="/`)
	if start < 0 {
		return 0, fmt.Errorf("no edit link for %q", title)
	}
	if _, err := fmt.Sscanf(rest[start+len(`href="/`):], "%d/update", &id); err != nil {
		return 0, fmt.Errorf("parse edit link: %w", err)
	}
	return id, nil
}

func initDatabase(ctx context.Context, path string) error {
	_ = os.Setenv("DATABASE", path)

	cfg := config.LoadConfig()
	if err := db.EnsureDir(cfg.Database.Path); err != nil {
		return err
	}
	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()
	return db.InitSchema(ctx, conn.DB)
}

func startServer() (*server.Server, error) {
	_ = os.Setenv("SECRET_KEY", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))

	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}
