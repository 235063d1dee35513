package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/nikbrunner/minitab/internal/app"
	"github.com/nikbrunner/minitab/internal/auth"
	"github.com/nikbrunner/minitab/internal/httpapi"
	"github.com/nikbrunner/minitab/internal/migrate"
	"github.com/nikbrunner/minitab/internal/model"
	"github.com/nikbrunner/minitab/internal/storage"
)

type staticDescriber string

func (d staticDescriber) Describe(context.Context, string) string { return string(d) }

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := storage.OpenDB(context.Background(), filepath.Join(t.TempDir(), "minitab.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	desc := staticDescriber("A description")
	h := httpapi.NewRouter(httpapi.Options{AllowedOrigins: []string{"http://localhost:5173"}}, httpapi.Deps{
		DB:        db,
		Auth:      auth.NewService(db),
		Library:   app.New(app.Options{Describer: desc}),
		Migrator:  migrate.New(nil),
		Describer: desc,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) do(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	if err != nil {
		c.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatal(err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		c.t.Fatal(err)
	}
	return res, data
}

func (c *client) json(method, path string, body any, wantStatus int, out any) {
	c.t.Helper()
	res, data := c.do(method, path, body)
	if res.StatusCode != wantStatus {
		c.t.Fatalf("%s %s: status %d, want %d: %s", method, path, res.StatusCode, wantStatus, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			c.t.Fatalf("%s %s: decode: %v: %s", method, path, err, data)
		}
	}
}

func signUp(t *testing.T, srv *httptest.Server, email string) *client {
	t.Helper()
	c := &client{t: t, base: srv.URL}
	var sess auth.Session
	c.json(http.MethodPost, "/api/auth/signup", auth.Credentials{Email: email, Password: "secret-pass"}, http.StatusCreated, &sess)
	c.token = sess.Token
	return c
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

func TestHealthz(t *testing.T) {
	srv := newServer(t)
	c := &client{t: t, base: srv.URL}

	var body map[string]string
	c.json(http.MethodGet, "/healthz", nil, http.StatusOK, &body)
	assert.Equal(t, body["status"], "ok")
}

func TestRequiresAuth(t *testing.T) {
	srv := newServer(t)
	c := &client{t: t, base: srv.URL}

	var e apiError
	c.json(http.MethodGet, "/api/groups", nil, http.StatusUnauthorized, &e)
	assert.Equal(t, e.Code, "UNAUTHORIZED")

	c.token = "forged"
	c.json(http.MethodGet, "/api/groups", nil, http.StatusUnauthorized, &e)
}

func TestSignInFlow(t *testing.T) {
	srv := newServer(t)
	signUp(t, srv, "ada@example.com")

	c := &client{t: t, base: srv.URL}
	var e apiError
	c.json(http.MethodPost, "/api/auth/signin", auth.Credentials{Email: "ada@example.com", Password: "wrong-pass"}, http.StatusUnauthorized, &e)

	var sess auth.Session
	c.json(http.MethodPost, "/api/auth/signin", auth.Credentials{Email: "ada@example.com", Password: "secret-pass"}, http.StatusOK, &sess)
	c.token = sess.Token

	var me auth.User
	c.json(http.MethodGet, "/api/me", nil, http.StatusOK, &me)
	assert.Equal(t, me.Email, "ada@example.com")

	c.json(http.MethodPost, "/api/auth/signout", nil, http.StatusNoContent, nil)
	c.json(http.MethodGet, "/api/me", nil, http.StatusUnauthorized, nil)

	c.json(http.MethodPost, "/api/auth/signup", auth.Credentials{Email: "ada@example.com", Password: "secret-pass"}, http.StatusConflict, &e)
	assert.Equal(t, e.Code, "CONFLICT")
}

func TestGroupsAndBookmarks(t *testing.T) {
	srv := newServer(t)
	c := signUp(t, srv, "ada@example.com")

	var empty []model.Group
	c.json(http.MethodGet, "/api/groups", nil, http.StatusOK, &empty)
	assert.Equal(t, len(empty), 0)

	var work, home model.Group
	c.json(http.MethodPost, "/api/groups", app.GroupForm{Name: "Work"}, http.StatusCreated, &work)
	c.json(http.MethodPost, "/api/groups", app.GroupForm{Name: "Home"}, http.StatusCreated, &home)
	assert.Equal(t, home.SortOrder, 1)

	var e apiError
	c.json(http.MethodPost, "/api/groups", app.GroupForm{Name: " "}, http.StatusBadRequest, &e)
	assert.Equal(t, e.Code, "VALIDATION")
	assert.Equal(t, e.Details["name"], "is required")

	var groups []model.Group
	c.json(http.MethodPut, "/api/groups/order", map[string][]string{"ids": {home.ID, work.ID}}, http.StatusOK, &groups)
	assert.Equal(t, groups[0].ID, home.ID)
	assert.Equal(t, groups[0].SortOrder, 0)

	c.json(http.MethodPut, "/api/groups/order", map[string][]string{"ids": {home.ID}}, http.StatusBadRequest, nil)

	var b model.Bookmark
	c.json(http.MethodPost, "/api/bookmarks", app.BookmarkForm{
		GroupID: work.ID, Title: "Go", URL: "https://go.dev",
	}, http.StatusCreated, &b)
	assert.Equal(t, b.Description, "A description")
	assert.Equal(t, b.FaviconURL, model.FaviconURL("https://go.dev"))

	title := "The Go Programming Language"
	c.json(http.MethodPatch, "/api/bookmarks/"+b.ID, model.BookmarkPatch{Title: &title}, http.StatusOK, &b)
	assert.Equal(t, b.Title, title)

	var results []model.Bookmark
	c.json(http.MethodGet, "/api/search?q=PROGRAMMING", nil, http.StatusOK, &results)
	assert.Equal(t, len(results), 1)
	c.json(http.MethodGet, "/api/search?q=", nil, http.StatusOK, &results)
	assert.Equal(t, len(results), 0)

	res, data := c.do(http.MethodGet, "/api/groups/"+work.ID+"/export", nil)
	assert.Equal(t, res.StatusCode, http.StatusOK)
	assert.Equal(t, res.Header.Get("Content-Disposition"), `attachment; filename=Work_bookmarks.html`)
	if !strings.Contains(string(data), `HREF="https://go.dev"`) {
		t.Errorf("export is missing the bookmark: %s", data)
	}

	c.json(http.MethodDelete, "/api/groups/"+work.ID, nil, http.StatusNoContent, nil)
	var all []model.Bookmark
	c.json(http.MethodGet, "/api/bookmarks", nil, http.StatusOK, &all)
	assert.Equal(t, len(all), 0)

	c.json(http.MethodDelete, "/api/bookmarks/"+b.ID, nil, http.StatusNotFound, &e)
	assert.Equal(t, e.Code, "NOT_FOUND")
}

func TestOwnerIsolation(t *testing.T) {
	srv := newServer(t)
	ada := signUp(t, srv, "ada@example.com")
	bob := signUp(t, srv, "bob@example.com")

	var g model.Group
	ada.json(http.MethodPost, "/api/groups", app.GroupForm{Name: "Private"}, http.StatusCreated, &g)

	var groups []model.Group
	bob.json(http.MethodGet, "/api/groups", nil, http.StatusOK, &groups)
	assert.Equal(t, len(groups), 0)

	bob.json(http.MethodPatch, "/api/groups/"+g.ID, app.GroupForm{Name: "Mine now"}, http.StatusNotFound, nil)
	bob.json(http.MethodPost, "/api/bookmarks", app.BookmarkForm{
		GroupID: g.ID, Title: "Sneaky", URL: "https://sneaky.example",
	}, http.StatusNotFound, nil)
}

func TestImport(t *testing.T) {
	srv := newServer(t)
	c := signUp(t, srv, "ada@example.com")

	content := `{"bookmarks":[{"url":"https://a.com","title":"A"},{"url":"https://b.com","title":"B"}]}`

	var parsed struct {
		Groups []map[string]any `json:"groups"`
		Count  int              `json:"count"`
	}
	c.json(http.MethodPost, "/api/import/parse", map[string]string{"content": content}, http.StatusOK, &parsed)
	assert.Equal(t, parsed.Count, 2)

	var res app.ImportResult
	c.json(http.MethodPost, "/api/import", map[string]any{"groups": parsed.Groups}, http.StatusCreated, &res)
	assert.DeepEqual(t, res, app.ImportResult{Groups: 1, Bookmarks: 2})

	var groups []model.Group
	c.json(http.MethodGet, "/api/groups", nil, http.StatusOK, &groups)
	assert.Equal(t, groups[0].Name, "导入的书签")
}

func TestMigrate(t *testing.T) {
	srv := newServer(t)
	c := signUp(t, srv, "ada@example.com")

	seedGroups, seedBookmarks := model.SeedData()
	now := time.Now().UTC()
	own := model.Group{ID: "local-g", Name: "Reading", SortOrder: 1, CreatedAt: now, UpdatedAt: now}
	bookmarks := append(seedBookmarks,
		model.Bookmark{ID: "local-b1", GroupID: own.ID, Title: "One", URL: "https://one.example", CreatedAt: now, UpdatedAt: now},
		model.Bookmark{ID: "local-b2", GroupID: own.ID, Title: "Two", URL: "https://two.example", SortOrder: 1, CreatedAt: now, UpdatedAt: now},
	)

	var res struct {
		Report   migrate.Report `json:"report"`
		Complete bool           `json:"complete"`
	}
	c.json(http.MethodPost, "/api/migrate", map[string]any{
		"groups":    append(seedGroups, own),
		"bookmarks": bookmarks,
	}, http.StatusOK, &res)
	assert.Equal(t, res.Complete, true)
	assert.DeepEqual(t, res.Report, migrate.Report{Groups: 1, Bookmarks: 2})

	var groups []model.Group
	c.json(http.MethodGet, "/api/groups", nil, http.StatusOK, &groups)
	assert.Equal(t, len(groups), 1)
	assert.Equal(t, groups[0].Name, "Reading")

	// Only seed data: nothing to do
	c.json(http.MethodPost, "/api/migrate", map[string]any{
		"groups":    seedGroups,
		"bookmarks": seedBookmarks,
	}, http.StatusOK, &res)
	assert.DeepEqual(t, res.Report, migrate.Report{})
}

func TestDescribe(t *testing.T) {
	srv := newServer(t)
	c := signUp(t, srv, "ada@example.com")

	var body map[string]string
	c.json(http.MethodGet, "/api/describe?url=https://go.dev", nil, http.StatusOK, &body)
	assert.Equal(t, body["description"], "A description")

	c.json(http.MethodGet, "/api/describe", nil, http.StatusBadRequest, nil)
}

func TestCORS(t *testing.T) {
	srv := newServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/groups", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()

	assert.Equal(t, res.Header.Get("Access-Control-Allow-Origin"), "http://localhost:5173")
}
