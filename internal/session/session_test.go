package session_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"gotest.tools/v3/assert"

	"github.com/nikbrunner/minitab/internal/apperr"
	"github.com/nikbrunner/minitab/internal/app"
	"github.com/nikbrunner/minitab/internal/auth"
	"github.com/nikbrunner/minitab/internal/model"
	"github.com/nikbrunner/minitab/internal/session"
	"github.com/nikbrunner/minitab/internal/storage"
)

type env struct {
	db     *sqlx.DB
	local  *storage.LocalProvider
	auth   *auth.Service
	tokens *auth.FileTokenStore
	feed   *app.Feed
	remote session.RemoteFactory
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.OpenDB(context.Background(), filepath.Join(dir, "minitab.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &env{
		db:     db,
		local:  storage.NewLocalProvider(storage.NewRecords(dir)),
		auth:   auth.NewService(db),
		tokens: auth.NewFileTokenStore(dir),
		feed:   app.NewFeed(),
		remote: func(owner string) storage.Provider { return storage.NewRemoteProvider(db, owner) },
	}
}

func (e *env) manager(t *testing.T, remote session.RemoteFactory) *session.Manager {
	t.Helper()
	if remote == nil {
		remote = e.remote
	}
	m := session.New(session.Options{
		Local:    e.local,
		Remote:   remote,
		Auth:     e.auth,
		Tokens:   e.tokens,
		Notifier: e.feed,
	})
	t.Cleanup(m.Close)
	return m
}

var creds = auth.Credentials{Email: "ada@example.com", Password: "secret-pass"}

func groupNames(t *testing.T, p storage.Provider) []string {
	t.Helper()
	groups, err := p.Groups(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Name
	}
	return out
}

func TestStartsLocal(t *testing.T) {
	e := newEnv(t)
	m := e.manager(t, nil)

	if m.Provider() != storage.Provider(e.local) {
		t.Error("expected the local provider before sign-in")
	}
	if _, ok := m.User(); ok {
		t.Error("expected no user before sign-in")
	}
}

func TestSignUp_MigratesLocalData(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	m := e.manager(t, nil)

	work, err := e.local.CreateGroup(ctx, "Work")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.local.CreateBookmark(ctx, model.BookmarkInput{
		GroupID: work.ID, Title: "Docs", URL: "https://docs.example",
	}); err != nil {
		t.Fatal(err)
	}

	u, err := m.SignUp(ctx, creds)
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	p := m.Provider()
	remote, ok := p.(*storage.RemoteProvider)
	if !ok {
		t.Fatalf("expected remote provider, got %T", p)
	}
	assert.Equal(t, remote.OwnerID(), u.ID)
	assert.DeepEqual(t, groupNames(t, p), []string{"Work"})

	token, err := e.tokens.Load()
	if err != nil || token == "" {
		t.Errorf("expected a stored token, got %q, %v", token, err)
	}

	notes := e.feed.Drain()
	if len(notes) != 1 || notes[0].Level != app.LevelSuccess {
		t.Errorf("expected one success notification, got %+v", notes)
	}
}

func TestSignIn_NothingToMigrate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	m := e.manager(t, nil)

	if _, err := m.SignUp(ctx, creds); err != nil {
		t.Fatal(err)
	}
	if err := m.SignOut(ctx); err != nil {
		t.Fatal(err)
	}
	e.feed.Drain()

	// Only seed data locally
	if _, err := e.local.Groups(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := m.SignIn(ctx, creds); err != nil {
		t.Fatal(err)
	}
	assert.DeepEqual(t, groupNames(t, m.Provider()), []string{})
	if notes := e.feed.Drain(); len(notes) != 0 {
		t.Errorf("expected no notifications, got %+v", notes)
	}
}

type failingRemote struct {
	storage.Provider
}

func (failingRemote) CreateGroup(context.Context, string) (model.Group, error) {
	return model.Group{}, apperr.Backend("create group", errors.New("disk full"))
}

func TestSignIn_MigrationFailureWarns(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	m := e.manager(t, func(owner string) storage.Provider {
		return failingRemote{Provider: e.remote(owner)}
	})

	if _, err := e.local.CreateGroup(ctx, "Keep me"); err != nil {
		t.Fatal(err)
	}

	if _, err := m.SignUp(ctx, creds); err != nil {
		t.Fatalf("sign-in must succeed despite migration failure: %v", err)
	}
	if _, ok := m.User(); !ok {
		t.Error("expected a signed-in user")
	}

	notes := e.feed.Drain()
	if len(notes) != 1 || notes[0].Level != app.LevelWarning {
		t.Fatalf("expected one warning, got %+v", notes)
	}

	names := groupNames(t, e.local)
	assert.DeepEqual(t, names, []string{"热门网站", "Keep me"})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	first := e.manager(t, nil)
	u, err := first.SignUp(ctx, creds)
	if err != nil {
		t.Fatal(err)
	}
	first.Close()

	if _, err := e.local.CreateGroup(ctx, "Later"); err != nil {
		t.Fatal(err)
	}

	m := e.manager(t, nil)
	if err := m.Restore(ctx); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	got, ok := m.User()
	if !ok || got.ID != u.ID {
		t.Fatalf("expected restored user %q, got %+v", u.ID, got)
	}

	// Restoring never migrates
	assert.DeepEqual(t, groupNames(t, m.Provider()), []string{})
}

func TestRestore_StaleToken(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	if err := e.tokens.Save("not-a-real-token"); err != nil {
		t.Fatal(err)
	}

	m := e.manager(t, nil)
	if err := m.Restore(ctx); err != nil {
		t.Fatalf("expected stale token to be ignored, got %v", err)
	}
	if _, ok := m.User(); ok {
		t.Error("expected no user")
	}
	if token, _ := e.tokens.Load(); token != "" {
		t.Errorf("expected stale token to be cleared, got %q", token)
	}
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	m := e.manager(t, nil)

	if _, err := m.SignUp(ctx, creds); err != nil {
		t.Fatal(err)
	}
	if err := m.SignOut(ctx); err != nil {
		t.Fatal(err)
	}

	if m.Provider() != storage.Provider(e.local) {
		t.Error("expected local provider after sign-out")
	}
	if token, _ := e.tokens.Load(); token != "" {
		t.Errorf("expected token to be cleared, got %q", token)
	}
}
