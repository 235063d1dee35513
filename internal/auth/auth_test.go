package auth_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"gotest.tools/v3/assert"

	"github.com/nikbrunner/minitab/internal/apperr"
	"github.com/nikbrunner/minitab/internal/auth"
	"github.com/nikbrunner/minitab/internal/storage"
)

func openDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := storage.OpenDB(context.Background(), filepath.Join(t.TempDir(), "minitab.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type recorder struct {
	events []auth.Event
}

func (r *recorder) handle(_ context.Context, ev auth.Event) {
	r.events = append(r.events, ev)
}

func (r *recorder) types() []auth.EventType {
	out := make([]auth.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

var creds = auth.Credentials{Email: "Ada@Example.com", Password: "secret-pass"}

func TestSignUp_SignsIn(t *testing.T) {
	ctx := context.Background()
	svc := auth.NewService(openDB(t))
	rec := &recorder{}
	svc.Subscribe(rec.handle)

	sess, err := svc.SignUp(ctx, creds)
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if sess.Token == "" || sess.User.ID == "" {
		t.Fatalf("expected token and user id, got %+v", sess)
	}
	if sess.User.Email != "ada@example.com" {
		t.Errorf("expected normalized email, got %q", sess.User.Email)
	}
	assert.DeepEqual(t, rec.types(), []auth.EventType{auth.SignedUp, auth.SignedIn})

	got, err := svc.Authenticate(ctx, sess.Token)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.User.ID != sess.User.ID {
		t.Errorf("expected user %q, got %q", sess.User.ID, got.User.ID)
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := auth.NewService(openDB(t))

	if _, err := svc.SignUp(ctx, creds); err != nil {
		t.Fatal(err)
	}
	_, err := svc.SignUp(ctx, auth.Credentials{Email: "ada@example.com", Password: "another-pass"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestCredentialsValidation(t *testing.T) {
	svc := auth.NewService(openDB(t))

	tests := []struct {
		name  string
		creds auth.Credentials
		field string
	}{
		{"missing email", auth.Credentials{Password: "secret-pass"}, "email"},
		{"bad email", auth.Credentials{Email: "not-an-email", Password: "secret-pass"}, "email"},
		{"short password", auth.Credentials{Email: "a@b.co", Password: "12345"}, "password"},
		{"long password", auth.Credentials{Email: "a@b.co", Password: strings.Repeat("x", 1025)}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignUp(context.Background(), tt.creds)
			var e *apperr.Error
			if !errors.As(err, &e) || e.Code != apperr.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			details, _ := e.Details.(map[string]string)
			if _, ok := details[tt.field]; !ok {
				t.Errorf("expected detail for %q, got %v", tt.field, e.Details)
			}
		})
	}
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	svc := auth.NewService(openDB(t))
	if _, err := svc.SignUp(ctx, creds); err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	svc.Subscribe(rec.handle)

	sess, err := svc.SignIn(ctx, auth.Credentials{Email: " ada@example.com ", Password: creds.Password})
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	assert.DeepEqual(t, rec.types(), []auth.EventType{auth.SignedIn})
	assert.Equal(t, rec.events[0].User.ID, sess.User.ID)

	_, err = svc.SignIn(ctx, auth.Credentials{Email: creds.Email, Password: "wrong-pass"})
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("expected unauthorized for wrong password, got %v", err)
	}
	_, err = svc.SignIn(ctx, auth.Credentials{Email: "nobody@example.com", Password: "secret-pass"})
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("expected unauthorized for unknown email, got %v", err)
	}
	if len(rec.events) != 1 {
		t.Errorf("failed sign-ins must not publish, got %v", rec.types())
	}
}

func TestRestoreAndSignOut(t *testing.T) {
	ctx := context.Background()
	svc := auth.NewService(openDB(t))
	sess, err := svc.SignUp(ctx, creds)
	if err != nil {
		t.Fatal(err)
	}

	rec := &recorder{}
	unsubscribe := svc.Subscribe(rec.handle)

	if _, err := svc.Restore(ctx, sess.Token); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if err := svc.SignOut(ctx, sess.Token); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	assert.DeepEqual(t, rec.types(), []auth.EventType{auth.SessionRestored, auth.SignedOut})

	if _, err := svc.Authenticate(ctx, sess.Token); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("expected revoked token to be unauthorized, got %v", err)
	}

	// Signing out twice is harmless and silent
	unsubscribe()
	if err := svc.SignOut(ctx, sess.Token); err != nil {
		t.Errorf("expected nil for unknown token, got %v", err)
	}
	if len(rec.events) != 2 {
		t.Errorf("expected no events after unsubscribe, got %v", rec.types())
	}
}

func TestAuthenticate_Expired(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	svc := auth.NewService(db)
	sess, err := svc.SignUp(ctx, creds)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := db.ExecContext(ctx, "UPDATE sessions SET expires_at = ? WHERE token = ?",
		sess.ExpiresAt.Add(-2*auth.SessionTTL), sess.Token); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Authenticate(ctx, sess.Token); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected expired session to be unauthorized, got %v", err)
	}

	var n int
	if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM sessions"); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected expired session to be deleted, %d left", n)
	}
}

func TestPassword(t *testing.T) {
	hash, err := auth.HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("unexpected hash format %q", hash)
	}
	if !auth.VerifyPassword(hash, "correct horse") {
		t.Error("expected password to verify")
	}
	if auth.VerifyPassword(hash, "wrong horse") {
		t.Error("expected wrong password to fail")
	}
	if auth.VerifyPassword("$argon2id$garbage", "correct horse") {
		t.Error("expected malformed hash to fail")
	}
	if _, err := auth.HashPassword(""); err == nil {
		t.Error("expected error for empty password")
	}
}

func TestFileTokenStore(t *testing.T) {
	dir := t.TempDir()
	store := auth.NewFileTokenStore(dir)

	token, err := store.Load()
	if err != nil || token != "" {
		t.Fatalf("expected empty token, got %q, %v", token, err)
	}

	if err := store.Save("tok-123"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected mode 0600, got %o", perm)
	}

	token, err = store.Load()
	if err != nil || token != "tok-123" {
		t.Errorf("expected tok-123, got %q, %v", token, err)
	}

	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Errorf("clearing twice should succeed: %v", err)
	}
	if token, _ := store.Load(); token != "" {
		t.Errorf("expected cleared token, got %q", token)
	}
}
