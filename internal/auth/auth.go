// Package auth is the identity service. It owns user accounts and
// sessions in the same SQLite database as the remote bookmark tables and
// publishes session lifecycle events to subscribers.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/nikbrunner/minitab/internal/apperr"
	"github.com/nikbrunner/minitab/internal/model"
	"github.com/nikbrunner/minitab/internal/validation"
)

// SessionTTL is how long a session token stays valid.
const SessionTTL = 30 * 24 * time.Hour

const tokenLength = 32

// User is an account. Its ID is the owner id of the remote store.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Credentials are what a user types to sign up or sign in.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=1024"`
}

// Session is an issued token for a user.
type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EventType names a session lifecycle event.
type EventType string

const (
	SignedUp        EventType = "signed_up"
	SignedIn        EventType = "signed_in"
	SignedOut       EventType = "signed_out"
	SessionRestored EventType = "session_restored"
)

// Event is published to subscribers after a lifecycle change.
type Event struct {
	Type EventType
	User User
}

// Handler receives events synchronously, in subscription order.
type Handler func(ctx context.Context, ev Event)

// Service signs users up and in against the identity tables.
type Service struct {
	db        *sqlx.DB
	validator *validation.Validator
	now       func() time.Time

	mu     sync.RWMutex
	subs   []subscription
	nextID int
}

type subscription struct {
	id int
	h  Handler
}

// NewService creates an identity service on db. The schema must already
// be migrated (storage.OpenDB does that).
func NewService(db *sqlx.DB) *Service {
	return &Service{
		db:        db,
		validator: validation.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe registers h and returns a function that removes it.
func (s *Service) Subscribe(h Handler) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscription{id: id, h: h})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscription) bool { return sub.id == id })
	}
}

func (s *Service) publish(ctx context.Context, ev Event) {
	s.mu.RLock()
	subs := slices.Clone(s.subs)
	s.mu.RUnlock()

	for _, sub := range subs {
		sub.h(ctx, ev)
	}
}

// SignUp creates an account and signs it in. Subscribers see SignedUp
// followed by SignedIn.
func (s *Service) SignUp(ctx context.Context, c Credentials) (Session, error) {
	c.Email = normalizeEmail(c.Email)
	if err := s.validator.Validate(c); err != nil {
		return Session{}, err
	}

	hash, err := HashPassword(c.Password)
	if err != nil {
		return Session{}, apperr.Validation(err.Error())
	}

	u := User{ID: model.GenerateID(), Email: c.Email, CreatedAt: s.now()}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		u.ID, u.Email, hash, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Session{}, apperr.Conflict("an account with this email already exists")
		}
		return Session{}, apperr.Backend("create user", err)
	}

	sess, err := s.issue(ctx, u)
	if err != nil {
		return Session{}, err
	}

	s.publish(ctx, Event{Type: SignedUp, User: u})
	s.publish(ctx, Event{Type: SignedIn, User: u})
	return sess, nil
}

// SignIn checks credentials and issues a new session.
func (s *Service) SignIn(ctx context.Context, c Credentials) (Session, error) {
	c.Email = normalizeEmail(c.Email)
	if err := s.validator.Validate(c); err != nil {
		return Session{}, err
	}

	var row struct {
		User
		PasswordHash string `db:"password_hash"`
	}
	err := s.db.GetContext(ctx, &row,
		"SELECT id, email, created_at, password_hash FROM users WHERE email = ?", c.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, apperr.Unauthorized("invalid email or password")
	}
	if err != nil {
		return Session{}, apperr.Backend("find user", err)
	}
	if !VerifyPassword(row.PasswordHash, c.Password) {
		return Session{}, apperr.Unauthorized("invalid email or password")
	}

	sess, err := s.issue(ctx, row.User)
	if err != nil {
		return Session{}, err
	}

	s.publish(ctx, Event{Type: SignedIn, User: row.User})
	return sess, nil
}

// Authenticate resolves a token to its session without publishing.
// Unknown and expired tokens are Unauthorized.
func (s *Service) Authenticate(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, apperr.Unauthorized("missing session token")
	}

	var row struct {
		User
		ExpiresAt time.Time `db:"expires_at"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT u.id, u.email, u.created_at, s.expires_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = ?`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, apperr.Unauthorized("invalid session")
	}
	if err != nil {
		return Session{}, apperr.Backend("find session", err)
	}

	if !s.now().Before(row.ExpiresAt) {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
			return Session{}, apperr.Backend("delete expired session", err)
		}
		return Session{}, apperr.Unauthorized("session expired")
	}

	return Session{Token: token, User: row.User, ExpiresAt: row.ExpiresAt}, nil
}

// Restore is Authenticate followed by a SessionRestored event.
func (s *Service) Restore(ctx context.Context, token string) (Session, error) {
	sess, err := s.Authenticate(ctx, token)
	if err != nil {
		return Session{}, err
	}
	s.publish(ctx, Event{Type: SessionRestored, User: sess.User})
	return sess, nil
}

// SignOut revokes token. Revoking an unknown token is not an error, but
// only a known one publishes SignedOut.
func (s *Service) SignOut(ctx context.Context, token string) error {
	sess, err := s.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			return nil
		}
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		return apperr.Backend("delete session", err)
	}

	s.publish(ctx, Event{Type: SignedOut, User: sess.User})
	return nil
}

func (s *Service) issue(ctx context.Context, u User) (Session, error) {
	token, err := gonanoid.New(tokenLength)
	if err != nil {
		return Session{}, apperr.Backend("generate token", err)
	}

	now := s.now()
	sess := Session{Token: token, User: u, ExpiresAt: now.Add(SessionTTL)}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		token, u.ID, now, sess.ExpiresAt)
	if err != nil {
		return Session{}, apperr.Backend("create session", err)
	}
	return sess, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
