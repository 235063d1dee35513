// Package session selects the active storage provider from the current
// sign-in state and runs the one-time migration when a user signs in.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/nikbrunner/minitab/internal/apperr"
	"github.com/nikbrunner/minitab/internal/app"
	"github.com/nikbrunner/minitab/internal/auth"
	"github.com/nikbrunner/minitab/internal/logger"
	"github.com/nikbrunner/minitab/internal/migrate"
	"github.com/nikbrunner/minitab/internal/storage"
)

// RemoteFactory returns the provider of one account.
type RemoteFactory func(ownerID string) storage.Provider

// Options holds the collaborators of a Manager.
type Options struct {
	Local    *storage.LocalProvider
	Remote   RemoteFactory
	Auth     *auth.Service
	Migrator *migrate.Migrator
	Tokens   auth.TokenStore
	Notifier app.Notifier
	Logger   logger.Logger
}

// Manager owns the provider handle. It starts on the local provider and
// switches on auth events; operations never see a mix of the two.
type Manager struct {
	local    *storage.LocalProvider
	remote   RemoteFactory
	auth     *auth.Service
	migrator *migrate.Migrator
	tokens   auth.TokenStore
	notifier app.Notifier
	log      logger.Logger

	mu      sync.RWMutex
	current storage.Provider
	user    *auth.User

	unsubscribe func()
}

// New creates a Manager and subscribes it to opts.Auth.
func New(opts Options) *Manager {
	m := &Manager{
		local:    opts.Local,
		remote:   opts.Remote,
		auth:     opts.Auth,
		migrator: opts.Migrator,
		tokens:   opts.Tokens,
		notifier: opts.Notifier,
		log:      opts.Logger,
		current:  opts.Local,
	}
	if m.migrator == nil {
		m.migrator = migrate.New(opts.Logger)
	}
	if m.tokens == nil {
		m.tokens = &auth.MemoryTokenStore{}
	}
	if m.notifier == nil {
		m.notifier = app.Discard
	}
	if m.log == nil {
		m.log = logger.Nop()
	}
	m.unsubscribe = m.auth.Subscribe(m.handle)
	return m
}

// Close detaches the manager from the identity service.
func (m *Manager) Close() {
	m.unsubscribe()
}

// Provider returns the provider for the current state.
func (m *Manager) Provider() storage.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// User returns the signed-in user, if any.
func (m *Manager) User() (auth.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return auth.User{}, false
	}
	return *m.user, true
}

// Restore resumes the stored session. It never migrates. A stale token is
// dropped and the manager stays local.
func (m *Manager) Restore(ctx context.Context) error {
	token, err := m.tokens.Load()
	if err != nil {
		return apperr.Backend("load session token", err)
	}
	if token == "" {
		return nil
	}

	if _, err := m.auth.Restore(ctx, token); err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			m.log.Info("stored session is no longer valid")
			return m.tokens.Clear()
		}
		return err
	}
	return nil
}

// SignIn signs in and makes the account's provider active.
func (m *Manager) SignIn(ctx context.Context, c auth.Credentials) (auth.User, error) {
	sess, err := m.auth.SignIn(ctx, c)
	if err != nil {
		return auth.User{}, err
	}
	return sess.User, m.saveToken(sess.Token)
}

// SignUp creates an account and signs it in.
func (m *Manager) SignUp(ctx context.Context, c auth.Credentials) (auth.User, error) {
	sess, err := m.auth.SignUp(ctx, c)
	if err != nil {
		return auth.User{}, err
	}
	return sess.User, m.saveToken(sess.Token)
}

// SignOut ends the session and returns to the local provider.
func (m *Manager) SignOut(ctx context.Context) error {
	token, err := m.tokens.Load()
	if err != nil {
		return apperr.Backend("load session token", err)
	}
	if err := m.auth.SignOut(ctx, token); err != nil {
		return err
	}
	// an unknown token publishes nothing, so reset here as well
	m.switchTo(m.local, nil)
	return m.tokens.Clear()
}

func (m *Manager) saveToken(token string) error {
	if err := m.tokens.Save(token); err != nil {
		return apperr.Backend("save session token", err)
	}
	return nil
}

func (m *Manager) handle(ctx context.Context, ev auth.Event) {
	switch ev.Type {
	case auth.SignedIn:
		remote := m.remote(ev.User.ID)
		m.migrateLocal(ctx, ev.User, remote)
		m.switchTo(remote, &ev.User)
	case auth.SessionRestored:
		m.switchTo(m.remote(ev.User.ID), &ev.User)
	case auth.SignedOut:
		m.switchTo(m.local, nil)
	}
}

// migrateLocal copies local user data into remote. Failures never block
// the sign-in; they are logged and shown as a warning.
func (m *Manager) migrateLocal(ctx context.Context, u auth.User, remote storage.Provider) {
	groups, bookmarks, err := m.local.Snapshot(ctx)
	if err != nil {
		m.log.Error("read local data for migration", logger.Error(err))
		m.notifier.Notify(app.LevelWarning, "Could not read local bookmarks to migrate")
		return
	}
	if !migrate.HasUserData(groups, bookmarks) {
		return
	}

	report, err := m.migrator.Run(ctx, u.ID, m.local, remote)
	if err != nil {
		m.log.Error("migration failed",
			logger.String("user", u.ID),
			logger.Error(err))
		m.notifier.Notify(app.LevelWarning,
			"Some local bookmarks were not migrated; they will be retried on next sign-in")
		return
	}

	m.log.Info("migrated local data",
		logger.String("user", u.ID),
		logger.Int("groups", report.Groups),
		logger.Int("bookmarks", report.Bookmarks))
	m.notifier.Notify(app.LevelSuccess, "Local bookmarks moved to your account")
}

func (m *Manager) switchTo(p storage.Provider, u *auth.User) {
	m.mu.Lock()
	m.current = p
	m.user = u
	m.mu.Unlock()
}
