package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/nikbrunner/minitab/internal/app"
	"github.com/nikbrunner/minitab/internal/auth"
	"github.com/nikbrunner/minitab/internal/config"
	"github.com/nikbrunner/minitab/internal/describe"
	"github.com/nikbrunner/minitab/internal/logger"
	"github.com/nikbrunner/minitab/internal/migrate"
	"github.com/nikbrunner/minitab/internal/session"
	"github.com/nikbrunner/minitab/internal/storage"
)

type envOptions struct {
	// logToFile keeps log output off the terminal while the TUI owns it.
	logToFile  bool
	noDescribe bool
}

// env is everything a command needs, opened from the config.
type env struct {
	cfg      *config.Config
	log      logger.Logger
	db       *sqlx.DB
	auth     *auth.Service
	migrator *migrate.Migrator
	session  *session.Manager
	describe describe.Describer
	lib      *app.Library
	feed     *app.Feed

	closers []io.Closer
}

func openEnv(ctx context.Context, opts envOptions) (*env, error) {
	path := configFlag
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Log.Level
	if verboseFlag {
		level = "debug"
	}
	out := "stderr"
	if opts.logToFile {
		out = cfg.LogFile()
	}
	log, err := logger.New(logger.Options{Level: level, Pretty: cfg.Log.Pretty, OutputPath: out})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := storage.OpenDB(ctx, cfg.DatabasePath)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("open database: %w", err)
	}

	e := &env{
		cfg:     cfg,
		log:     log,
		db:      db,
		feed:    app.NewFeed(),
		closers: []io.Closer{db},
	}

	e.auth = auth.NewService(db)
	e.migrator = migrate.New(log)
	e.session = session.New(session.Options{
		Local: storage.NewLocalProvider(storage.NewRecords(cfg.DataDir)),
		Remote: func(ownerID string) storage.Provider {
			return storage.NewRemoteProvider(db, ownerID)
		},
		Auth:     e.auth,
		Migrator: e.migrator,
		Tokens:   auth.NewFileTokenStore(cfg.DataDir),
		Notifier: e.feed,
		Logger:   log,
	})
	if err := e.session.Restore(ctx); err != nil {
		// stay local; the account is unreachable, not gone
		log.Warn("restore session", logger.Error(err))
		e.feed.Notify(app.LevelWarning, "Could not restore your session; using local bookmarks")
	}

	e.describe = e.newDescriber(opts.noDescribe)
	e.lib = app.New(app.Options{
		Source:            e.session,
		Describer:         e.describe,
		Notifier:          e.feed,
		Logger:            log,
		ImportConcurrency: cfg.Describe.Concurrency,
	})
	return e, nil
}

func (e *env) newDescriber(disabled bool) describe.Describer {
	c := e.cfg.Describe
	if disabled || !c.Enabled {
		return describe.Nop{}
	}

	var cache describe.Cache
	if c.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		e.closers = append(e.closers, rdb)
		cache = describe.NewRedisCache(rdb, c.CacheTTL)
	} else {
		cache = describe.NewMemoryCache(c.CacheSize)
	}

	var limiter *rate.Limiter
	if c.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.RatePerSec), max(c.Burst, 1))
	}

	return describe.New(describe.Options{
		Proxy:   c.Proxy,
		Timeout: c.Timeout,
		Cache:   cache,
		Limiter: limiter,
		Logger:  e.log,
	})
}

// account labels the active store for the TUI header.
func (e *env) account() string {
	if u, ok := e.session.User(); ok {
		return u.Email
	}
	return "local"
}

// Close releases everything openEnv acquired, newest first.
func (e *env) Close() {
	e.session.Close()
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			e.log.Warn("close", logger.Error(err))
		}
	}
	_ = e.log.Sync()
}

// shutdownContext bounds graceful shutdown of the HTTP server.
func (e *env) shutdownContext() (context.Context, context.CancelFunc) {
	timeout := e.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}
