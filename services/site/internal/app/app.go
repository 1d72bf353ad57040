package app

import (
	"context"
	"errors"
	"time"

	"leaddesk/pkg/auth"
	"leaddesk/pkg/notify"
	"leaddesk/pkg/storage"
	"leaddesk/pkg/store"
)

const (
	defaultPublicBlogLimit = 100
	defaultAdminListLimit  = 1000
	recentActivityLimit    = 5
)

// EventDispatcher hands submission events to the notifier without blocking.
type EventDispatcher interface {
	Dispatch(ev notify.Event)
}

// Config holds the dependencies of the core application.
type Config struct {
	Store    store.Store
	Files    storage.FileStore
	Tokens   *auth.TokenService
	Admin    auth.AdminCredential
	Notifier EventDispatcher

	PublicBlogLimit int
	AdminListLimit  int

	// Now overrides the clock used for created_at and post dates.
	Now func() time.Time
}

// App is the core application service wiring together storage and domain logic.
type App struct {
	store    store.Store
	files    storage.FileStore
	tokens   *auth.TokenService
	admin    auth.AdminCredential
	notifier EventDispatcher

	publicBlogLimit int
	adminListLimit  int
	now             func() time.Time
}

// New validates the wiring and constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("document store required")
	}
	if cfg.Files == nil {
		return nil, errors.New("file store required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("token service required")
	}
	if !cfg.Admin.Configured() {
		return nil, errors.New("admin credential required")
	}
	if cfg.PublicBlogLimit <= 0 {
		cfg.PublicBlogLimit = defaultPublicBlogLimit
	}
	if cfg.AdminListLimit <= 0 {
		cfg.AdminListLimit = defaultAdminListLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &App{
		store:           cfg.Store,
		files:           cfg.Files,
		tokens:          cfg.Tokens,
		admin:           cfg.Admin,
		notifier:        cfg.Notifier,
		publicBlogLimit: cfg.PublicBlogLimit,
		adminListLimit:  cfg.AdminListLimit,
		now:             cfg.Now,
	}, nil
}

func (a *App) dispatch(ev notify.Event) {
	if a.notifier == nil {
		return
	}
	a.notifier.Dispatch(ev)
}

// Ping checks the document store.
func (a *App) Ping(ctx context.Context) error {
	return a.store.Ping(ctx)
}
