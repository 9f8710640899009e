package app

import (
	"database/sql"
	"log"

	"roofdesk/internal/agent"
	"roofdesk/internal/config"
	"roofdesk/internal/db"
	"roofdesk/internal/migrate"
	"roofdesk/internal/store"
)

// App bundles the open workspace: database, store, config and dispatcher.
// The CLI and the server both start from here.
type App struct {
	DB         *sql.DB
	Store      store.Store
	Config     *config.Config
	Dispatcher *agent.Dispatcher
}

// Options for opening a workspace.
type Options struct {
	Workspace string
	ActorID   string
	Logger    *log.Logger
}

// Open opens the workspace database, applies migrations, loads config (falling
// back to defaults when roofdesk.yml is absent) and builds the dispatcher.
func Open(opts Options) (*App, error) {
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	st := store.Store{DB: conn}
	d := agent.NewDispatcher(st, agent.NewRegistry(), agent.Options{
		ActorID:      opts.ActorID,
		DefaultLimit: cfg.Agent.DefaultLimit,
		MaxLimit:     cfg.Agent.MaxLimit,
		Logger:       opts.Logger,
	})
	return &App{
		DB:         conn,
		Store:      st,
		Config:     cfg,
		Dispatcher: d,
	}, nil
}

// Close releases the workspace database.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
