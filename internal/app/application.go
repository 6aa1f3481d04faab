// Package app wires the components in dependency order and owns their
// lifecycle: store, registry, broadcaster, timers, router, hub, HTTP.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"retrosync/internal/api"
	"retrosync/internal/config"
	"retrosync/internal/hub"
	"retrosync/internal/router"
	"retrosync/internal/session"
	"retrosync/internal/store"
	"retrosync/internal/timer"
	"retrosync/internal/ws"
)

const shutdownTimeout = 10 * time.Second

type Application struct {
	cfg    *config.Config
	log    zerolog.Logger
	store  *store.Store
	hub    *hub.Hub
	timers *timer.Engine
	server *api.Server

	serveErr chan error
}

// New builds the full component graph. Nothing is running yet; Start
// launches the loops.
func New(cfg *config.Config, logger zerolog.Logger) (*Application, error) {
	st, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	registry := ws.NewRegistry()
	broadcaster := ws.NewBroadcaster(registry, logger)
	timers := timer.NewEngine(st, broadcaster, logger)
	rt := router.New(st, registry, broadcaster, timers, logger)
	h := hub.New(rt, registry, broadcaster, logger)
	wsHandler := ws.NewHandler(h, cfg.WebSocket, logger)
	sessions := session.NewService(st, logger)
	server := api.NewServer(cfg.HTTP, sessions, st, registry, broadcaster, wsHandler, logger)

	return &Application{
		cfg:      cfg,
		log:      logger.With().Str("component", "app").Logger(),
		store:    st,
		hub:      h,
		timers:   timers,
		server:   server,
		serveErr: make(chan error, 1),
	}, nil
}

// Start launches the hub loop and the HTTP server.
func (a *Application) Start() {
	a.hub.Start()
	go func() {
		a.serveErr <- a.server.Start()
	}()
	a.log.Info().Msg("application started")
}

// Addr reports the HTTP listen address once the server has bound.
func (a *Application) Addr() string {
	return a.server.Addr()
}

// ServeErr reports a server failure, nil after a clean shutdown.
func (a *Application) ServeErr() <-chan error {
	return a.serveErr
}

// Stop shuts components down in reverse dependency order: stop accepting
// traffic, stop the dispatch loop, stop the timers, close the store.
func (a *Application) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Error().Err(err).Msg("http shutdown failed")
	}

	a.hub.Stop()
	a.timers.StopAll()

	if err := a.store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}

	a.log.Info().Msg("application stopped")
	return nil
}
