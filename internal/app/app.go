package app

import (
	"context"
	"log/slog"
	"net/http"

	"clinic-federation-service/internal/config"
)

type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Server  *http.Server
	Sweeper *Sweeper
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server, sweeper *Sweeper) *App {
	return &App{Config: cfg, Logger: logger, Server: server, Sweeper: sweeper}
}

// Start runs the HTTP server and the background sweeper until ctx is
// cancelled. It returns the server's terminal error, if any.
func (a *App) Start(ctx context.Context) error {
	go a.Sweeper.Run(ctx)
	a.Logger.Info("server starting", "addr", a.Server.Addr)
	err := a.Server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.Server.Shutdown(ctx)
}
