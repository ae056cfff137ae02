// Package server owns application lifecycle: startup order, signal
// handling and graceful shutdown.
package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ThreadForge/pkg/http"
	"ThreadForge/pkg/logger"
)

// Component is a background part of the app with its own lifecycle, such
// as queue workers or the price stream.
type Component interface {
	Start()
	Stop()
}

type namedComponent struct {
	name string
	Component
}

type namedCloser struct {
	name  string
	close func() error
}

// App ties the HTTP server, background components and resource closers
// together. Shutdown runs in reverse order of startup.
type App struct {
	logger          *logger.Logger
	server          *http.Server
	components      []namedComponent
	closers         []namedCloser
	shutdownTimeout time.Duration
}

// Option configures App.
type Option func(*App)

// WithComponent registers a background component.
func WithComponent(name string, c Component) Option {
	return func(a *App) {
		a.components = append(a.components, namedComponent{name: name, Component: c})
	}
}

// WithCloser registers a resource to close on shutdown.
func WithCloser(name string, fn func() error) Option {
	return func(a *App) {
		a.closers = append(a.closers, namedCloser{name: name, close: fn})
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.shutdownTimeout = d
		}
	}
}

// New creates the application shell.
func New(lgr *logger.Logger, srv *http.Server, opts ...Option) *App {
	a := &App{
		logger:          lgr,
		server:          srv,
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts everything and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	for _, c := range a.components {
		a.logger.Info("starting component", logger.String("component", c.name))
		c.Start()
	}

	if err := a.server.Start(); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	a.logger.Info("shutdown signal received", logger.String("signal", sig.String()))

	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if err := a.server.Stop(ctx); err != nil {
		a.logger.Error("http server shutdown failed", logger.Error(err))
	}

	for i := len(a.components) - 1; i >= 0; i-- {
		c := a.components[i]
		a.logger.Info("stopping component", logger.String("component", c.name))
		c.Stop()
	}

	for i := len(a.closers) - 1; i >= 0; i-- {
		cl := a.closers[i]
		if err := cl.close(); err != nil {
			a.logger.Error("close failed", logger.String("resource", cl.name), logger.Error(err))
		}
	}

	a.logger.RemoveCollector()
	a.logger.Info("shutdown complete")
	return nil
}
