// Package server implements the GoRelay chat server: the session registry,
// the line router, and the connection lifecycle around them.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
)

// Server is the central relay. It owns the listeners, the registry of
// active sessions, and the runtime metrics.
type Server struct {
	cfg      Config
	registry *Registry
	metrics  *Metrics

	listener   net.Listener
	wsListener net.Listener
	wsServer   *http.Server

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

// New creates a new Server instance.
func New(cfg Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		registry: NewRegistry(),
		metrics:  NewMetrics(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Registry returns the session registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}
