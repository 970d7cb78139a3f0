// Package server provides the HTTP server setup for go-signpdf.
//
// NewServer wires the document store into the signing workflow and returns a
// configured http.Server.
//
// Expected outputs:
// - Server listens on the configured port (default 8080)
// - Every request shares the one store handle passed in
//
// Usage:
//
//	server := server.NewServer(cfg, store)
//	server.ListenAndServe()
//
// See internal/server/routes.go for route registration.
package server

import (
	"fmt"
	"net/http"

	"go-signpdf/internal/config"
	"go-signpdf/internal/document"
	"go-signpdf/internal/pdf"
	"go-signpdf/internal/signing"
)

type Server struct {
	port           int
	Service        *signing.Service
	AllowedOrigins []string
	MaxUploadBytes int64
	MaxSignBytes   int64
}

// New builds the application without the listener, for tests and NewServer.
func New(cfg config.Config, store document.Store) *Server {
	var opts []signing.Option
	if !cfg.Sign.Locking {
		opts = append(opts, signing.WithoutLocking())
	}
	return &Server{
		port:           cfg.Server.Port,
		Service:        signing.NewService(store, pdf.NewCodec(cfg.Sign.TempDir), opts...),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxUploadBytes: cfg.Limits.MaxUploadBytes,
		MaxSignBytes:   cfg.Limits.MaxSignBytes,
	}
}

func NewServer(cfg config.Config, store document.Store) *http.Server {
	srv := New(cfg, store)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", srv.port),
		Handler:      srv.RegisterRoutes(),
		IdleTimeout:  cfg.Server.IdleTimeout,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return server
}
