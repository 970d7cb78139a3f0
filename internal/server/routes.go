// Package server sets up the HTTP server and registers API routes for go-signpdf.
//
// RegisterRoutes returns an http.Handler with all API endpoints for document
// upload, fetch, signing and download.
//
// Expected outputs:
// - /upload, /pdf/{filename}, /sign, /download/{filename} and /healthz are available
// - CORS, request id, recovery and logging middleware are enabled
package server

import (
	"net"
	"net/http"

	_ "go-signpdf/docs"
	"go-signpdf/internal/handlers"
	"go-signpdf/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Only allow requests from localhost to /swagger/*
func localhostOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, _ := net.SplitHostPort(r.RemoteAddr)
		if host != "127.0.0.1" && host != "::1" && host != "localhost" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) RegisterRoutes() http.Handler {
	origins := s.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.With(localhostOnly).Get("/swagger/*", httpSwagger.WrapHandler)

	h := handlers.NewAPIHandler(s.Service, s.MaxUploadBytes, s.MaxSignBytes)
	r.Post("/upload", h.UploadFile)
	r.Get("/pdf/{filename}", h.GetPDF)
	r.Post("/sign", h.SignPDF)
	r.Get("/download/{filename}", h.DownloadFile)
	r.Get("/healthz", h.Health)

	return r
}
