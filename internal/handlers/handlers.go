// Package handlers provides HTTP handlers for the PDF signing API.
//
// This package contains the HTTP endpoints for document upload, fetch,
// signing and download, plus a health check.
//
// Example usage:
//
//	h := handlers.NewAPIHandler(service, maxUploadBytes, maxSignBytes)
//	r := chi.NewRouter()
//	r.Post("/upload", h.UploadFile)
//
// All handlers are designed to be used with the chi router.
package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go-signpdf/internal/document"
	"go-signpdf/internal/logging"
	"go-signpdf/internal/signing"
	"go-signpdf/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type APIHandler struct {
	Service        *signing.Service
	MaxUploadBytes int64
	MaxSignBytes   int64
}

func NewAPIHandler(svc *signing.Service, maxUploadBytes, maxSignBytes int64) *APIHandler {
	return &APIHandler{Service: svc, MaxUploadBytes: maxUploadBytes, MaxSignBytes: maxSignBytes}
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type DocumentResponse struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// SignRequest is the JSON body of POST /sign. Omitted width, height and page
// fall back to 200, 100 and 0.
type SignRequest struct {
	Filename  string   `json:"filename"`
	Signature string   `json:"signature"` // Base64, optionally as a data URL
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	Width     *float64 `json:"width,omitempty"`
	Height    *float64 `json:"height,omitempty"`
	Page      *int     `json:"page,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Detail: detail})
}

// writeServiceError converts workflow errors into HTTP responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, document.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Document not found")
	case errors.Is(err, document.ErrInvalidPageIndex),
		errors.Is(err, document.ErrInvalidDocument),
		errors.Is(err, document.ErrInvalidSignatureImage),
		errors.Is(err, document.ErrInvalidPlacement):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		logging.Error("Request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err.Error(),
		)
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// UploadFile godoc
// @Summary      Upload a PDF file
// @Description  Stores the uploaded file under its filename. Uploading the same name again adds another record.
// @Tags         documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "PDF file"
// @Success      200  {object}  signing.Result
// @Failure      400  {object}  ErrorResponse  "Bad request"
// @Router       /upload [post]
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "File too large or not multipart")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Error retrieving file")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, r, http.StatusBadRequest, "File has no name")
		return
	}

	contents, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Failed to read file")
		return
	}

	res, err := h.Service.Upload(r.Context(), header.Filename, contents)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, res)
}

// GetPDF godoc
// @Summary      Fetch a stored PDF
// @Description  Returns the document with its Base64 encoded content
// @Tags         documents
// @Produce      json
// @Param        filename  path  string  true  "Filename"
// @Success      200  {object}  DocumentResponse
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /pdf/{filename} [get]
func (h *APIHandler) GetPDF(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	doc, err := h.Service.Fetch(r.Context(), filename)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, DocumentResponse{Filename: doc.Filename, Content: doc.Content})
}

// SignPDF godoc
// @Summary      Sign a stored PDF
// @Description  Draws a signature image inside (x, y, x+width, y+height) on a page and replaces the stored document
// @Tags         signature
// @Accept       json
// @Produce      json
// @Param        request  body  SignRequest  true  "Sign request"
// @Success      200  {object}  signing.Result
// @Failure      400  {object}  ErrorResponse  "Invalid page, document, image or body"
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /sign [post]
func (h *APIHandler) SignPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxSignBytes)

	var req SignRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if req.Filename == "" {
		writeError(w, r, http.StatusBadRequest, "filename is required")
		return
	}
	if req.X == nil || req.Y == nil {
		writeError(w, r, http.StatusBadRequest, "x and y are required")
		return
	}

	signReq := document.SignRequest{
		Filename:  req.Filename,
		Signature: decodeSignature(req.Signature),
		X:         *req.X,
		Y:         *req.Y,
		Width:     document.DefaultWidth,
		Height:    document.DefaultHeight,
		Page:      document.DefaultPage,
	}
	if req.Width != nil {
		signReq.Width = *req.Width
	}
	if req.Height != nil {
		signReq.Height = *req.Height
	}
	if req.Page != nil {
		signReq.Page = *req.Page
	}

	res, err := h.Service.Sign(r.Context(), signReq)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, res)
}

// decodeSignature returns nil for payloads that are not Base64. The workflow
// then reports them as undecodable images, after the document checks.
func decodeSignature(s string) []byte {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	if raw, err := base64.StdEncoding.DecodeString(s); err == nil {
		return raw
	}
	if raw, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return raw
	}
	return nil
}

// DownloadFile godoc
// @Summary      Download a stored PDF
// @Description  Returns the stored PDF as an attachment
// @Tags         documents
// @Produce      application/pdf
// @Param        filename  path  string  true  "Filename"
// @Success      200  {file}  file  "PDF file download"
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Router       /download/{filename} [get]
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	raw, err := h.Service.Download(r.Context(), filename)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if disposition == "" {
		disposition = mime.FormatMediaType("attachment", map[string]string{"filename": utils.SanitizeFilename(filename)})
	}
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(raw); err != nil {
		logging.Warn("Download interrupted", "filename", filename, "error", err.Error())
	}
}

// Health godoc
// @Summary      Health check
// @Description  Reports whether the document store is reachable
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string  "{ status: ok }"
// @Failure      503  {object}  map[string]string  "{ status: unavailable }"
// @Router       /healthz [get]
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.Service.Ping(ctx); err != nil {
		logging.Warn("Store ping failed", "error", err.Error())
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]string{"status": "unavailable"})
		return
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}
