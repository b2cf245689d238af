// Package handler exposes statement imports over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/FACorreiaa/bankountable/internal/domain/import/parser"
	"github.com/FACorreiaa/bankountable/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/bankountable/internal/domain/import/service"
	"github.com/FACorreiaa/bankountable/pkg/storage"
)

// UserIDHeader carries the authenticated user's ID, set by the gateway.
const UserIDHeader = "X-User-ID"

const formFileField = "file"

// Importer is the part of the import service the handler needs.
type Importer interface {
	ImportStatement(ctx context.Context, userID uuid.UUID, fileName, contentType string, r io.Reader, opts importservice.ImportOptions) (*importservice.ImportResult, error)
	ListImports(ctx context.Context, userID uuid.UUID) ([]*repository.Import, error)
}

// ImportHandler handles statement upload requests
type ImportHandler struct {
	importSvc Importer
	maxBytes  int64
	opts      importservice.ImportOptions
	logger    *slog.Logger
}

// NewImportHandler creates a new import handler. maxBytes bounds the request body.
func NewImportHandler(importSvc Importer, maxBytes int64, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		importSvc: importSvc,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// WithOptions sets the options used for every import.
func (h *ImportHandler) WithOptions(opts importservice.ImportOptions) *ImportHandler {
	h.opts = opts
	return h
}

// Register adds the import routes to mux.
func (h *ImportHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/import/pdf", h.ImportStatement)
	mux.HandleFunc("GET /api/import/list", h.ListImports)
}

type importResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*importservice.ImportResult
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// ImportStatement accepts a multipart upload in the "file" field.
func (h *ImportHandler) ImportStatement(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, err, "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	file, header, err := r.FormFile(formFileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, storage.ErrFileTooLarge, "")
			return
		}
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("missing %q form file: %w", formFileField, err), "")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	result, err := h.importSvc.ImportStatement(r.Context(), userID, header.Filename, contentType, file, h.opts)
	if err != nil {
		h.writeImportError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, importResponse{
		Success:      true,
		Message:      fmt.Sprintf("imported %d transactions", result.RowsImported),
		ImportResult: result,
	})
}

// ListImports returns the latest import batches for the user.
func (h *ImportHandler) ListImports(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, err, "")
		return
	}

	imports, err := h.importSvc.ListImports(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list imports", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, errors.New("failed to list imports"), "")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"imports": imports})
}

func (h *ImportHandler) writeImportError(w http.ResponseWriter, err error) {
	if kind, ok := parser.KindOf(err); ok {
		h.writeError(w, http.StatusUnprocessableEntity, err, string(kind))
		return
	}
	if errors.Is(err, storage.ErrFileTooLarge) {
		h.writeError(w, http.StatusRequestEntityTooLarge, storage.ErrFileTooLarge, "")
		return
	}
	h.logger.Error("failed to import statement", slog.Any("error", err))
	h.writeError(w, http.StatusInternalServerError, errors.New("failed to import statement"), "")
}

func (h *ImportHandler) writeError(w http.ResponseWriter, status int, err error, kind string) {
	h.writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func (h *ImportHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to write response", slog.Any("error", err))
	}
}

func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(UserIDHeader)
	if raw == "" {
		return uuid.Nil, errors.New("user not authenticated")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id: %w", err)
	}
	return id, nil
}
