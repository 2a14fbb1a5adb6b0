package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Pluto-lin/magma/internal/core/domain"
	"github.com/Pluto-lin/magma/internal/core/service"
	"github.com/Pluto-lin/magma/internal/telemetry/logger"
)

// CacheAdmin is the cache surface exposed to operators.
// *service.Authenticator satisfies it.
type CacheAdmin interface {
	Stat(username string) (service.EntryStat, bool, error)
	CacheLen() int
	EvictIfIdle(ctx context.Context, username string) (int, error)
	Maintain(ctx context.Context, idle time.Duration) (int, error)
}

// Handler serves the operations endpoints.
type Handler struct {
	cache   CacheAdmin
	ready   func() error
	idleTTL time.Duration
	logger  logger.Logger
}

// New creates a new Handler. ready may be nil.
func New(cache CacheAdmin, ready func() error, idleTTL time.Duration, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{
		cache:   cache,
		ready:   ready,
		idleTTL: idleTTL,
		logger:  log,
	}
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(NewResponse(requestID, data)); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	requestID := RequestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(HeaderErrorCode, code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(NewErrorResponse(requestID, code, message, details))
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if errors.As(err, &de) {
		h.writeError(w, r, errorCodeToHTTPStatus(de.Code), de.Code, de.Message, detailsOf(de))
		return
	}
	h.logger.Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, CodeInternal, "internal server error", nil)
}

func detailsOf(de *domain.DomainError) any {
	if de.Details == "" {
		return nil
	}
	return de.Details
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"), strings.HasSuffix(code, "-4041"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4010"):
		return http.StatusUnauthorized
	case strings.HasSuffix(code, "-4030"):
		return http.StatusForbidden
	case strings.HasPrefix(code, "MG-ARG-"),
		strings.HasPrefix(code, "MG-AUTH-400"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-5030"), strings.HasSuffix(code, "-5070"):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
