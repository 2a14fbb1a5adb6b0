package handler

import (
	"context"
	"time"
)

// Headers shared by handlers and middleware.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderErrorCode = "X-Error-Code"
)

// Envelope codes not backed by a domain error.
const (
	CodeOK        = "OK"
	CodeInternal  = "MG-SYS-5000"
	CodeForbidden = "MG-SYS-4030"
	CodeNotReady  = "MG-SYS-5030"
	CodeBusy      = "MG-CACHE-4090"
)

// Response is the standard API response envelope.
// All JSON responses use this format except /metrics.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      CodeOK,
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// CacheEntryResponse is the response body for GET /admin/v1/cache/{username}.
type CacheEntryResponse struct {
	Username  string         `json:"username"`
	Refs      map[string]int `json:"refs"`
	TotalRefs int            `json:"total_refs"`
	Scope     string         `json:"scope"`
	LoadedAt  time.Time      `json:"loaded_at"`
	TouchedAt time.Time      `json:"touched_at"`
}

// CacheSummaryResponse is the response body for GET /admin/v1/cache.
type CacheSummaryResponse struct {
	Entries int `json:"entries"`
}

// EvictResponse is the response body for POST /admin/v1/cache/{username}/evict.
type EvictResponse struct {
	Username string `json:"username"`
	Evicted  bool   `json:"evicted"`
}

// SweepResponse is the response body for POST /admin/v1/cache/sweep.
type SweepResponse struct {
	Evicted int    `json:"evicted"`
	IdleTTL string `json:"idle_ttl"`
}

type requestIDKey struct{}

// WithRequestID stores the request id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
