package httpserver

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Pluto-lin/magma/internal/server/httpserver/handler"
	"github.com/Pluto-lin/magma/internal/telemetry/logger"
)

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together. The first runs outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID assigns each request an id, reusing a valid X-Request-ID.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(handler.HeaderRequestID)
			if requestID == "" || len(requestID) > 64 {
				requestID = "req-" + ulid.Make().String()
			}
			w.Header().Set(handler.HeaderRequestID, requestID)

			ctx := handler.WithRequestID(r.Context(), requestID)
			ctx = logger.WithTraceID(ctx, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Audit logs every completed request.
func Audit(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			attrs := []any{
				"request_id", handler.RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"client_ip", remoteIP(r),
			}
			switch {
			case wrapped.statusCode >= 500:
				log.Error("request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				log.Warn("request completed with client error", attrs...)
			default:
				log.Debug("request completed", attrs...)
			}
		})
	}
}

// Recover turns a panic into a 500 response.
func Recover(log logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered",
						"request_id", handler.RequestIDFromContext(r.Context()),
						"error", err,
						"path", r.URL.Path)
					writeError(w, http.StatusInternalServerError, handler.CodeInternal, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// NetworkACL admits only clients whose address is in allowList. An empty
// list admits loopback clients only. Invalid entries are logged and
// skipped. Forwarding headers are ignored.
func NetworkACL(allowList []string, log logger.Logger) Middleware {
	var networks []*net.IPNet
	var singleIPs []net.IP
	for _, entry := range allowList {
		if strings.Contains(entry, "/") {
			_, ipNet, err := net.ParseCIDR(entry)
			if err != nil {
				log.Warn("invalid CIDR in allowlist", "entry", entry, "error", err)
				continue
			}
			networks = append(networks, ipNet)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			log.Warn("invalid IP in allowlist", "entry", entry)
			continue
		}
		singleIPs = append(singleIPs, ip)
	}
	loopbackOnly := len(networks) == 0 && len(singleIPs) == 0

	allowed := func(ip net.IP) bool {
		if loopbackOnly {
			return ip.IsLoopback()
		}
		for _, a := range singleIPs {
			if a.Equal(ip) {
				return true
			}
		}
		for _, n := range networks {
			if n.Contains(ip) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := remoteIP(r)
			ip := net.ParseIP(clientIP)
			if ip == nil || !allowed(ip) {
				log.Warn("request denied by network ACL", "client_ip", clientIP, "path", r.URL.Path)
				writeError(w, http.StatusForbidden, handler.CodeForbidden, "client not in allowlist")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(handler.HeaderErrorCode, code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(handler.NewErrorResponse("", code, message, nil))
}

// remoteIP returns the peer address of the connection.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
