package handler

import (
	"net/http"
	"time"

	"github.com/Pluto-lin/magma/internal/core/domain"
	"github.com/Pluto-lin/magma/internal/core/service"
)

// CacheSummary handles GET /admin/v1/cache.
func (h *Handler) CacheSummary(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, CacheSummaryResponse{Entries: h.cache.CacheLen()})
}

// CacheEntry handles GET /admin/v1/cache/{username}.
func (h *Handler) CacheEntry(w http.ResponseWriter, r *http.Request) {
	st, ok, err := h.cache.Stat(r.PathValue("username"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if !ok {
		h.handleServiceError(w, r, domain.ErrNotFound.WithDetails("user not cached"))
		return
	}
	h.writeJSON(w, r, http.StatusOK, toCacheEntryResponse(st))
}

// CacheEvict handles POST /admin/v1/cache/{username}/evict.
// An entry still referenced by a session is left in place.
func (h *Handler) CacheEvict(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	res, err := h.cache.EvictIfIdle(r.Context(), username)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if res == 1 {
		h.logger.Info("cache entry evicted by operator", "username", username)
		h.writeJSON(w, r, http.StatusOK, EvictResponse{Username: username, Evicted: true})
		return
	}

	// Nothing evicted: either still referenced or not cached at all.
	_, cached, err := h.cache.Stat(username)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if !cached {
		h.handleServiceError(w, r, domain.ErrNotFound.WithDetails("user not cached"))
		return
	}
	h.writeError(w, r, http.StatusConflict, CodeBusy, "user has active sessions", nil)
}

// CacheSweep handles POST /admin/v1/cache/sweep. The optional idle query
// parameter overrides the configured idle threshold.
func (h *Handler) CacheSweep(w http.ResponseWriter, r *http.Request) {
	idle := h.idleTTL
	if v := r.URL.Query().Get("idle"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			h.handleServiceError(w, r, domain.ErrInvalidArgument.WithDetailsf("idle: %q", v))
			return
		}
		idle = d
	}
	n, err := h.cache.Maintain(r.Context(), idle)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, SweepResponse{Evicted: n, IdleTTL: idle.String()})
}

func toCacheEntryResponse(st service.EntryStat) CacheEntryResponse {
	refs := make(map[string]int, len(st.Refs))
	for p, n := range st.Refs {
		refs[p.String()] = n
	}
	return CacheEntryResponse{
		Username:  st.Username,
		Refs:      refs,
		TotalRefs: st.TotalRefs(),
		Scope:     st.Scope.String(),
		LoadedAt:  st.LoadedAt,
		TouchedAt: st.TouchedAt,
	}
}
