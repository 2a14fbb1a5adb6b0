// Package httpserver serves the magmad operations endpoints.
//
//	GET  /healthz                          liveness
//	GET  /readyz                           readiness (backends reachable)
//	GET  /metrics                          Prometheus exposition
//	GET  /admin/v1/cache                   cache summary
//	GET  /admin/v1/cache/{username}        one cached user
//	POST /admin/v1/cache/{username}/evict  evict if idle
//	POST /admin/v1/cache/sweep             evict all idle users
//
// Admin routes are restricted by a network allowlist.
package httpserver
