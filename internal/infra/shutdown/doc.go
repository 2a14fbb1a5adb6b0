// Package shutdown runs cleanup hooks when magmad is asked to stop.
//
// Hooks run in reverse registration order under a shared deadline, so
// components registered last (listeners) stop before the ones they
// depend on (cache, storage).
//
//	h := shutdown.NewHandler(30 * time.Second, log)
//	h.OnShutdown("storage", store.Close)
//	err := h.Wait(ctx)
package shutdown
