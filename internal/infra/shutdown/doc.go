// Package shutdown runs cleanup hooks when the process is asked to stop.
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown(store.Close)
//	err := h.WaitContext(ctx) // returns after SIGINT/SIGTERM or ctx is done
package shutdown
