// internal/browser/context_utils.go
package browser

import "context"

// CombineContext returns a context that is done when either ctx1 or ctx2 is.
// Values and the deadline come from ctx1. The returned cancel must be called
// to release the watcher goroutine.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}
