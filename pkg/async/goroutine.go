// Package async provides safe fire-and-forget execution for background work
// such as usage metering, with panic recovery and bounded timeouts.
package async

import (
	"context"
	"log"
	"runtime/debug"
	"time"
)

// SafeGo executes fn in a goroutine with a bounded timeout, panic recovery,
// and error logging. Use instead of a bare `go func()` for side-channel work
// that must never crash the process or block the caller.
//
// Example:
//
//	async.SafeGo(r.Context(), 5*time.Second, "usage metering", func(ctx context.Context) error {
//	    return sink.AddUsage(ctx, teamID, feature, period, 1)
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				log.Printf("[SafeGo] PANIC in %s: %v\nStack trace:\n%s",
					taskName, r, string(debug.Stack()))
			}
		}()

		if err := fn(ctx); err != nil {
			// Best-effort work: log and move on.
			log.Printf("[SafeGo] Error in %s: %v", taskName, err)
		}
	}()
}

// SafeGoNoError is like SafeGo for functions that do not return errors
func SafeGoNoError(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context)) {
	SafeGo(parentCtx, timeout, taskName, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}
