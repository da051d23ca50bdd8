// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"time"
)

// Handle is a cancellable recurring timer. Policies create handles and hand
// them back to the caller; the library never cancels one on its own.
type Handle struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// newHandle derives a handle from parent. The handle keeps parent's values
// but not its cancellation, since recurring work outlives the call that
// started it.
func newHandle(parent context.Context) *Handle {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	return &Handle{ctx: ctx, cancel: cancel}
}

// Cancel stops the timer. It is safe to call more than once and from inside
// the work the timer runs.
func (h *Handle) Cancel() {
	h.cancel()
}

// Done is closed once the handle is cancelled.
func (h *Handle) Done() <-chan struct{} {
	return h.ctx.Done()
}

// Cancelled reports whether Cancel has been called.
func (h *Handle) Cancelled() bool {
	return h.ctx.Err() != nil
}

// every runs fn on a ticker until the handle is cancelled. When now is set fn
// also runs once right away. Ticks that arrive while fn is still running are
// dropped by the ticker, so invocations never overlap.
func (h *Handle) every(interval time.Duration, now bool, fn func(context.Context)) {
	if h.Cancelled() {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		if now {
			fn(h.ctx)
		}

		for {
			select {
			case <-h.ctx.Done():
				return
			case <-ticker.C:
				if h.Cancelled() {
					return
				}
				fn(h.ctx)
			}
		}
	}()
}
