// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package cache provides cache-population policies. Each policy computes an
// expensive value once, stores it under a key in a caller-owned Store and
// decides when to recompute it: never (FetchOnce, Memoize), after a fixed
// expiry (SetExpiring, FetchExpiring), on a recurring schedule
// (FetchRenewing, QueuedFetch) or unconditionally on an interval
// (FetchEvery).
//
// Policies never own long-lived state. They mutate the Store or Owner they
// are given and hand back a *Handle for any recurring work, which the caller
// cancels when it is no longer wanted.
//
// None of the policies hold a per-key lock. Two callers that both observe an
// absent key will both run the producer and the last write wins. Use
// FetchShared when concurrent misses must be coalesced.
package cache
