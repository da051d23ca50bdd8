// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidArgument is returned, wrapped with detail, whenever an input is
// rejected. It is always returned before any side effect takes place.
var ErrInvalidArgument = errors.New("invalid argument")

// Producer computes the value for a key. Its error is returned to the caller
// as is.
type Producer[V any] func(ctx context.Context) (V, error)

// RenewFunc is called with the recurring timer's handle after every
// computation. Calling h.Cancel from inside it stops further renewals.
type RenewFunc func(h *Handle)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func checkFetch[V any](store Store[V], produce Producer[V]) error {
	if store == nil {
		return invalid("store is nil")
	}
	if produce == nil {
		return invalid("producer is nil")
	}
	return nil
}

func checkInterval(interval time.Duration) error {
	if interval <= 0 {
		return invalid("interval must be positive, got %s", interval)
	}
	return nil
}

// current returns what the store holds for key, falling back to v if the key
// has since been removed.
func current[V any](store Store[V], key string, v V) V {
	if got, ok := store.Get(key); ok {
		return got
	}
	return v
}

// SetExpiring stores value under key and deletes the key once ttl elapses.
// The deletion does not check whether the key was rewritten in the meantime.
func SetExpiring[V any](store Store[V], key string, value V, ttl time.Duration) (string, error) {
	if store == nil {
		return "", invalid("store is nil")
	}
	if ttl < 0 {
		return "", invalid("ttl must not be negative, got %s", ttl)
	}

	store.Set(key, value)
	time.AfterFunc(ttl, func() {
		store.Delete(key)
	})
	return key, nil
}

// Memoize returns the stored value for key, calling produce only when the key
// is absent. With a nil store nothing is memoized and produce runs every time.
func Memoize[V any](produce func() V, key string, store Store[V]) (V, error) {
	var zero V
	if produce == nil {
		return zero, invalid("producer is nil")
	}
	if store == nil {
		return produce(), nil
	}

	if v, ok := store.Get(key); ok {
		return v, nil
	}
	v := produce()
	store.Set(key, v)
	return v, nil
}

// FetchOnce returns the stored value for key, or runs produce and stores its
// result when the key is absent.
func FetchOnce[V any](ctx context.Context, store Store[V], key string, produce Producer[V]) (V, error) {
	var zero V
	if err := checkFetch(store, produce); err != nil {
		return zero, err
	}

	if v, ok := store.Get(key); ok {
		return v, nil
	}
	v, err := produce(ctx)
	if err != nil {
		return zero, err
	}
	store.Set(key, v)
	return current(store, key, v), nil
}

// FetchShared is FetchOnce with concurrent misses for the same key coalesced
// through group, so produce runs once per miss no matter how many callers are
// waiting on it.
func FetchShared[V any](ctx context.Context, store Store[V], group *singleflight.Group, key string, produce Producer[V]) (V, error) {
	var zero V
	if err := checkFetch(store, produce); err != nil {
		return zero, err
	}
	if group == nil {
		return zero, invalid("group is nil")
	}

	if v, ok := store.Get(key); ok {
		return v, nil
	}
	res, err, shared := group.Do(key, func() (any, error) {
		if v, ok := store.Get(key); ok {
			return v, nil
		}
		v, err := produce(ctx)
		if err != nil {
			return nil, err
		}
		store.Set(key, v)
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	if shared {
		log.WithField("key", key).Debug("shared in-flight fetch")
	}
	v, _ := res.(V)
	return v, nil
}

// FetchExpiring behaves like FetchOnce and, whenever it computes a value,
// deletes the key again once ttl elapses so the next call recomputes.
// Every computation arms its own countdown.
func FetchExpiring[V any](ctx context.Context, store Store[V], key string, produce Producer[V], ttl time.Duration) (V, error) {
	var zero V
	if err := checkFetch(store, produce); err != nil {
		return zero, err
	}
	if ttl < 0 {
		return zero, invalid("ttl must not be negative, got %s", ttl)
	}

	if v, ok := store.Get(key); ok {
		return v, nil
	}
	v, err := produce(ctx)
	if err != nil {
		return zero, err
	}
	store.Set(key, v)
	time.AfterFunc(ttl, func() {
		store.Delete(key)
	})
	return current(store, key, v), nil
}

// FetchRenewing behaves like FetchOnce and, whenever it computes a value,
// keeps recomputing it every interval until the handle passed to onRenewed is
// cancelled. onRenewed runs after the first computation and after every
// renewal, always with the live handle. If the key is already present nothing
// is scheduled, and nothing stops two calls racing on an absent key from
// scheduling two timers.
func FetchRenewing[V any](ctx context.Context, store Store[V], key string, produce Producer[V], interval time.Duration, onRenewed RenewFunc) (V, error) {
	var zero V
	if err := checkFetch(store, produce); err != nil {
		return zero, err
	}
	if err := checkInterval(interval); err != nil {
		return zero, err
	}
	if onRenewed == nil {
		onRenewed = func(*Handle) {}
	}

	if v, ok := store.Get(key); ok {
		return v, nil
	}

	h := newHandle(ctx)
	v, err := produce(ctx)
	if err != nil {
		h.Cancel()
		return zero, err
	}
	store.Set(key, v)
	onRenewed(h)

	h.every(interval, false, func(ctx context.Context) {
		v, err := produce(ctx)
		if err != nil {
			log.WithError(err).WithField("key", key).Warn("renewal failed")
			return
		}
		store.Set(key, v)
		onRenewed(h)
	})

	return current(store, key, v), nil
}

// FetchEvery computes the value for key right away and then every interval,
// overwriting whatever the store holds. It returns as soon as the work is
// scheduled; errors are only returned for invalid input.
func FetchEvery[V any](ctx context.Context, store Store[V], key string, produce Producer[V], interval time.Duration) (*Handle, error) {
	if err := checkFetch(store, produce); err != nil {
		return nil, err
	}
	if err := checkInterval(interval); err != nil {
		return nil, err
	}

	h := newHandle(ctx)
	h.every(interval, true, func(ctx context.Context) {
		v, err := produce(ctx)
		if err != nil {
			log.WithError(err).WithField("key", key).Warn("refresh failed")
			return
		}
		store.Set(key, v)
	})
	return h, nil
}
