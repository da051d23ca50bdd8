// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/hashicorp/go-multierror"

	"github.com/staranto/cachefetch/internal/cacheutil"
)

// Queue is an external task scheduler. QueuedFetch acquires it once per Owner
// and stores it; it never calls into it.
type Queue any

// QueueProvider creates the Queue for an Owner.
type QueueProvider func(ctx context.Context) (Queue, error)

// DiskReader reads a persisted value. A missing file is reported as nil data
// and a nil error.
type DiskReader interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

// DiskWriter persists a value, replacing anything already stored at name.
type DiskWriter interface {
	WriteFile(ctx context.Context, name string, data []byte) error
}

// Owner holds the state QueuedFetch keeps for a family of keys: the queue, the
// result map and one recurring timer per key. The zero value is ready to use;
// each piece is set up on first use.
type Owner[V any] struct {
	mu      sync.Mutex
	queue   Queue
	queued  bool
	results *Map[V]
	timers  map[string]*Handle
}

// Queue returns the queue acquired for o, or nil before the first fetch.
func (o *Owner[V]) Queue() Queue {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.queue
}

// Results returns the result map, or nil before the first fetch.
func (o *Owner[V]) Results() *Map[V] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.results
}

// Timer returns the live recurring timer registered for key.
func (o *Owner[V]) Timer(key string) (*Handle, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	h, ok := o.timers[key]
	if !ok || h.Cancelled() {
		return nil, false
	}
	return h, true
}

// Stop cancels every recurring timer registered on o.
func (o *Owner[V]) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, h := range o.timers {
		h.Cancel()
	}
}

// QueuedParams configures QueuedFetch. Owner, Key, Produce, Interval and
// QueueProvider are required. Setting FileURLs turns on persistence: every
// listed URL is read back from FileDirectory when the Owner is first set up,
// and each computed value is written under the file name derived from its
// key.
type QueuedParams[V any] struct {
	Owner         *Owner[V]
	Key           string
	Produce       Producer[V]
	Interval      time.Duration
	QueueProvider QueueProvider

	OnRenewed     RenewFunc
	FileURLs      []string
	DiskReader    DiskReader
	DiskWriter    DiskWriter
	FileDirectory string
	// FileIsJSON stores values as tab-indented JSON. Otherwise values are
	// stored verbatim and V must hold a string or []byte.
	FileIsJSON bool
}

func (p *QueuedParams[V]) validate() error {
	if p == nil {
		return invalid("params is nil")
	}
	if p.Owner == nil {
		return invalid("owner is nil")
	}
	if p.Produce == nil {
		return invalid("producer is nil")
	}
	if err := checkInterval(p.Interval); err != nil {
		return err
	}
	if p.QueueProvider == nil {
		return invalid("queue provider is nil")
	}
	if p.FileURLs != nil {
		if p.DiskReader == nil {
			return invalid("disk reader is required with file URLs")
		}
		if p.FileDirectory == "" {
			return invalid("file directory is required with file URLs")
		}
		if !p.FileIsJSON {
			var zero V
			switch any(zero).(type) {
			case string, []byte, nil:
				// nil means V is an interface; the dynamic type is checked on
				// write.
			default:
				return invalid("cannot store %T verbatim, set FileIsJSON", zero)
			}
		}
	}
	return nil
}

// QueuedFetch returns the value for p.Key from the Owner's result map,
// computing and persisting it when missing, and makes sure exactly one
// recurring timer keeps recomputing it every p.Interval. The first call on an
// Owner acquires its queue and rehydrates the result map from disk.
func QueuedFetch[V any](ctx context.Context, p *QueuedParams[V]) (V, error) {
	var zero V
	if err := p.validate(); err != nil {
		return zero, err
	}

	o := p.Owner
	if err := o.setup(ctx, p); err != nil {
		return zero, err
	}

	// A fresh handle is only registered once its first computation succeeds,
	// so a failed caller never takes down a timer another caller relies on.
	var candidate *Handle
	if _, ok := o.results.Get(p.Key); !ok {
		h, live := o.Timer(p.Key)
		if !live {
			h = newHandle(ctx)
		}
		if err := p.refresh(ctx, o.results, h); err != nil {
			if !live {
				h.Cancel()
			}
			return zero, err
		}
		if !live {
			candidate = h
		}
	}

	if h, created := o.register(ctx, p.Key, candidate); created {
		h.every(p.Interval, false, func(ctx context.Context) {
			if err := p.refresh(ctx, o.results, h); err != nil {
				log.WithError(err).WithField("key", p.Key).Warn("queued refresh failed")
			}
		})
	}

	v, _ := o.results.Get(p.Key)
	return v, nil
}

func (o *Owner[V]) setup(ctx context.Context, p *QueuedParams[V]) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.queued {
		q, err := p.QueueProvider(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire queue: %w", err)
		}
		o.queue = q
		o.queued = true
	}

	if o.results == nil {
		o.results = p.hydrate(ctx)
	}

	if o.timers == nil {
		o.timers = make(map[string]*Handle)
	}

	return nil
}

// register makes sure key has a timer. An existing live timer wins and
// candidate is discarded; otherwise candidate, or a new handle if it is nil,
// is registered. created reports whether the caller owns starting it.
func (o *Owner[V]) register(ctx context.Context, key string, candidate *Handle) (h *Handle, created bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if h, ok := o.timers[key]; ok && !h.Cancelled() {
		if candidate != nil && candidate != h {
			candidate.Cancel()
		}
		return h, false
	}
	if candidate == nil {
		candidate = newHandle(ctx)
	}
	o.timers[key] = candidate
	return candidate, true
}

// refresh computes the value, stores and persists it, then reports the
// renewal.
func (p *QueuedParams[V]) refresh(ctx context.Context, results *Map[V], h *Handle) error {
	v, err := p.Produce(ctx)
	if err != nil {
		return err
	}
	results.Set(p.Key, v)

	if err := p.persist(ctx, v); err != nil {
		return err
	}

	if p.OnRenewed != nil {
		p.OnRenewed(h)
	}
	return nil
}

func (p *QueuedParams[V]) path(url string) string {
	return filepath.Join(p.FileDirectory, cacheutil.URLFilename(url))
}

func (p *QueuedParams[V]) persist(ctx context.Context, v V) error {
	if p.FileURLs == nil {
		return nil
	}
	if p.DiskWriter == nil {
		log.WithField("key", p.Key).Debug("no disk writer, skipping persist")
		return nil
	}

	data, err := p.encode(v)
	if err != nil {
		return err
	}
	name := p.path(p.Key)
	if err := p.DiskWriter.WriteFile(ctx, name, data); err != nil {
		return fmt.Errorf("failed to persist %s: %w", name, err)
	}
	log.Debugf("persisted %s to %s", p.Key, name)
	return nil
}

// hydrate builds a result map from whatever FileURLs can be read back.
// Unreadable or malformed files are cache misses, not errors.
func (p *QueuedParams[V]) hydrate(ctx context.Context) *Map[V] {
	m := NewMap[V]()

	var errs *multierror.Error
	for _, url := range p.FileURLs {
		name := p.path(url)
		data, err := p.DiskReader.ReadFile(ctx, name)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("read %s: %w", name, err))
			continue
		}
		if data == nil {
			continue
		}
		v, err := p.decode(data)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("decode %s: %w", name, err))
			continue
		}
		m.Set(url, v)
	}

	if err := errs.ErrorOrNil(); err != nil {
		log.WithError(err).Debug("ignoring unreadable cache files")
	}
	log.Debugf("hydrated %d of %d cached results", m.Len(), len(p.FileURLs))
	return m
}

func (p *QueuedParams[V]) encode(v V) ([]byte, error) {
	if p.FileIsJSON {
		return json.MarshalIndent(v, "", "\t")
	}
	switch raw := any(v).(type) {
	case string:
		return []byte(raw), nil
	case []byte:
		return raw, nil
	}
	return nil, fmt.Errorf("cannot store %T verbatim, set FileIsJSON", v)
}

func (p *QueuedParams[V]) decode(data []byte) (V, error) {
	var v V
	if p.FileIsJSON {
		err := json.Unmarshal(data, &v)
		return v, err
	}
	if s, ok := any(string(data)).(V); ok {
		return s, nil
	}
	if b, ok := any(data).(V); ok {
		return b, nil
	}
	return v, fmt.Errorf("cannot load %T verbatim", v)
}
