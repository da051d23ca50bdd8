// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/cachefetch/internal/cacheutil"
)

const testURL = "https://www.example.com/feeds/alfa.json?page=1"

// memDisk is an in-memory DiskReader and DiskWriter.
type memDisk struct {
	mu      sync.Mutex
	files   map[string][]byte
	writes  int
	failOn  string
	readErr error
}

func newMemDisk() *memDisk {
	return &memDisk{files: make(map[string][]byte)}
}

func (d *memDisk) ReadFile(_ context.Context, name string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.readErr != nil {
		return nil, d.readErr
	}
	return d.files[name], nil
}

func (d *memDisk) WriteFile(_ context.Context, name string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if name == d.failOn {
		return errors.New("disk full")
	}
	d.writes++
	d.files[name] = data
	return nil
}

func (d *memDisk) writeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}

type stubQueue struct{ id int }

func queueProvider(calls *atomic.Int32) QueueProvider {
	return func(context.Context) (Queue, error) {
		return &stubQueue{id: int(calls.Add(1))}, nil
	}
}

func TestQueuedFetch_Validation(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	valid := func() *QueuedParams[string] {
		return &QueuedParams[string]{
			Owner:         &Owner[string]{},
			Key:           "alfa",
			Produce:       constant("bravo"),
			Interval:      time.Hour,
			QueueProvider: queueProvider(&calls),
		}
	}

	tests := []struct {
		name   string
		mutate func(p *QueuedParams[string]) *QueuedParams[string]
		want   string
	}{
		{"nil params", func(*QueuedParams[string]) *QueuedParams[string] { return nil }, "params"},
		{"nil owner", func(p *QueuedParams[string]) *QueuedParams[string] { p.Owner = nil; return p }, "owner"},
		{"nil producer", func(p *QueuedParams[string]) *QueuedParams[string] { p.Produce = nil; return p }, "producer"},
		{"zero interval", func(p *QueuedParams[string]) *QueuedParams[string] { p.Interval = 0; return p }, "interval"},
		{"nil queue provider", func(p *QueuedParams[string]) *QueuedParams[string] { p.QueueProvider = nil; return p }, "queue provider"},
		{"file URLs without reader", func(p *QueuedParams[string]) *QueuedParams[string] {
			p.FileURLs = []string{testURL}
			p.FileDirectory = t.TempDir()
			return p
		}, "disk reader"},
		{"file URLs without directory", func(p *QueuedParams[string]) *QueuedParams[string] {
			p.FileURLs = []string{testURL}
			p.DiskReader = newMemDisk()
			return p
		}, "file directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := QueuedFetch(ctx, tt.mutate(valid()))
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.Zero(t, calls.Load(), "validation must fail before any side effect")
}

func TestQueuedFetch_SetupOncePerOwner(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	owner := &Owner[string]{}
	defer owner.Stop()

	for _, key := range []string{"alfa", "bravo", "alfa"} {
		v, err := QueuedFetch(ctx, &QueuedParams[string]{
			Owner:         owner,
			Key:           key,
			Produce:       constant(key + "-value"),
			Interval:      time.Hour,
			QueueProvider: queueProvider(&calls),
		})
		require.NoError(t, err)
		assert.Equal(t, key+"-value", v)
	}

	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, &stubQueue{id: 1}, owner.Queue())
	assert.Equal(t, []string{"alfa", "bravo"}, owner.Results().Keys())
}

func TestQueuedFetch_QueueProviderError(t *testing.T) {
	owner := &Owner[string]{}
	boom := errors.New("no queue")
	_, err := QueuedFetch(context.Background(), &QueuedParams[string]{
		Owner:         owner,
		Key:           "alfa",
		Produce:       constant("bravo"),
		Interval:      time.Hour,
		QueueProvider: func(context.Context) (Queue, error) { return nil, boom },
	})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, owner.Results())
}

func TestQueuedFetch_DiskRoundTrip(t *testing.T) {
	ctx := context.Background()
	disk := newMemDisk()
	dir := "/var/cache/test"
	var calls atomic.Int32

	want := map[string]any{"alfa": "bravo", "charlie": []any{"delta"}}
	first := &Owner[map[string]any]{}
	defer first.Stop()

	v, err := QueuedFetch(ctx, &QueuedParams[map[string]any]{
		Owner: first,
		Key:   testURL,
		Produce: func(context.Context) (map[string]any, error) {
			return want, nil
		},
		Interval:      time.Hour,
		QueueProvider: queueProvider(&calls),
		FileURLs:      []string{testURL},
		DiskReader:    disk,
		DiskWriter:    disk,
		FileDirectory: dir,
		FileIsJSON:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, want, v)
	assert.Equal(t, 1, disk.writeCount())

	name := filepath.Join(dir, cacheutil.URLFilename(testURL))
	assert.Equal(t, "{\n\t\"alfa\": \"bravo\",\n\t\"charlie\": [\n\t\t\"delta\"\n\t]\n}", string(disk.files[name]))

	// A fresh owner rehydrates from disk and never calls the producer.
	second := &Owner[map[string]any]{}
	defer second.Stop()
	v, err = QueuedFetch(ctx, &QueuedParams[map[string]any]{
		Owner: second,
		Key:   testURL,
		Produce: func(context.Context) (map[string]any, error) {
			return nil, errors.New("producer must not run")
		},
		Interval:      time.Hour,
		QueueProvider: queueProvider(&calls),
		FileURLs:      []string{testURL},
		DiskReader:    disk,
		DiskWriter:    disk,
		FileDirectory: dir,
		FileIsJSON:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, want, v)
	assert.Equal(t, 1, disk.writeCount())
}

func TestQueuedFetch_HydrationFailsOpen(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32

	tests := []struct {
		name string
		disk func(dir string) *memDisk
	}{
		{"corrupt file", func(dir string) *memDisk {
			d := newMemDisk()
			d.files[filepath.Join(dir, cacheutil.URLFilename(testURL))] = []byte("{not json")
			return d
		}},
		{"read error", func(string) *memDisk {
			d := newMemDisk()
			d.readErr = errors.New("permission denied")
			return d
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := "/tmp/cache"
			disk := tt.disk(dir)
			owner := &Owner[string]{}
			defer owner.Stop()

			v, err := QueuedFetch(ctx, &QueuedParams[string]{
				Owner:         owner,
				Key:           testURL,
				Produce:       constant("fresh"),
				Interval:      time.Hour,
				QueueProvider: queueProvider(&calls),
				FileURLs:      []string{testURL},
				DiskReader:    disk,
				DiskWriter:    disk,
				FileDirectory: dir,
				FileIsJSON:    true,
			})
			require.NoError(t, err)
			assert.Equal(t, "fresh", v)
		})
	}
}

func TestQueuedFetch_Verbatim(t *testing.T) {
	ctx := context.Background()
	disk := newMemDisk()
	dir := "/tmp/raw"
	var calls atomic.Int32

	params := func(owner *Owner[string], v string) *QueuedParams[string] {
		return &QueuedParams[string]{
			Owner:         owner,
			Key:           testURL,
			Produce:       constant(v),
			Interval:      time.Hour,
			QueueProvider: queueProvider(&calls),
			FileURLs:      []string{testURL},
			DiskReader:    disk,
			DiskWriter:    disk,
			FileDirectory: dir,
		}
	}

	first := &Owner[string]{}
	defer first.Stop()
	_, err := QueuedFetch(ctx, params(first, "<html>alfa</html>"))
	require.NoError(t, err)
	assert.Equal(t, "<html>alfa</html>", string(disk.files[filepath.Join(dir, cacheutil.URLFilename(testURL))]))

	second := &Owner[string]{}
	defer second.Stop()
	v, err := QueuedFetch(ctx, params(second, "ignored"))
	require.NoError(t, err)
	assert.Equal(t, "<html>alfa</html>", v)
}

func TestQueuedFetch_OneTimerPerKey(t *testing.T) {
	ctx := context.Background()
	disk := newMemDisk()
	var calls atomic.Int32
	owner := &Owner[string]{}
	defer owner.Stop()
	produce, produced := counter()

	params := &QueuedParams[string]{
		Owner:         owner,
		Key:           testURL,
		Produce:       produce,
		Interval:      10 * time.Millisecond,
		QueueProvider: queueProvider(&calls),
		FileURLs:      []string{},
		DiskReader:    disk,
		DiskWriter:    disk,
		FileDirectory: "/tmp/timers",
		FileIsJSON:    true,
	}

	start := time.Now()
	_, err := QueuedFetch(ctx, params)
	require.NoError(t, err)
	h, ok := owner.Timer(testURL)
	require.True(t, ok)

	for i := 0; i < 3; i++ {
		_, err := QueuedFetch(ctx, params)
		require.NoError(t, err)
		again, ok := owner.Timer(testURL)
		require.True(t, ok)
		assert.Same(t, h, again)
	}

	// A single schedule runs at most once per elapsed interval.
	time.Sleep(50 * time.Millisecond)
	n := produced()
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, n, int32(2))
	assert.LessOrEqual(t, n, 1+int32(elapsed/(10*time.Millisecond)))

	owner.Stop()
	assert.True(t, h.Cancelled())
	_, ok = owner.Timer(testURL)
	assert.False(t, ok)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int(produced()), disk.writeCount(), "every recomputation is persisted once")
}

func TestQueuedFetch_HookCancels(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	owner := &Owner[string]{}
	produce, produced := counter()

	var renewals atomic.Int32
	v, err := QueuedFetch(ctx, &QueuedParams[string]{
		Owner:         owner,
		Key:           "alfa",
		Produce:       produce,
		Interval:      5 * time.Millisecond,
		QueueProvider: queueProvider(&calls),
		OnRenewed: func(h *Handle) {
			assert.NotNil(t, h)
			if renewals.Add(1) == 2 {
				h.Cancel()
			}
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	assert.Eventually(t, func() bool { return produced() == 2 }, time.Second, time.Millisecond)
	assert.Never(t, func() bool { return produced() > 2 }, 40*time.Millisecond, 5*time.Millisecond)
	assert.EqualValues(t, 2, renewals.Load())
}

func TestQueuedFetch_Failures(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32

	t.Run("producer error", func(t *testing.T) {
		owner := &Owner[string]{}
		boom := errors.New("boom")
		_, err := QueuedFetch(ctx, &QueuedParams[string]{
			Owner:         owner,
			Key:           "alfa",
			Produce:       func(context.Context) (string, error) { return "", boom },
			Interval:      time.Hour,
			QueueProvider: queueProvider(&calls),
		})
		assert.Same(t, boom, err)
		_, ok := owner.Results().Get("alfa")
		assert.False(t, ok)
		_, ok = owner.Timer("alfa")
		assert.False(t, ok)
	})

	t.Run("disk write error", func(t *testing.T) {
		dir := "/tmp/full"
		disk := newMemDisk()
		disk.failOn = filepath.Join(dir, cacheutil.URLFilename(testURL))
		owner := &Owner[string]{}
		_, err := QueuedFetch(ctx, &QueuedParams[string]{
			Owner:         owner,
			Key:           testURL,
			Produce:       constant("bravo"),
			Interval:      time.Hour,
			QueueProvider: queueProvider(&calls),
			FileURLs:      []string{testURL},
			DiskReader:    disk,
			DiskWriter:    disk,
			FileDirectory: dir,
		})
		assert.ErrorContains(t, err, "disk full")
		_, ok := owner.Timer(testURL)
		assert.False(t, ok)
	})

	t.Run("value not storable verbatim", func(t *testing.T) {
		disk := newMemDisk()
		owner := &Owner[int]{}
		var ran atomic.Bool
		_, err := QueuedFetch(ctx, &QueuedParams[int]{
			Owner: owner,
			Key:   testURL,
			Produce: func(context.Context) (int, error) {
				ran.Store(true)
				return 7, nil
			},
			Interval:      time.Hour,
			QueueProvider: queueProvider(&calls),
			FileURLs:      []string{testURL},
			DiskReader:    disk,
			DiskWriter:    disk,
			FileDirectory: "/tmp/int",
		})
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.False(t, ran.Load())
		assert.Nil(t, owner.Results())
	})

	t.Run("dynamic value not storable verbatim", func(t *testing.T) {
		disk := newMemDisk()
		owner := &Owner[any]{}
		defer owner.Stop()
		_, err := QueuedFetch(ctx, &QueuedParams[any]{
			Owner:         owner,
			Key:           testURL,
			Produce:       func(context.Context) (any, error) { return 7, nil },
			Interval:      time.Hour,
			QueueProvider: queueProvider(&calls),
			FileURLs:      []string{testURL},
			DiskReader:    disk,
			DiskWriter:    disk,
			FileDirectory: "/tmp/any",
		})
		assert.ErrorContains(t, err, "verbatim")
		assert.NotErrorIs(t, err, ErrInvalidArgument)
		assert.Zero(t, disk.writeCount())
	})
}

func TestQueuedFetch_FailedCallerKeepsOthersTimer(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	owner := &Owner[string]{}
	defer owner.Stop()

	started := make(chan struct{})
	release := make(chan struct{})
	boom := errors.New("boom")

	firstErr := make(chan error, 1)
	go func() {
		_, err := QueuedFetch(ctx, &QueuedParams[string]{
			Owner: owner,
			Key:   "alfa",
			Produce: func(context.Context) (string, error) {
				close(started)
				<-release
				return "", boom
			},
			Interval:      time.Hour,
			QueueProvider: queueProvider(&calls),
		})
		firstErr <- err
	}()
	<-started

	v, err := QueuedFetch(ctx, &QueuedParams[string]{
		Owner:         owner,
		Key:           "alfa",
		Produce:       constant("ok"),
		Interval:      time.Hour,
		QueueProvider: queueProvider(&calls),
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	h, ok := owner.Timer("alfa")
	require.True(t, ok)

	close(release)
	assert.Same(t, boom, <-firstErr)

	again, ok := owner.Timer("alfa")
	require.True(t, ok, "the successful caller's timer survives")
	assert.Same(t, h, again)
	got, ok := owner.Results().Get("alfa")
	assert.True(t, ok)
	assert.Equal(t, "ok", got)
}

func TestQueuedFetch_ConcurrentSuccessesShareOneTimer(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	owner := &Owner[string]{}
	defer owner.Stop()

	release := make(chan struct{})
	var inProducer sync.WaitGroup
	inProducer.Add(2)
	produce := func(context.Context) (string, error) {
		inProducer.Done()
		<-release
		return "ok", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := QueuedFetch(ctx, &QueuedParams[string]{
				Owner:         owner,
				Key:           "alfa",
				Produce:       produce,
				Interval:      time.Hour,
				QueueProvider: queueProvider(&calls),
			})
			assert.NoError(t, err)
		}()
	}
	inProducer.Wait()
	close(release)
	wg.Wait()

	owner.mu.Lock()
	live := 0
	for _, h := range owner.timers {
		if !h.Cancelled() {
			live++
		}
	}
	owner.mu.Unlock()
	assert.Equal(t, 1, live)
}
