// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/apex/log"
	"github.com/gammazero/channelqueue"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/staranto/cachefetch/internal/cache"
	"github.com/staranto/cachefetch/internal/cacheutil"
	mylog "github.com/staranto/cachefetch/internal/log"
	"github.com/staranto/cachefetch/internal/meta"
	"github.com/staranto/cachefetch/internal/output"
)

// renewal is pushed onto the fetch queue every time a URL's value is
// computed. Initial marks the computation done by the first fetch.
type renewal struct {
	URL     string
	Initial bool
}

// fetcher keeps one cache.Owner for all URLs of a fetch invocation.
type fetcher struct {
	owner  cache.Owner[any]
	client *retryablehttp.Client
	disk   Disk
	dir    string
	urls   []string
	asJSON bool
	every  time.Duration
}

// FetchCommandAction is the action handler for the "fetch" subcommand. It
// fetches every URL once, prints the values and optionally keeps the renewal
// timers running until --renewals renewals have been seen.
func FetchCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	w := Out(m)

	urls := cmd.Args().Slice()
	if len(urls) == 0 {
		return errors.New("at least one URL is required")
	}
	for _, u := range urls {
		if err := FlagValidators(u, URLValidator); err != nil {
			return fmt.Errorf("invalid URL %q: %w", u, err)
		}
	}

	save := cmd.String("save")
	if save != "" && len(urls) != 1 {
		return errors.New("--save needs exactly one URL")
	}

	disk, dir, err := OpenDisk(ctx, cmd)
	if err != nil {
		return err
	}

	f := &fetcher{
		client: newHTTPClient(cmd),
		disk:   disk,
		dir:    dir,
		urls:   urls,
		asJSON: cmd.Bool("json"),
		every:  cmd.Duration("every"),
	}
	defer f.owner.Stop()

	values, err := f.fetchAll(ctx, cmd.Int("concurrency"))
	if err != nil {
		return err
	}

	path := cmd.String("path")
	for i, u := range urls {
		if len(urls) > 1 {
			fmt.Fprintf(w, "==> %s <==\n", u)
		}
		if err := output.ValueWriter(w, values[i], path); err != nil {
			return fmt.Errorf("%s: %w", u, err)
		}
	}

	if save != "" {
		if err := saveObject(values[0], save, cmd.String("dir")); err != nil {
			return err
		}
	}

	return f.watch(ctx, w, cmd.Int("renewals"), path, cmd.Bool("diff"), values)
}

// saveObject stores v as a named JSON object beneath root, independent of the
// URL keyed files.
func saveObject(v any, key, root string) error {
	if err := os.MkdirAll(root, 0o700); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create %s: %w", root, err)
	}
	p, err := cacheutil.WriteObject(v, key, root)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	log.WithField("key", key).Debugf("saved to %s", p)
	return nil
}

// fetchAll runs QueuedFetch for every URL, at most limit at a time, and
// returns the values in URL order.
func (f *fetcher) fetchAll(ctx context.Context, limit int) ([]any, error) {
	values := make([]any, len(f.urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, u := range f.urls {
		g.Go(func() error {
			var initial atomic.Bool
			initial.Store(true)
			defer initial.Store(false)

			v, err := cache.QueuedFetch(gctx, f.params(u, &initial))
			if err != nil {
				return fmt.Errorf("failed to fetch %s: %w", u, err)
			}
			values[i] = v
			return nil
		})
	}

	return values, g.Wait()
}

// watch drains the renewal queue until n renewals have been printed.
func (f *fetcher) watch(ctx context.Context, w io.Writer, n int, path string, diff bool, values []any) error {
	if n <= 0 {
		return nil
	}

	last := make(map[string]any, len(f.urls))
	for i, u := range f.urls {
		last[u] = values[i]
	}

	q := f.queue()
	for seen := 0; seen < n; {
		var r renewal
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r = <-q.Out():
		}
		if r.Initial {
			continue
		}
		seen++

		v, _ := f.owner.Results().Get(r.URL)
		log.WithField("url", r.URL).Debugf("renewal %d of %d", seen, n)

		if diff {
			fmt.Fprintf(w, "--- %s\n", r.URL)
			changed, err := output.DiffWriter(w, last[r.URL], v)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintln(w, "(no changes)")
			}
		} else {
			if len(f.urls) > 1 {
				fmt.Fprintf(w, "==> %s <==\n", r.URL)
			}
			if err := output.ValueWriter(w, v, path); err != nil {
				return fmt.Errorf("%s: %w", r.URL, err)
			}
		}
		last[r.URL] = v
	}

	return nil
}

func (f *fetcher) queue() *channelqueue.ChannelQueue[renewal] {
	q, _ := f.owner.Queue().(*channelqueue.ChannelQueue[renewal])
	return q
}

// params builds the QueuedFetch parameters for u. The queue is left open
// after the owner stops because a refresh already in flight may still report
// to it.
func (f *fetcher) params(u string, initial *atomic.Bool) *cache.QueuedParams[any] {
	return &cache.QueuedParams[any]{
		Owner:    &f.owner,
		Key:      u,
		Produce:  f.produce(u),
		Interval: f.every,
		QueueProvider: func(context.Context) (cache.Queue, error) {
			return channelqueue.New[renewal](-1), nil
		},
		OnRenewed: func(*cache.Handle) {
			f.queue().In() <- renewal{URL: u, Initial: initial.Load()}
		},
		FileURLs:      f.urls,
		DiskReader:    f.disk,
		DiskWriter:    f.disk,
		FileDirectory: f.dir,
		FileIsJSON:    f.asJSON,
	}
}

// produce returns a producer issuing a GET for u. JSON responses are decoded
// when --json is set, anything else is kept as text.
func (f *fetcher) produce(u string) cache.Producer[any] {
	return func(ctx context.Context) (any, error) {
		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		if f.asJSON {
			req.Header.Set("Accept", "application/json")
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("GET %s: %s", u, resp.Status)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response from %s: %w", u, err)
		}
		log.WithFields(log.Fields{"url": u, "bytes": len(body)}).Debug("fetched")

		if !f.asJSON {
			return string(body), nil
		}
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("response from %s is not JSON: %w", u, err)
		}
		return v, nil
	}
}

func newHTTPClient(cmd *cli.Command) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = cmd.Int("retries")
	c.HTTPClient.Timeout = cmd.Duration("timeout")
	c.Logger = mylog.Leveled{Logger: log.Log}
	return c
}

// FetchCommandBuilder constructs the cli.Command definition for the "fetch"
// command.
func FetchCommandBuilder(cmd *cli.Command, m meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "fetch",
		Usage:     "fetch URLs through the cache and keep them renewed",
		UsageText: `cachefetch fetch URL... [options]`,
		Flags:     append(NewFetchFlags(m), NewStoreFlags("fetch", m)...),
		Action:    FetchCommandAction,
		Meta:      m,
	}).Build()
}
