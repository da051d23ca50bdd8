// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT
package command

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/cachefetch/internal/cacheutil"
	"github.com/staranto/cachefetch/internal/config"
	"github.com/staranto/cachefetch/internal/meta"
)

func InitApp(ctx context.Context, args []string) (*cli.Command, error) {
	// The arg[1] immediately following the binary (arg[0]) is the cachefetch
	// subcommand and also represents the namespace key to be used when
	// retrieving config values. arg[1] could be -h/--help, so ignore it if it
	// appears to be a flag.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}

	cfg, _ := config.Load(ns)
	m := meta.Meta{
		Args:    args,
		Config:  cfg,
		Context: ctx,
		Out:     os.Stdout,
	}

	// Without a resolvable base the cache lives in the working directory.
	if dir, ok := cacheutil.Dir(); ok {
		m.CacheDir = dir
	} else {
		m.CacheDir, _ = os.Getwd()
	}

	return newApp(m), nil
}

// newApp assembles the command tree around m.
func newApp(m meta.Meta) *cli.Command {
	app := &cli.Command{
		Name:  "cachefetch",
		Usage: "fetch and cache HTTP resources",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "cachefetch version info",
				HideDefault: true,
			},
		},
	}

	app.Commands = append(app.Commands,
		FetchCommandBuilder(app, m),
		ShowCommandBuilder(app, m),
		LsCommandBuilder(app, m),
		PurgeCommandBuilder(app, m),
		CompletionCommandBuilder(app, m),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app
}
