// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/staranto/cachefetch/internal/cacheutil"
	"github.com/staranto/cachefetch/internal/meta"
)

// PurgeCommandAction is the action handler for the "purge" subcommand. It
// removes cache files older than --hours.
func PurgeCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)

	removed, err := cacheutil.Purge(cacheutil.CachePath(cmd.String("dir")), cmd.Int("hours"))
	if err != nil {
		return err
	}
	fmt.Fprintf(Out(m), "removed %d cached files\n", removed)
	return nil
}

// PurgeCommandBuilder constructs the cli.Command definition for the "purge"
// command.
func PurgeCommandBuilder(cmd *cli.Command, m meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "purge",
		Usage:     "remove old cache files",
		UsageText: `cachefetch purge [options]`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "hours",
				Usage:   "remove files older than this many hours, 0 keeps everything",
				Sources: cli.NewValueSourceChain(configSources("purge", "hours", m.Config.Source)...),
				Value:   24, //nolint:mnd
			},
		},
		Action: PurgeCommandAction,
		Meta:   m,
	}).Build()
}
