// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/staranto/cachefetch/internal/cacheutil"
	"github.com/staranto/cachefetch/internal/meta"
	"github.com/staranto/cachefetch/internal/output"
)

// LsCommandAction is the action handler for the "ls" subcommand. It lists the
// files in the local cache directory.
func LsCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	w := Out(m)

	entries, err := cacheutil.List(cacheutil.CachePath(cmd.String("dir")))
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Name,
			humanize.Bytes(uint64(e.SizeBytes)), //nolint:gosec
			humanize.Time(e.ModTime),
		})
	}

	var headers []string
	if cmd.Bool("titles") {
		headers = []string{"NAME", "SIZE", "MODIFIED"}
	}
	output.TableWriter(w, headers, rows, UseColor(cmd, w))
	return nil
}

// LsCommandBuilder constructs the cli.Command definition for the "ls" command.
func LsCommandBuilder(cmd *cli.Command, m meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "ls",
		Usage:     "list cached files",
		UsageText: `cachefetch ls [options]`,
		Action:    LsCommandAction,
		Meta:      m,
	}).Build()
}
