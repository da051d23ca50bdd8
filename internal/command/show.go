// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/cachefetch/internal/cacheutil"
	"github.com/staranto/cachefetch/internal/meta"
	"github.com/staranto/cachefetch/internal/output"
)

// ShowCommandAction is the action handler for the "show" subcommand. It
// prints the value persisted for a URL, or saved under --key, without
// fetching it.
func ShowCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	path := cmd.String("path")

	if key := cmd.String("key"); key != "" {
		if cmd.Args().Len() != 0 {
			return errors.New("--key and a URL are mutually exclusive")
		}
		var v any
		found, err := cacheutil.ReadObject(key, cmd.String("dir"), &v)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", key, err)
		}
		if !found {
			return fmt.Errorf("nothing saved as %s", key)
		}
		return output.ValueWriter(Out(m), v, path)
	}

	if cmd.Args().Len() != 1 {
		return errors.New("exactly one URL is required")
	}
	u := cmd.Args().First()

	disk, dir, err := OpenDisk(ctx, cmd)
	if err != nil {
		return err
	}

	name := filepath.Join(dir, cacheutil.URLFilename(u))
	log.Debugf("reading %s", name)
	data, err := disk.ReadFile(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if data == nil {
		return fmt.Errorf("nothing cached for %s", u)
	}

	return output.ValueWriter(Out(m), data, path)
}

// ShowCommandBuilder constructs the cli.Command definition for the "show"
// command.
func ShowCommandBuilder(cmd *cli.Command, m meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "show",
		Usage:     "print the cached value of a URL",
		UsageText: `cachefetch show (URL | --key KEY) [options]`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "key",
				Aliases: []string{"k"},
				Usage:   "show the value saved by fetch --save instead of a URL",
				Validator: func(value string) error {
					return FlagValidators(value, JammedFlagValidator, KeyValidator)
				},
			},
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Usage:   "gjson path selecting part of the value",
			},
		}, NewStoreFlags("show", m)...),
		Action: ShowCommandAction,
		Meta:   m,
	}).Build()
}
