// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/staranto/cachefetch/internal/aws"
	"github.com/staranto/cachefetch/internal/cache"
	"github.com/staranto/cachefetch/internal/cacheutil"
	"github.com/staranto/cachefetch/internal/meta"
)

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr cachefetch <subcmd>` and returns true so the caller can exit
// early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "cachefetch", subcmd)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			_ = c.Run()
		}
		return true
	}
	return false
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// Out returns the writer command output goes to.
func Out(m meta.Meta) io.Writer {
	if m.Out == nil {
		return os.Stdout
	}
	return m.Out
}

// UseColor resolves --color. When it is not given, color is used only if
// output goes to a terminal.
func UseColor(cmd *cli.Command, w io.Writer) bool {
	if cmd.IsSet("color") {
		return cmd.Bool("color")
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Disk is where persisted values are read from and written to.
type Disk interface {
	cache.DiskReader
	cache.DiskWriter
}

// OpenDisk returns the persistence backend selected by the command's flags
// and the directory file names are resolved against. With --bucket that is an
// S3 bucket, otherwise the cache directory beneath --dir.
func OpenDisk(ctx context.Context, cmd *cli.Command) (Disk, string, error) {
	bucket := cmd.String("bucket")
	if bucket == "" {
		return cacheutil.FS{}, cacheutil.CachePath(cmd.String("dir")), nil
	}

	cfg, err := aws.LoadAWSConfig(ctx,
		aws.WithProfile(cmd.String("profile")),
		aws.WithRegion(cmd.String("region")),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.WithField("bucket", bucket).Debug("persisting to S3")
	store := &aws.ObjectStore{
		Client: aws.NewS3(cfg, aws.WithEndpoint(cmd.String("endpoint"))),
		Bucket: bucket,
		Prefix: cmd.String("prefix"),
	}
	return store, cacheutil.DirName, nil
}

// CommandBuilder constructs a cli.Command for a subcommand using a consistent
// pattern. It wires metadata, adds the tldr flag and applies global flags.
type CommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	Action    func(context.Context, *cli.Command) error
	Meta      meta.Meta
}

// Build returns a configured cli.Command from the builder.
func (b *CommandBuilder) Build() *cli.Command {
	return &cli.Command{
		Name:      b.Name,
		Usage:     b.Usage,
		UsageText: b.UsageText,
		Metadata: map[string]any{
			"meta": b.Meta,
		},
		Flags: append(b.Flags, append([]cli.Flag{
			newTLDRFlag(),
		}, NewGlobalFlags(b.Name, b.Meta)...)...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			m := GetMeta(cmd)
			if len(m.Args) > 1 {
				log.Debugf("Executing action for %v", m.Args[1:])
			}
			if ShortCircuitTLDR(ctx, cmd, b.Name) {
				return nil
			}
			return b.Action(ctx, cmd)
		},
	}
}
