// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"os/exec"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/cachefetch/internal/meta"
)

func newTLDRFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:        "tldr",
		Usage:       "show tldr page",
		Hidden:      !pathHas("tldr"),
		HideDefault: true,
	}
}

// NewGlobalFlags returns the flags shared by every subcommand. ns is the
// subcommand name used to namespace config file lookups.
func NewGlobalFlags(ns string, m meta.Meta) (flags []cli.Flag) {
	src := m.Config.Source
	flags = []cli.Flag{
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output (default: when stdout is a terminal)",
			Sources: cli.NewValueSourceChain(configSources(ns, "color", src)...),
			Value:   false,
		},
		&cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Usage:   "root directory holding the cache",
			Sources: cli.NewValueSourceChain(
				append([]cli.ValueSource{cli.EnvVar("CACHEFETCH_DIR")},
					configSources(ns, "dir", src)...)...,
			),
			Value: m.CacheDir,
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: cli.NewValueSourceChain(configSources(ns, "titles", src)...),
			Value:   true,
		},
	}

	return
}

// NewStoreFlags returns the flags selecting an S3 bucket instead of the local
// cache directory.
func NewStoreFlags(ns string, m meta.Meta) []cli.Flag {
	src := m.Config.Source
	return []cli.Flag{
		NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
			Name:    "bucket",
			Aliases: []string{"b"},
			Usage:   "S3 bucket to persist into instead of the cache directory",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CACHEFETCH_BUCKET")),
		}),
		NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
			Name:  "endpoint",
			Usage: "custom S3 endpoint, for S3 compatible stores",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("AWS_ENDPOINT_URL_S3"),
			),
		}),
		NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
			Name:    "prefix",
			Usage:   "key prefix within the bucket",
			Sources: cli.NewValueSourceChain(),
		}),
		NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
			Name:    "profile",
			Usage:   "AWS shared config profile",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AWS_PROFILE")),
		}),
		NameSpacedValueChainFlagFromConfigFile(ns, src, &cli.StringFlag{
			Name:    "region",
			Usage:   "AWS region of the bucket",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AWS_REGION")),
		}),
	}
}

// NewFetchFlags returns the flags of the fetch subcommand.
func NewFetchFlags(m meta.Meta) []cli.Flag {
	src := m.Config.Source
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "concurrency",
			Usage:   "maximum number of URLs fetched at once",
			Sources: cli.NewValueSourceChain(configSources("fetch", "concurrency", src)...),
			Value:   4, //nolint:mnd
			Validator: func(value int) error {
				return FlagValidators(value, PositiveValidator)
			},
		},
		&cli.BoolFlag{
			Name:        "diff",
			Usage:       "print changes between renewals instead of whole values",
			HideDefault: true,
		},
		&cli.DurationFlag{
			Name:    "every",
			Aliases: []string{"e"},
			Usage:   "renewal interval",
			Sources: cli.NewValueSourceChain(configSources("fetch", "every", src)...),
			Value:   5 * time.Minute, //nolint:mnd
			Validator: func(value time.Duration) error {
				return FlagValidators(value, PositiveValidator)
			},
		},
		&cli.BoolFlag{
			Name:        "json",
			Aliases:     []string{"j"},
			Usage:       "decode responses as JSON",
			Sources:     cli.NewValueSourceChain(configSources("fetch", "json", src)...),
			HideDefault: true,
		},
		&cli.StringFlag{
			Name:    "path",
			Aliases: []string{"p"},
			Usage:   "gjson path selecting part of each value",
		},
		&cli.IntFlag{
			Name:    "renewals",
			Aliases: []string{"n"},
			Usage:   "keep running until this many renewals have been seen",
			Value:   0,
		},
		&cli.StringFlag{
			Name:  "save",
			Usage: "also save the fetched value under this key, read back with show --key",
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator, KeyValidator)
			},
		},
		&cli.IntFlag{
			Name:    "retries",
			Usage:   "HTTP retries per request",
			Sources: cli.NewValueSourceChain(configSources("fetch", "retries", src)...),
			Value:   3, //nolint:mnd
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "HTTP timeout per request",
			Sources: cli.NewValueSourceChain(configSources("fetch", "timeout", src)...),
			Value:   30 * time.Second, //nolint:mnd
		},
	}
}

// configSources returns the namespaced and global config file sources for
// key.
func configSources(ns string, key string, path string) []cli.ValueSource {
	return []cli.ValueSource{
		yaml.YAML(ns+"."+key, altsrc.StringSourcer(path)),
		yaml.YAML(key, altsrc.StringSourcer(path)),
	}
}

// NameSpacedValueChainFlagFromConfigFile adds namespaced and global config file
// sources to the given flag's Sources chain. S3 settings live beneath "s3".
func NameSpacedValueChainFlagFromConfigFile(ns string, path string, flag *cli.StringFlag) *cli.StringFlag {
	flag.Sources.Chain = append(flag.Sources.Chain, configSources(ns, "s3."+flag.Name, path)...)
	return flag
}

// pathHas checks if the given executable is on the PATH.
func pathHas(target string) bool {
	_, err := exec.LookPath(target)
	return err == nil
}
