// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

const sample = "# fetch\n\nQuick examples\n\n```\n# Fetch a feed once\ncachefetch fetch   https://example.com/feed.json\n\ncachefetch fetch --json -n 3 https://example.com/a\n```\n"

func TestExtractQuickExamples(t *testing.T) {
	exs := extractQuickExamples(sample)
	require.Len(t, exs, 2)
	assert.Equal(t, example{Desc: "Fetch a feed once", Cmd: "cachefetch fetch https://example.com/feed.json"}, exs[0])
	assert.Equal(t, "Example", exs[1].Desc)

	assert.Nil(t, extractQuickExamples("# nothing here"))
}

func TestRenderMarkdown(t *testing.T) {
	cmd := &cli.Command{
		Name:      "purge",
		Usage:     "remove old cache files",
		UsageText: "cachefetch purge [options]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "hours", Aliases: []string{"H"}, Usage: "maximum age"},
		},
	}
	md := renderMarkdown(cmd, []example{{Desc: "Drop day old files", Cmd: "cachefetch purge --hours 24"}})
	assert.Contains(t, md, "# cachefetch-purge 1")
	assert.Contains(t, md, "cachefetch-purge - remove old cache files")
	assert.Contains(t, md, "**--hours, -H**\n: maximum age")
	assert.Contains(t, md, "    cachefetch purge --hours 24")
}

func TestBuildTLDR(t *testing.T) {
	cmd := &cli.Command{Name: "ls", Usage: "list cached files"}
	assert.Equal(t, "# cachefetch-ls\n\n> List cached files.\n> More information: https://github.com/staranto/cachefetch.\n\n- Show help for the command:\n\n`cachefetch ls --help`\n", buildTLDR(cmd, nil))

	out := buildTLDR(cmd, []example{{Desc: "List", Cmd: "cachefetch ls"}, {Desc: "Plain", Cmd: "cachefetch ls --no-titles"}})
	assert.Contains(t, out, "- List:\n\n`cachefetch ls`\n\n- Plain:")
}
