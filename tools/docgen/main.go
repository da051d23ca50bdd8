// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	md2man "github.com/cpuguy83/go-md2man/v2/md2man"
	"github.com/urfave/cli/v3"

	"github.com/staranto/cachefetch/internal/command"
)

// Doc generator:
// - Walks the cachefetch command tree
// - Merges the Quick examples block of docs/examples/<cmd>.md, if present
// - Generates:
//   - docs/commands/cachefetch-<cmd>.md
//   - docs/man/share/man1/cachefetch-<cmd>.1 via md2man
//   - docs/tldr/cachefetch-<cmd>.md

func main() {
	var (
		repoRoot           string
		writeOnlyIfChanged bool
	)

	flag.StringVar(&repoRoot, "root", ".", "repo root (default current dir)")
	flag.BoolVar(&writeOnlyIfChanged, "only-if-changed", true, "only write files if content changed")
	flag.Parse()

	app, err := command.InitApp(context.Background(), []string{"cachefetch"})
	if err != nil {
		fatalf("building command tree: %v", err)
	}

	dirs := map[string]string{
		"md":   filepath.Join(repoRoot, "docs", "commands"),
		"man":  filepath.Join(repoRoot, "docs", "man", "share", "man1"),
		"tldr": filepath.Join(repoRoot, "docs", "tldr"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			fatalf("creating output dir %s: %v", d, err)
		}
	}

	for _, cmd := range app.Commands {
		examples := readExamples(filepath.Join(repoRoot, "docs", "examples", cmd.Name+".md"))
		md := renderMarkdown(cmd, examples)
		base := "cachefetch-" + cmd.Name

		outputs := map[string][]byte{
			filepath.Join(dirs["md"], base+".md"):   []byte(md),
			filepath.Join(dirs["man"], base+".1"):   md2man.Render([]byte(md)),
			filepath.Join(dirs["tldr"], base+".md"): []byte(buildTLDR(cmd, examples)),
		}
		for path, content := range outputs {
			if err := writeFileIfChanged(path, content, writeOnlyIfChanged); err != nil {
				fatalf("writing %s: %v", path, err)
			}
		}
	}
}

func fatalf(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
	os.Exit(1)
}

func writeFileIfChanged(path string, new []byte, onlyIfChanged bool) error {
	if !onlyIfChanged {
		return os.WriteFile(path, new, 0o644)
	}
	old, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return os.WriteFile(path, new, 0o644)
		}
		return err
	}
	if bytes.Equal(bytes.TrimSpace(old), bytes.TrimSpace(new)) {
		return nil
	}
	return os.WriteFile(path, new, 0o644)
}

type example struct {
	Desc string
	Cmd  string
}

// renderMarkdown produces a man-page shaped markdown document for cmd.
func renderMarkdown(cmd *cli.Command, exs []example) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# cachefetch-%s 1\n\n", cmd.Name)
	fmt.Fprintf(&b, "## NAME\n\ncachefetch-%s - %s\n\n", cmd.Name, cmd.Usage)
	if cmd.UsageText != "" {
		fmt.Fprintf(&b, "## SYNOPSIS\n\n`%s`\n\n", cmd.UsageText)
	}

	if len(cmd.Flags) > 0 {
		b.WriteString("## OPTIONS\n\n")
		for _, f := range cmd.Flags {
			names := make([]string, 0, len(f.Names()))
			for _, n := range f.Names() {
				if len(n) == 1 {
					names = append(names, "-"+n)
				} else {
					names = append(names, "--"+n)
				}
			}
			fmt.Fprintf(&b, "**%s**\n", strings.Join(names, ", "))
			if u, ok := f.(interface{ GetUsage() string }); ok && u.GetUsage() != "" {
				fmt.Fprintf(&b, ": %s\n", u.GetUsage())
			}
			b.WriteString("\n")
		}
	}

	if len(exs) > 0 {
		b.WriteString("## EXAMPLES\n\n")
		for _, ex := range exs {
			fmt.Fprintf(&b, "%s:\n\n    %s\n\n", ex.Desc, ex.Cmd)
		}
	}
	return b.String()
}

// readExamples returns the examples of the Quick examples block in path. A
// missing file has none.
func readExamples(path string) []example {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return extractQuickExamples(string(raw))
}

func extractQuickExamples(md string) []example {
	// Find the "Quick examples" section; capture the first fenced code block after it
	lower := strings.ToLower(md)
	idx := strings.Index(lower, "quick examples")
	if idx < 0 {
		return nil
	}
	rest := md[idx:]
	fence := "```"
	fenceStart := strings.Index(rest, fence)
	if fenceStart < 0 {
		return nil
	}
	rest = rest[fenceStart+len(fence):]
	fenceEnd := strings.Index(rest, fence)
	if fenceEnd < 0 {
		return nil
	}

	var exs []example
	var desc string
	for _, ln := range strings.Split(rest[:fenceEnd], "\n") {
		s := strings.TrimSpace(strings.TrimRight(ln, "\r"))
		switch {
		case s == "":
		case strings.HasPrefix(s, "#"):
			desc = strings.TrimSpace(strings.TrimPrefix(s, "#"))
		default:
			if desc == "" {
				desc = "Example"
			}
			exs = append(exs, example{Desc: desc, Cmd: strings.Join(strings.Fields(s), " ")})
			desc = ""
		}
	}
	return exs
}

func buildTLDR(cmd *cli.Command, exs []example) string {
	var b strings.Builder
	b.WriteString("# cachefetch-" + cmd.Name + "\n\n")
	if cmd.Usage != "" {
		b.WriteString("> " + strings.ToUpper(cmd.Usage[:1]) + cmd.Usage[1:] + ".\n")
	} else {
		b.WriteString("> cachefetch " + cmd.Name + "\n")
	}
	b.WriteString("> More information: https://github.com/staranto/cachefetch.\n\n")

	if len(exs) == 0 {
		b.WriteString("- Show help for the command:\n\n")
		b.WriteString("`cachefetch " + cmd.Name + " --help`\n")
		return b.String()
	}

	for i, ex := range exs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + ex.Desc + ":\n\n")
		b.WriteString("`" + ex.Cmd + "`\n")
	}
	return b.String()
}
