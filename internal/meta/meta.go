// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package meta

import (
	"context"
	"io"

	"github.com/staranto/cachefetch/internal/config"
)

// Meta are the meta-options that are available on all or most commands.
type Meta struct {
	Args    []string
	Config  config.Type
	Context context.Context
	// CacheDir is the default root directory for cache files.
	CacheDir string
	// Out receives command output. Nil means stdout.
	Out io.Writer
}
