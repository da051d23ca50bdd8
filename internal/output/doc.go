// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package output renders cached values, value diffs and cache listings for
// the commands.
package output
