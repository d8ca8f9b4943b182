//go:build windows

package cmd

import "nwpfetch/internal/lib"

// installAbortHandler is a no-op on Windows, which has no SIGUSR1.
func installAbortHandler(logger *lib.Logger) {}
