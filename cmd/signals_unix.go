//go:build unix

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"nwpfetch/internal/lib"
)

// installAbortHandler exits immediately with code 1 on SIGUSR1, without
// waiting for in-flight work.
func installAbortHandler(logger *lib.Logger) {
	abort := make(chan os.Signal, 1)
	signal.Notify(abort, syscall.SIGUSR1)
	go func() {
		<-abort
		logger.Error("Received abort signal, exiting immediately")
		os.Exit(1)
	}()
}
