//go:build unix

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nwpfetch/internal/lib"
)

// writeScript drops an executable shell script and returns its path.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "optimizer")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

// TestCommandOptimizerPlacesArtifact verifies the optimizer command gets the
// intermediate and a temporary destination, and the result is renamed into
// the final path.
func TestCommandOptimizerPlacesArtifact(t *testing.T) {
	command := writeScript(t, `cp "$1" "$2"`)
	dir := t.TempDir()
	intermediate := filepath.Join(dir, "nc_intermediate")
	require.NoError(t, os.WriteFile(intermediate, []byte("netcdf"), 0644))
	finalPath := filepath.Join(dir, "gfs_0p25.nc")

	optimizer := NewCommandOptimizer(command, 2, lib.NewLogger(lib.LogLevelError))
	require.NoError(t, optimizer.Optimize(context.Background(), intermediate, finalPath))

	got, err := os.ReadFile(finalPath)
	require.NoError(t, err)
	assert.Equal(t, "netcdf", string(got))

	info, err := os.Stat(finalPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	// No optimizer temp files remain.
	leftovers, err := filepath.Glob(filepath.Join(dir, "opt*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

// TestCommandOptimizerPassesQuantization verifies the per-field digit flags
// are on the command line in stable order.
func TestCommandOptimizerPassesQuantization(t *testing.T) {
	command := writeScript(t, `out="$2"; printf '%s ' "$@" > "$out"`)
	dir := t.TempDir()
	intermediate := filepath.Join(dir, "nc_intermediate")
	require.NoError(t, os.WriteFile(intermediate, []byte("netcdf"), 0644))
	finalPath := filepath.Join(dir, "out.nc")

	optimizer := NewCommandOptimizer(command, 1, lib.NewLogger(lib.LogLevelError))
	require.NoError(t, optimizer.Optimize(context.Background(), intermediate, finalPath))

	got, err := os.ReadFile(finalPath)
	require.NoError(t, err)
	args := string(got)
	assert.Contains(t, args, intermediate)
	assert.Contains(t, args, "--digits dswrf=1 --digits si10=2 --digits t2m=2 --digits tcdc=1 --digits vbdsf=1 --digits vddsf=1")
}

// TestCommandOptimizerFailureKeepsIntermediate verifies a failing command
// removes only its own temp output and surfaces stderr.
func TestCommandOptimizerFailureKeepsIntermediate(t *testing.T) {
	command := writeScript(t, `echo "out of memory" >&2; exit 1`)
	dir := t.TempDir()
	intermediate := filepath.Join(dir, "nc_intermediate")
	require.NoError(t, os.WriteFile(intermediate, []byte("netcdf"), 0644))
	finalPath := filepath.Join(dir, "out.nc")

	optimizer := NewCommandOptimizer(command, 1, lib.NewLogger(lib.LogLevelError))
	err := optimizer.Optimize(context.Background(), intermediate, finalPath)
	require.Error(t, err)

	fe, ok := lib.AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, lib.CategoryConversion, fe.Category)
	assert.Contains(t, err.Error(), "out of memory")

	_, err = os.Stat(intermediate)
	assert.NoError(t, err, "intermediate preserved for diagnosis")
	_, err = os.Stat(finalPath)
	assert.True(t, os.IsNotExist(err))
	leftovers, globErr := filepath.Glob(filepath.Join(dir, "opt*"))
	require.NoError(t, globErr)
	assert.Empty(t, leftovers)
}

// TestCommandOptimizerTokenPool verifies a held token blocks until the
// context gives up.
func TestCommandOptimizerTokenPool(t *testing.T) {
	optimizer := NewCommandOptimizer("true", 1, lib.NewLogger(lib.LogLevelError))
	optimizer.tokens <- struct{}{} // occupy the only slot

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := optimizer.Optimize(ctx, "in", "out")
	assert.ErrorIs(t, err, context.Canceled)
}

// TestNewCommandOptimizerClampsWorkers verifies a non-positive worker count
// still yields a usable pool.
func TestNewCommandOptimizerClampsWorkers(t *testing.T) {
	optimizer := NewCommandOptimizer("true", 0, lib.NewLogger(lib.LogLevelError))
	assert.Equal(t, 1, cap(optimizer.tokens))
}
