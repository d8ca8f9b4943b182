package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"nwpfetch/internal/lib"
)

// Optimizer rewrites an intermediate artifact into the final compressed,
// time-series-chunked form. On failure only its own temporary output is
// removed; the intermediate is preserved for diagnosis.
type Optimizer interface {
	Optimize(ctx context.Context, intermediate, finalPath string) error
}

// quantizeDigits is the fixed-point precision kept per field in the final
// artifact.
var quantizeDigits = map[string]int{
	"t2m":   2,
	"tcdc":  1,
	"si10":  2,
	"dswrf": 1,
	"vbdsf": 1,
	"vddsf": 1,
}

// CommandOptimizer invokes an external optimizer executable with the
// intermediate artifact and a temporary destination, then renames the
// result into place. Optimization is memory heavy, so concurrent
// invocations across run drivers are bounded by a token pool.
type CommandOptimizer struct {
	command string
	tokens  chan struct{}
	logger  *lib.Logger
}

// NewCommandOptimizer creates an optimizer allowing up to workers
// concurrent invocations.
func NewCommandOptimizer(command string, workers int, logger *lib.Logger) *CommandOptimizer {
	if workers < 1 {
		workers = 1
	}
	return &CommandOptimizer{
		command: command,
		tokens:  make(chan struct{}, workers),
		logger:  logger,
	}
}

// Optimize rewrites intermediate into finalPath.
func (o *CommandOptimizer) Optimize(ctx context.Context, intermediate, finalPath string) error {
	select {
	case o.tokens <- struct{}{}:
		defer func() { <-o.tokens }()
	case <-ctx.Done():
		return ctx.Err()
	}

	o.logger.Info("Optimizing artifact", "destination", finalPath)

	tmpOut, err := os.CreateTemp(filepath.Dir(finalPath), "opt")
	if err != nil {
		return fmt.Errorf("failed to create optimizer output: %w", err)
	}
	tmpPath := tmpOut.Name()
	if err := tmpOut.Close(); err != nil {
		return fmt.Errorf("failed to close optimizer output: %w", err)
	}

	args := []string{intermediate, tmpPath}
	for _, field := range sortedFields() {
		args = append(args, "--digits", fmt.Sprintf("%s=%d", field, quantizeDigits[field]))
	}

	cmd := exec.CommandContext(ctx, o.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(tmpPath)
		if stderr.Len() > 0 {
			err = fmt.Errorf("%w: %s", err, stderr.String())
		}
		return lib.ErrOptimizationFailed(intermediate, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to place final artifact: %w", err)
	}
	if err := os.Chmod(finalPath, 0644); err != nil {
		o.logger.Warn("Failed to set artifact permissions", "path", finalPath, "error", err)
	}

	o.logger.Info("Done optimizing artifact", "destination", finalPath)
	return nil
}

func sortedFields() []string {
	fields := make([]string, 0, len(quantizeDigits))
	for f := range quantizeDigits {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
