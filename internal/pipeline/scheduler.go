package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"nwpfetch/internal/lib"
	"nwpfetch/internal/models"
	"nwpfetch/internal/services"
)

// Scheduler drives runs of one source profile instance end to end: resume
// planning, availability polling, concurrent fetching, rollover handling,
// and the conversion/optimization handoff. Every profile instance (each
// ensemble member) gets its own scheduler; they share only the transport.
type Scheduler struct {
	profile   models.SourceProfile
	config    *models.Config
	client    *services.HTTPClient
	endpoints services.Endpoints
	planner   *services.Planner
	fetcher   *services.Fetcher
	rollover  *services.RolloverDetector
	converter Converter
	optimizer Optimizer
	logger    *lib.Logger
	driverID  string
	once      bool
}

// NewScheduler wires a scheduler for one profile instance.
func NewScheduler(profile models.SourceProfile, config *models.Config, client *services.HTTPClient,
	endpoints services.Endpoints, converter Converter, optimizer Optimizer,
	showProgress bool, once bool, logger *lib.Logger) *Scheduler {
	return &Scheduler{
		profile:   profile,
		config:    config,
		client:    client,
		endpoints: endpoints,
		planner:   services.NewPlanner(client, endpoints, config.BasePath, logger),
		fetcher:   services.NewFetcher(client, endpoints, config.BasePath, config.ChunkSizeKB, showProgress, logger),
		rollover:  services.NewRolloverDetector(client, endpoints, logger),
		converter: converter,
		optimizer: optimizer,
		logger:    logger,
		driverID:  uuid.New().String()[:8],
		once:      once,
	}
}

// Run executes the scheduling loop until the context is cancelled, a fatal
// process error occurs, or (in run-once mode) one run reaches a terminal
// state. Returning an error aborts the whole process.
func (s *Scheduler) Run(ctx context.Context) error {
	run, err := s.planner.FindResumeRun(ctx, s.profile)
	if err != nil {
		return err
	}

	for {
		if err := s.planner.WaitUntilPlausible(ctx, run); err != nil {
			return ignoreCancel(err)
		}

		status, runErr := s.processRun(ctx, run)
		if runErr != nil && isFatalProcess(runErr) {
			return runErr
		}
		if ctx.Err() != nil {
			return nil // graceful shutdown, do not start a new run
		}
		if runErr != nil {
			// Fatal to the run only; scheduling continues.
			s.logger.Error("Run failed", "driver", s.driverID, "run", run.String(), "error", runErr)
		}

		if s.once {
			s.logger.Info("Single run processed, stopping",
				"driver", s.driverID, "run", run.String(), "status", string(status))
			return runErr
		}

		s.logger.Info("Moving on to next run", "driver", s.driverID)
		run = s.planner.NextRun(run)
	}
}

// isFatalProcess separates errors that must abort the process from errors
// fatal only to the current run. A download that exhausted its retries
// leaves an unusable partial run; silently skipping it could mask a
// provider outage, so the whole process stops.
func isFatalProcess(err error) bool {
	if fe, ok := lib.AsFetchError(err); ok {
		return fe.Category == lib.CategoryNetwork || fe.Category == lib.CategoryConfiguration
	}
	return false
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// processRun takes one run from polling through optimization. The returned
// status is terminal: done, or abandoned when the run was superseded. A
// non-nil error is either fatal to the run (conversion, optimization,
// broken probe) or to the process (fetch retry exhaustion).
func (s *Scheduler) processRun(ctx context.Context, run models.Run) (models.RunStatus, error) {
	lib.LogRunStarted(s.logger, s.driverID, run.String())
	started := time.Now()

	poller := services.NewPoller(s.client, s.endpoints, s.logger)
	targets := run.Targets()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	g, fetchCtx := errgroup.WithContext(runCtx)

	status := models.RunStatusPolling
	dispatched := 0

polling:
	for _, target := range targets {
		for {
			if fetchCtx.Err() != nil {
				// A fetch task failed or the process is shutting down.
				break polling
			}

			switch poller.Check(fetchCtx, target) {
			case services.Ready:
				target := target
				dispatched++
				g.Go(func() error {
					_, err := s.fetcher.Fetch(fetchCtx, target)
					return err
				})
				continue polling

			case services.Failed:
				if fetchCtx.Err() != nil {
					// Cancellation, not a provider rejection.
					break polling
				}
				cancelRun()
				_ = g.Wait()
				return models.RunStatusAbandoned,
					lib.ErrProbeFailed(s.endpoints.ProbeURL(target), errors.New("provider rejected availability probe"))

			case services.NotReady:
				// After the run's time budget, check whether the next run
				// has started publishing; if so this run is a lost cause.
				anchor := poller.Anchor()
				if !anchor.IsZero() && time.Since(anchor) > run.Profile.MaxRunDuration {
					if s.rollover.NextRunAvailable(fetchCtx, run) {
						status = models.RunStatusAbandoned
						break polling
					}
				}
				if err := lib.Sleep(fetchCtx, run.Profile.InterFileInterval); err != nil {
					break polling
				}
			}
		}
	}

	if status == models.RunStatusAbandoned {
		// Partial downloads stay on disk; a completed artifact is never
		// produced from a partial set, so they are harmless.
		cancelRun()
		_ = g.Wait()
		lib.LogRunAbandoned(s.logger, s.driverID, run.String(), time.Since(started))
		return models.RunStatusAbandoned, nil
	}

	// Barrier: conversion must not start until every dispatched fetch has
	// completed successfully.
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return models.RunStatusAbandoned, nil
		}
		return models.RunStatusAbandoned, err
	}
	if ctx.Err() != nil {
		return models.RunStatusAbandoned, nil
	}
	if dispatched == 0 {
		lib.LogRunAbandoned(s.logger, s.driverID, run.String(), time.Since(started))
		return models.RunStatusAbandoned, nil
	}

	status = models.RunStatusConverting
	dir := run.LocalDir(s.config.BasePath)
	intermediate, err := s.converter.Convert(ctx, dir, run.Profile.RawPrefix, run.Profile.ConvertMode)
	if err != nil {
		// Malformed inputs; the raw files are unusable without the tool.
		s.removeRawFiles(targets)
		return status, err
	}

	status = models.RunStatusOptimizing
	if err := s.optimizer.Optimize(ctx, intermediate, run.ArtifactPath(s.config.BasePath)); err != nil {
		// Keep raw files and the intermediate for diagnosis.
		return status, err
	}

	if err := os.Remove(intermediate); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove intermediate artifact", "path", intermediate, "error", err)
	}
	s.removeRawFiles(targets)

	lib.LogRunCompleted(s.logger, s.driverID, run.String(), dispatched, time.Since(started))
	return models.RunStatusDone, nil
}

// removeRawFiles deletes the run's downloaded grib files.
func (s *Scheduler) removeRawFiles(targets []models.FileTarget) {
	for _, target := range targets {
		path := target.LocalPath(s.config.BasePath)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove raw file", "path", path, "error", err)
		}
	}
}

// RunAll starts one scheduler per profile instance and waits for all of
// them. Any scheduler returning an error cancels the rest; this is the
// process-wide fail-fast broadcast.
func RunAll(ctx context.Context, profiles []models.SourceProfile, config *models.Config,
	client *services.HTTPClient, endpoints services.Endpoints,
	converter Converter, optimizer Optimizer, showProgress, once bool, logger *lib.Logger) error {

	g, gctx := errgroup.WithContext(ctx)
	for _, profile := range profiles {
		s := NewScheduler(profile, config, client, endpoints, converter, optimizer, showProgress, once, logger)
		g.Go(func() error {
			return s.Run(gctx)
		})
	}
	return g.Wait()
}

// ProcessDirectory converts and optimizes a pre-populated run directory
// without any polling or fetching; the post-process-only mode. Raw files
// are deleted on success.
func ProcessDirectory(ctx context.Context, dir string, profile models.SourceProfile,
	converter Converter, optimizer Optimizer, logger *lib.Logger) error {

	intermediate, err := converter.Convert(ctx, dir, profile.RawPrefix, profile.ConvertMode)
	if err != nil {
		return err
	}

	outName := profile.OutputFile
	if outName == "" {
		outName = profile.Name + ".nc"
	}
	if err := optimizer.Optimize(ctx, intermediate, filepath.Join(dir, outName)); err != nil {
		return err
	}
	if err := os.Remove(intermediate); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to remove intermediate artifact", "path", intermediate, "error", err)
	}

	raws, err := filepath.Glob(filepath.Join(dir, profile.RawPrefix+"*.grib2"))
	if err != nil {
		return err
	}
	for _, raw := range raws {
		if err := os.Remove(raw); err != nil {
			logger.Warn("Failed to remove raw file", "path", raw, "error", err)
		}
	}
	return nil
}
