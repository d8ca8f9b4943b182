package services

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"time"

	"nwpfetch/internal/lib"
	"nwpfetch/internal/models"
)

// Planner computes which run to fetch next. It has no state of its own:
// resume decisions are derived from the provider's published run listing
// and the presence of finished artifacts on the local filesystem.
type Planner struct {
	client    *HTTPClient
	endpoints Endpoints
	basePath  string
	logger    *lib.Logger
}

// NewPlanner creates a planner rooted at the local base path.
func NewPlanner(client *HTTPClient, endpoints Endpoints, basePath string, logger *lib.Logger) *Planner {
	return &Planner{client: client, endpoints: endpoints, basePath: basePath, logger: logger}
}

// RemoteRunDirs lists the run directory date stamps published for a source,
// scraped from its index page. The result is sorted and deduplicated.
func (p *Planner) RemoteRunDirs(ctx context.Context, profile models.SourceProfile) ([]string, error) {
	page, err := p.client.GetBody(ctx, p.endpoints.IndexURL(profile))
	if err != nil {
		return nil, fmt.Errorf("failed to list runs for %s: %w", profile.Name, err)
	}

	digits := 8
	if profile.HourlyDirs {
		digits = 10
	}
	pattern := regexp.MustCompile(fmt.Sprintf(`%s\.([0-9]{%d})`, regexp.QuoteMeta(profile.DirToken), digits))

	seen := map[string]bool{}
	for _, m := range pattern.FindAllStringSubmatch(page, -1) {
		seen[m[1]] = true
	}
	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// FindResumeRun picks the run to fetch at startup by cross-referencing the
// published run directories against local artifact completeness. The
// earliest discovered run without a local artifact wins, so no run is
// silently skipped after a restart. When every discovered run is complete,
// the run after the most recent one is chosen. An empty listing is fatal.
func (p *Planner) FindResumeRun(ctx context.Context, profile models.SourceProfile) (models.Run, error) {
	dirs, err := p.RemoteRunDirs(ctx, profile)
	if err != nil {
		return models.Run{}, err
	}
	if len(dirs) == 0 {
		return models.Run{}, lib.ErrNoRemoteRuns(profile.Name)
	}

	var missing []time.Time
	var newest time.Time

	for _, dir := range dirs {
		for _, initTime := range p.dirInitTimes(profile, dir) {
			run := models.NewRun(profile, initTime)
			if artifactExists(run, p.basePath) {
				if initTime.After(newest) {
					newest = initTime
				}
			} else {
				missing = append(missing, initTime)
			}
		}
	}

	if len(missing) == 0 {
		if newest.IsZero() {
			// Every discovered stamp failed to parse, so nothing was
			// actually planned. Treat it like an empty listing.
			return models.Run{}, lib.ErrNoRemoteRuns(profile.Name)
		}
		resume := models.NewRun(profile, newest).Next()
		p.logger.Info("All published runs complete, waiting for next",
			"source", profile.Name, "member", profile.Member, "run", resume.String())
		return resume, nil
	}

	sort.Slice(missing, func(i, j int) bool { return missing[i].Before(missing[j]) })
	resume := models.NewRun(profile, missing[0])
	p.logger.Info("Resuming at earliest incomplete run",
		"source", profile.Name, "member", profile.Member, "run", resume.String())
	return resume, nil
}

// dirInitTimes expands one published directory stamp into init times. A
// date-only directory covers every init hour of that day.
func (p *Planner) dirInitTimes(profile models.SourceProfile, dir string) []time.Time {
	if len(dir) == 10 {
		t, err := time.Parse("2006010215", dir)
		if err != nil {
			return nil
		}
		return []time.Time{t.UTC()}
	}
	day, err := time.Parse("20060102", dir)
	if err != nil {
		return nil
	}
	times := make([]time.Time, 0, len(profile.InitHours()))
	for _, hr := range profile.InitHours() {
		times = append(times, day.Add(time.Duration(hr)*time.Hour).UTC())
	}
	return times
}

// NextRun advances past the completed run, skipping any run whose artifact
// already exists locally.
func (p *Planner) NextRun(previous models.Run) models.Run {
	next := previous.Next()
	for artifactExists(next, p.basePath) {
		next = next.Next()
	}
	return next
}

// WaitUntilPlausible sleeps until the earliest instant the run's first
// file could appear, so the provider is not probed before anything can
// possibly be ready. The sleep is cancellable.
func (p *Planner) WaitUntilPlausible(ctx context.Context, run models.Run) error {
	ready := run.InitTime.Add(run.Profile.FirstDelay)
	wait := time.Until(ready)
	if wait <= 0 {
		return ctx.Err()
	}
	p.logger.Info("Sleeping until run may be ready",
		"run", run.String(), "wait", wait.Round(time.Second))
	return lib.Sleep(ctx, wait)
}

func artifactExists(run models.Run, basePath string) bool {
	_, err := os.Stat(run.ArtifactPath(basePath))
	return err == nil
}
