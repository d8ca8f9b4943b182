package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"nwpfetch/internal/lib"
	"nwpfetch/internal/models"
)

// Availability is the outcome of an existence probe.
type Availability int

const (
	// NotReady means the provider answered and the file is not there yet.
	NotReady Availability = iota
	// Ready means the file exists and can be fetched.
	Ready
	// Failed means the probe is broken: retries on transport errors were
	// exhausted, or the provider rejected the probe with a non-transient
	// status that is not a plain 404.
	Failed
)

func (a Availability) String() string {
	switch a {
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "not-ready"
	}
}

// Poller issues lightweight existence probes against the provider's
// archive tree and remembers the first success's modification time as the
// run's anchor.
type Poller struct {
	client    *HTTPClient
	endpoints Endpoints
	logger    *lib.Logger

	anchor time.Time
}

// NewPoller creates a poller for one run driver. A fresh poller is created
// per run so the anchor resets.
func NewPoller(client *HTTPClient, endpoints Endpoints, logger *lib.Logger) *Poller {
	return &Poller{client: client, endpoints: endpoints, logger: logger}
}

// Check probes a target for readiness. A 200 is ready, a 404 means "not
// produced yet". Transport errors and transient provider statuses are
// retried under the shared retry policy within one Check; exhausting the
// bound reports Failed. On the first ready result the provider's
// Last-Modified timestamp is recorded as the anchor; when the header is
// absent or unparseable the wall clock stands in.
func (p *Poller) Check(ctx context.Context, target models.FileTarget) Availability {
	url := p.endpoints.ProbeURL(target)

	var result Availability
	err := lib.ExecuteWithRetry(ctx, func() error {
		resp, err := p.client.Head(ctx, url)
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode == http.StatusOK:
			result = Ready
			if p.anchor.IsZero() {
				p.anchor = modTime(resp)
				p.logger.Debug("First file available", "target", target.String(),
					"modified", p.anchor.Format(time.RFC3339))
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			// Definitive miss: the provider answered, the file is not there.
			result = NotReady
			p.logger.Debug("File not produced yet", "target", target.String())
			return nil
		case lib.IsTransientHTTPStatus(resp.StatusCode):
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
		default:
			result = Failed
			p.logger.Error("Probe rejected by provider", "target", target.String(),
				"status", resp.StatusCode)
			return nil
		}
	}, p.client.RetryConfig(), func(err error) bool {
		return ctx.Err() == nil
	})
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("Probe retries exhausted", "target", target.String(), "error", err)
		}
		return Failed
	}
	return result
}

// Anchor returns the run's anchor time: the provider-reported modification
// time of the first file seen ready. Zero until the first ready probe.
func (p *Poller) Anchor() time.Time {
	return p.anchor
}

func modTime(resp *http.Response) time.Time {
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}

// RolloverDetector decides whether the run following the current one has
// started publishing, which means continued polling of the current run is
// futile.
type RolloverDetector struct {
	client    *HTTPClient
	endpoints Endpoints
	logger    *lib.Logger
}

// NewRolloverDetector creates a rollover detector sharing the transport.
func NewRolloverDetector(client *HTTPClient, endpoints Endpoints, logger *lib.Logger) *RolloverDetector {
	return &RolloverDetector{client: client, endpoints: endpoints, logger: logger}
}

// NextRunAvailable probes the first file of the run after current. Only a
// definitive 200 counts; a 404 and a transport failure both report false,
// so a provider outage keeps us waiting on the current run rather than
// abandoning it spuriously. The two cases are logged at different levels
// so a persistent outage is still visible.
func (d *RolloverDetector) NextRunAvailable(ctx context.Context, current models.Run) bool {
	next := current.Next()
	first := models.FileTarget{Run: next, Offset: next.Profile.Offsets(next.InitTime.Hour())[0]}
	url := d.endpoints.ProbeURL(first)

	resp, err := d.client.Head(ctx, url)
	if err != nil {
		d.logger.Warn("Rollover probe failed in transport", "run", next.String(), "error", err)
		return false
	}
	if resp.StatusCode == http.StatusOK {
		d.logger.Warn("Skipping to next run", "run", next.String())
		return true
	}
	d.logger.Debug("Next run not yet available", "run", next.String(), "status", resp.StatusCode)
	return false
}
