package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nwpfetch/internal/lib"
	"nwpfetch/internal/models"
)

func testEndpoints(srv *httptest.Server) Endpoints {
	return Endpoints{FilterURL: srv.URL + "/cgi-bin", ArchiveURL: srv.URL + "/pub"}
}

func gfsTarget(offset int) models.FileTarget {
	run := models.NewRun(models.GFS0p25, time.Date(2023, 4, 1, 6, 0, 0, 0, time.UTC))
	return models.FileTarget{Run: run, Offset: offset}
}

// TestPollerReadyAnchorsOnLastModified verifies a 200 probe reports ready and
// the first success pins the anchor to the provider's Last-Modified.
func TestPollerReadyAnchorsOnLastModified(t *testing.T) {
	modified := time.Date(2023, 4, 1, 9, 37, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "/pub/gfs/prod/gfs.2023040106/gfs.t06z.pgrb2.0p25.f000", r.URL.Path)
		w.Header().Set("Last-Modified", modified.Format(http.TimeFormat))
	}))
	defer srv.Close()

	poller := NewPoller(testClient(t), testEndpoints(srv), lib.NewLogger(lib.LogLevelError))

	assert.True(t, poller.Anchor().IsZero())
	assert.Equal(t, Ready, poller.Check(context.Background(), gfsTarget(0)))
	assert.Equal(t, modified, poller.Anchor())

	// Later successes must not move the anchor.
	assert.Equal(t, Ready, poller.Check(context.Background(), gfsTarget(1)))
	assert.Equal(t, modified, poller.Anchor())
}

// TestPollerAnchorFallsBackToWallClock verifies a missing Last-Modified
// header still produces a usable anchor.
func TestPollerAnchorFallsBackToWallClock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	poller := NewPoller(testClient(t), testEndpoints(srv), lib.NewLogger(lib.LogLevelError))
	before := time.Now().UTC()
	require.Equal(t, Ready, poller.Check(context.Background(), gfsTarget(0)))

	assert.False(t, poller.Anchor().IsZero())
	assert.WithinDuration(t, before, poller.Anchor(), 5*time.Second)
}

// TestPollerNotFoundIsNotReady verifies a definitive 404 means "not produced
// yet", never an error.
func TestPollerNotFoundIsNotReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	poller := NewPoller(testClient(t), testEndpoints(srv), lib.NewLogger(lib.LogLevelError))
	assert.Equal(t, NotReady, poller.Check(context.Background(), gfsTarget(0)))
	assert.True(t, poller.Anchor().IsZero())
}

// TestPollerRetriesTransientStatus verifies a probe rides out transient
// provider errors within one check.
func TestPollerRetriesTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	poller := NewPoller(testClient(t), testEndpoints(srv), lib.NewLogger(lib.LogLevelError))
	assert.Equal(t, Ready, poller.Check(context.Background(), gfsTarget(0)))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

// TestPollerExhaustionIsFailed verifies that exhausting the probe retry
// bound against an unreachable provider reports failed, exactly bound
// attempts in.
func TestPollerExhaustionIsFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoints := testEndpoints(srv)
	srv.Close()

	poller := NewPoller(testClient(t), endpoints, lib.NewLogger(lib.LogLevelError))
	assert.Equal(t, Failed, poller.Check(context.Background(), gfsTarget(0)))
}

// TestPollerRejectionIsFailed verifies a non-transient non-404 rejection is
// fatal to the run.
func TestPollerRejectionIsFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	poller := NewPoller(testClient(t), testEndpoints(srv), lib.NewLogger(lib.LogLevelError))
	assert.Equal(t, Failed, poller.Check(context.Background(), gfsTarget(0)))
}

// TestPollerCancelledContextIsFailed verifies shutdown surfaces as failed so
// the driver stops probing.
func TestPollerCancelledContextIsFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	poller := NewPoller(testClient(t), testEndpoints(srv), lib.NewLogger(lib.LogLevelError))
	assert.Equal(t, Failed, poller.Check(ctx, gfsTarget(0)))
}

// TestRolloverDetectorNextRunReady verifies a 200 on the next run's first
// file triggers rollover.
func TestRolloverDetectorNextRunReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Current run is 06Z; the detector must probe offset 0 of 12Z.
		assert.Equal(t, "/pub/gfs/prod/gfs.2023040112/gfs.t12z.pgrb2.0p25.f000", r.URL.Path)
	}))
	defer srv.Close()

	detector := NewRolloverDetector(testClient(t), testEndpoints(srv), lib.NewLogger(lib.LogLevelError))
	current := models.NewRun(models.GFS0p25, time.Date(2023, 4, 1, 6, 0, 0, 0, time.UTC))

	assert.True(t, detector.NextRunAvailable(context.Background(), current))
}

// TestRolloverDetectorNotFoundKeepsWaiting verifies a 404 does not abandon
// the current run.
func TestRolloverDetectorNotFoundKeepsWaiting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	detector := NewRolloverDetector(testClient(t), testEndpoints(srv), lib.NewLogger(lib.LogLevelError))
	current := models.NewRun(models.GFS0p25, time.Date(2023, 4, 1, 6, 0, 0, 0, time.UTC))

	assert.False(t, detector.NextRunAvailable(context.Background(), current))
}

// TestRolloverDetectorTransportFailureKeepsWaiting verifies a provider
// outage never triggers rollover.
func TestRolloverDetectorTransportFailureKeepsWaiting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoints := testEndpoints(srv)
	srv.Close()

	detector := NewRolloverDetector(testClient(t), endpoints, lib.NewLogger(lib.LogLevelError))
	current := models.NewRun(models.GFS0p25, time.Date(2023, 4, 1, 6, 0, 0, 0, time.UTC))

	assert.False(t, detector.NextRunAvailable(context.Background(), current))
}

// TestAvailabilityString covers the log representation.
func TestAvailabilityString(t *testing.T) {
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "not-ready", NotReady.String())
	assert.Equal(t, "failed", Failed.String())
}
