package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"nwpfetch/internal/lib"
	"nwpfetch/internal/models"
)

// Endpoints names the two provider surfaces: the subsetting CGI tree used
// for retrieval and the static archive tree used for existence probes and
// run-directory listings.
type Endpoints struct {
	FilterURL  string // base for the per-source subsetting endpoints
	ArchiveURL string // base of the static archive tree
}

// DefaultEndpoints points at the NOMADS production server.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		FilterURL:  "https://nomads.ncep.noaa.gov/cgi-bin",
		ArchiveURL: "https://nomads.ncep.noaa.gov/pub/data/nccf/com",
	}
}

// ProbeURL is the archive-tree location of a target, used for HEAD probes.
func (e Endpoints) ProbeURL(target models.FileTarget) string {
	return e.ArchiveURL + "/" + target.Run.Profile.CheckName + "/prod" + target.RemotePath()
}

// RetrieveURL is the subsetting endpoint URL for downloading a target.
func (e Endpoints) RetrieveURL(target models.FileTarget) string {
	return e.FilterURL + "/" + target.Run.Profile.Endpoint + "?" + target.Query().Encode()
}

// IndexURL is the page listing the available run directories for a source.
func (e Endpoints) IndexURL(profile models.SourceProfile) string {
	return e.FilterURL + "/" + profile.Endpoint
}

// HTTPClient wraps the standard http.Client with the shared retry policy.
// One instance is shared by every run driver; the underlying transport's
// connection pool is the only state shared across drivers.
type HTTPClient struct {
	client      *http.Client
	retryConfig models.RetryConfig
	logger      *lib.Logger
}

// NewHTTPClient creates an HTTP client with timeout and retry configuration
func NewHTTPClient(timeout time.Duration, retryConfig models.RetryConfig, logger *lib.Logger) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		retryConfig: retryConfig,
		logger:      logger,
	}
}

// RetryConfig exposes the client's retry policy so callers can layer the
// same policy around whole-operation retries.
func (c *HTTPClient) RetryConfig() models.RetryConfig {
	return c.retryConfig
}

// Head performs a single HEAD request without retries. Probes are retried
// at the polling layer, where a failure usually means "not produced yet".
func (c *HTTPClient) Head(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	// HEAD responses carry no body of interest
	_ = resp.Body.Close()
	return resp, nil
}

// Get performs an HTTP GET request with retry logic for transient errors.
// The caller owns the response body on success.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt < c.retryConfig.MaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, lastErr = c.client.Do(req)

		if lastErr == nil {
			c.logger.Debug("Provider response", "url", req.URL.Path, "status", resp.StatusCode)

			if resp.StatusCode < 400 {
				return resp, nil
			}

			statusErr := fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
			_ = resp.Body.Close()

			if lib.ClassifyHTTPError(resp.StatusCode) == lib.ErrorTypeNonTransient {
				return nil, statusErr
			}
			lastErr = statusErr
		} else if !lib.IsNetworkError(lastErr) {
			return nil, lastErr
		}

		if attempt < c.retryConfig.MaxAttempts-1 {
			lib.LogRetry(c.logger, url, attempt, c.retryConfig.MaxAttempts, lastErr)
			if err := lib.Sleep(ctx, c.retryConfig.Delay()); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.retryConfig.MaxAttempts, lastErr)
}

// Download streams a URL to a writer in fixed-size chunks, calling the
// progress callback (when non-nil) with the running byte count. Returns the
// number of bytes written. A single download attempt is not retried here;
// the fetcher retries whole attempts from scratch.
func (c *HTTPClient) Download(ctx context.Context, rawURL string, w io.Writer, chunkSizeKB int, progress func(int64)) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	chunk := make([]byte, chunkSizeKB*1024)
	var written int64
	for {
		n, readErr := io.ReadFull(resp.Body, chunk)
		if n > 0 {
			if _, err := w.Write(chunk[:n]); err != nil {
				return written, fmt.Errorf("failed to write chunk: %w", err)
			}
			written += int64(n)
			if progress != nil {
				progress(written)
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("failed to read body: %w", readErr)
		}
	}
}

// GetBody fetches a URL and returns the response body as a string, with the
// shared retry policy applied.
func (c *HTTPClient) GetBody(ctx context.Context, url string) (string, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(body), nil
}

// ValidateEndpoint checks that a configured endpoint URL parses.
func ValidateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint URL %q must be http or https", raw)
	}
	return nil
}
