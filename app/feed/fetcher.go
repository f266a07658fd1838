package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultFetchTimeout = 30 * time.Second
	MaxFeedSize         = 50 << 20

	acceptHeader = "application/xml, text/xml, application/rss+xml, */*"
)

type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewFetcher(httpClient *http.Client, userAgent string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Run downloads a feed document. The returned body is only plausibly XML;
// well-formedness is checked by the parser.
func (f *Fetcher) Run(ctx context.Context, feedURL string) ([]byte, error) {
	return f.RunWithTimeout(ctx, feedURL, f.timeout)
}

func (f *Fetcher) RunWithTimeout(ctx context.Context, feedURL string, timeout time.Duration) ([]byte, error) {
	if err := ValidateFeedURL(feedURL); err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, NewValidationError("url", fmt.Sprintf("failed to create request: %v", err))
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, f.classify(timeoutCtx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ExternalServiceError{
			Service:    "fetcher",
			Kind:       FailureHTTP,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP error: %s", resp.Status),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFeedSize+1))
	if err != nil {
		return nil, f.classify(timeoutCtx, fmt.Errorf("failed to read response body: %w", err))
	}
	if len(data) > MaxFeedSize {
		return nil, &ExternalServiceError{
			Service: "fetcher",
			Kind:    FailureHTTP,
			Err:     fmt.Errorf("response exceeds %d bytes", MaxFeedSize),
		}
	}

	if !LooksLikeXML(data) {
		return nil, &ParseError{Err: errors.New("response does not appear to be valid XML")}
	}

	return data, nil
}

func (f *Fetcher) classify(ctx context.Context, err error) error {
	kind := FailureNetwork

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		kind = FailureTimeout
	}

	return &ExternalServiceError{Service: "fetcher", Kind: kind, Err: err}
}

// ValidateFeedURL accepts absolute http and https URLs only.
func ValidateFeedURL(feedURL string) error {
	if strings.TrimSpace(feedURL) == "" {
		return NewValidationError("url", "URL parameter is required")
	}

	parsed, err := url.Parse(feedURL)
	if err != nil || parsed.Host == "" {
		return NewValidationError("url", "invalid URL format")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return NewValidationError("url", "only HTTP and HTTPS URLs are allowed")
	}

	return nil
}
