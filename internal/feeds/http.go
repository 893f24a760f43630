package feeds

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/studio-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent     string
	Timeout       time.Duration
	RatePerSecond float64
	Retry         resilience.RetryConfig
	Circuit       resilience.CircuitBreakerConfig
}

// HTTPFetcher implements Fetcher over net/http. All requests share one
// rate limiter; failures are retried on transient errors and tracked by a
// per-host circuit breaker so one dead feed host cannot stall the rest.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiter  *rate.Limiter
	breakers *resilience.ServiceBreakers
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "studio-cli/1.0"
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 2
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiter:  rate.NewLimiter(rate.Limit(opts.RatePerSecond), max(int(opts.RatePerSecond), 1)),
		breakers: resilience.NewServiceBreakers(opts.Circuit),
	}
}

// get performs one rate-limited, retried, circuit-broken GET.
func (f *HTTPFetcher) get(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	host := hostOf(rawURL)
	cb := f.breakers.Get(host)

	retryCfg := f.opts.Retry
	retryCfg.OnRetry = resilience.RetryLogger("feeds", host)

	return resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*http.Response, error) {
		return resilience.ExecuteVal(ctx, cb, func(ctx context.Context) (*http.Response, error) {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "feeds: rate limit")
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return nil, eris.Wrap(err, "feeds: create request")
			}
			req.Header.Set("User-Agent", f.opts.UserAgent)
			for k, vs := range header {
				for _, v := range vs {
					req.Header.Add(k, v)
				}
			}

			resp, err := f.client.Do(req)
			if err != nil {
				return nil, eris.Wrap(err, "feeds: request")
			}
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				_ = resp.Body.Close()
				return nil, resilience.NewTransientError(
					eris.Errorf("feeds: http %d from %s", resp.StatusCode, rawURL),
					resp.StatusCode,
				)
			}
			return resp, nil
		})
	})
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := f.get(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("feeds: unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return resp.Body, nil
}

// DownloadToFile fetches the URL and writes it to the given path.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "feeds: create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, body)
	if err != nil {
		return n, eris.Wrap(err, "feeds: write file")
	}
	return n, nil
}

// HeadETag performs a HEAD request and returns the ETag header value.
func (f *HTTPFetcher) HeadETag(ctx context.Context, rawURL string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "feeds: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "feeds: create head request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "feeds: head request")
	}
	defer resp.Body.Close() //nolint:errcheck

	return resp.Header.Get("ETag"), nil
}

// DownloadIfChanged fetches the URL only if the ETag has changed.
func (f *HTTPFetcher) DownloadIfChanged(ctx context.Context, rawURL string, etag string) (io.ReadCloser, string, bool, error) {
	var header http.Header
	if etag != "" {
		header = http.Header{"If-None-Match": []string{etag}}
	}

	resp, err := f.get(ctx, rawURL, header)
	if err != nil {
		return nil, "", false, err
	}

	switch resp.StatusCode {
	case http.StatusNotModified:
		_ = resp.Body.Close()
		return nil, etag, false, nil
	case http.StatusOK:
		return resp.Body, resp.Header.Get("ETag"), true, nil
	default:
		_ = resp.Body.Close()
		return nil, "", false, eris.Errorf("feeds: unexpected status %d from %s", resp.StatusCode, rawURL)
	}
}

// BreakerStates exposes per-host circuit states for the health endpoint.
func (f *HTTPFetcher) BreakerStates() map[string]resilience.CircuitState {
	return f.breakers.States()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
