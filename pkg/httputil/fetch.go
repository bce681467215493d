package httputil

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/matzehuels/diaryprint/pkg/buildinfo"
	"github.com/matzehuels/diaryprint/pkg/cache"
	"github.com/matzehuels/diaryprint/pkg/errors"
	"github.com/matzehuels/diaryprint/pkg/observability"
)

// DefaultMaxBytes bounds a fetched body.
const DefaultMaxBytes = 8 << 20

// Fetcher downloads small remote resources (header logos) through a cache.
// The zero value is usable: it has no cache and uses http.DefaultClient.
type Fetcher struct {
	Client   *http.Client
	Cache    cache.Cache
	Keyer    cache.Keyer
	TTL      time.Duration
	MaxBytes int64
	Attempts int
	Delay    time.Duration

	// PublicOnly refuses connections to loopback, private, link-local and
	// other non-public addresses. The server sets it for request-supplied
	// URLs.
	PublicOnly bool

	once    sync.Once
	guarded *http.Client
}

// NewFetcher returns a fetcher backed by c with the asset TTL.
func NewFetcher(c cache.Cache) *Fetcher {
	return &Fetcher{
		Client:   &http.Client{Timeout: 15 * time.Second},
		Cache:    c,
		Keyer:    cache.NewDefaultKeyer(),
		TTL:      cache.TTLAsset,
		MaxBytes: DefaultMaxBytes,
		Attempts: 3,
		Delay:    500 * time.Millisecond,
	}
}

// Fetch returns the body at url, from the cache when fresh. Transient
// failures are retried; a 4xx status fails immediately.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := errors.ValidateURL(url); err != nil {
		return nil, err
	}
	keyer := f.Keyer
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	key := keyer.AssetKey(url)

	if f.Cache != nil {
		if data, hit, err := f.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "asset")
			return data, nil
		}
		observability.Cache().OnCacheMiss(ctx, "asset")
	}

	var body []byte
	err := Retry(ctx, f.Attempts, f.delay(), func() error {
		data, err := f.get(ctx, url)
		if err != nil {
			return err
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", url)
	}

	if f.Cache != nil {
		if err := f.Cache.Set(ctx, key, body, f.TTL); err == nil {
			observability.Cache().OnCacheSet(ctx, "asset", len(body))
		}
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, req.URL.Host, req.URL.Path)

	start := time.Now()
	resp, err := f.client().Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var blocked *BlockedAddrError
		if stderrors.As(err, &blocked) {
			return nil, blocked
		}
		return nil, &RetryableError{Err: err}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %s", resp.Status)
		if RetryableStatus(resp.StatusCode) {
			return nil, &RetryableError{Err: err}
		}
		return nil, err
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, &RetryableError{Err: err}
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("body exceeds %d bytes", limit)
	}
	return data, nil
}

func (f *Fetcher) client() *http.Client {
	base := f.Client
	if base == nil {
		base = http.DefaultClient
	}
	if !f.PublicOnly {
		return base
	}
	f.once.Do(func() {
		c := *base
		c.Transport = publicOnlyTransport()
		f.guarded = &c
	})
	return f.guarded
}

func (f *Fetcher) delay() time.Duration {
	if f.Delay > 0 {
		return f.Delay
	}
	return 500 * time.Millisecond
}
