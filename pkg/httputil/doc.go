// Package httputil fetches remote assets such as header logos.
//
// # Overview
//
//   - [Fetcher]: cached GET with a size limit
//   - [Retry]: retry with exponential backoff for transient failures
//
// # Fetching
//
// [Fetcher.Fetch] consults a cache.Cache first (key cache.Keyer.AssetKey)
// and stores successful bodies with cache.TTLAsset:
//
//	f := httputil.NewFetcher(c)
//	logo, err := f.Fetch(ctx, "https://example.com/logo.png")
//
// Outgoing requests are reported through observability.HTTP().
//
// # Retry
//
// [Retry] only retries errors wrapped in [RetryableError]:
//
//   - network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// Any other status fails on the first attempt.
package httputil
