// Package cache stores intermediate and final export results.
//
// Exports are deterministic for a given source and configuration, so the
// page plan and the finished PDF can be reused across runs. Three backends
// implement [Cache]:
//
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON file per entry, used by the CLI
//   - [RedisCache]: shared cache for multi-instance servers
//
// Keys are built by a [Keyer] from a content hash of the source and the
// options that influence the result. [ScopedKeyer] prefixes keys for
// per-tenant isolation.
package cache

import (
	"context"
	"time"
)

// Default time-to-live per entry kind.
const (
	TTLPlan     = 7 * 24 * time.Hour
	TTLArtifact = 24 * time.Hour
	TTLAsset    = 24 * time.Hour
)

// Cache is a byte-oriented key/value store with expiration.
type Cache interface {
	// Get returns the stored bytes. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// PlanKeyOpts are the options that change a page plan.
type PlanKeyOpts struct {
	Scale       float64 `json:"scale"`
	LayoutWidth float64 `json:"layout_width"`
	Format      string  `json:"format"`
	Margin      float64 `json:"margin"`
	Footer      bool    `json:"footer"`
}

// ArtifactKeyOpts are the options that change the finished PDF.
type ArtifactKeyOpts struct {
	Plan        PlanKeyOpts `json:"plan"`
	Title       string      `json:"title"`
	Logo        string      `json:"logo"`
	LogoHash    string      `json:"logo_hash,omitempty"` // hash of the loaded logo bytes
	HeaderColor string      `json:"header_color"`
	Footer      string      `json:"footer"`
}

// Keyer builds cache keys.
type Keyer interface {
	PlanKey(sourceHash string, opts PlanKeyOpts) string
	ArtifactKey(sourceHash string, opts ArtifactKeyOpts) string
	AssetKey(ref string) string
}

// DefaultKeyer hashes the options into the key.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the keyer used when none is configured.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// PlanKey returns "plan:<hash>".
func (DefaultKeyer) PlanKey(sourceHash string, opts PlanKeyOpts) string {
	return hashKey("plan", sourceHash, opts)
}

// ArtifactKey returns "pdf:<hash>".
func (DefaultKeyer) ArtifactKey(sourceHash string, opts ArtifactKeyOpts) string {
	return hashKey("pdf", sourceHash, opts)
}

// AssetKey returns "asset:<ref>" so entries stay readable in redis-cli.
func (DefaultKeyer) AssetKey(ref string) string {
	return "asset:" + ref
}
