// Package buildinfo holds version information stamped in at build time.
//
// Release builds set the variables with ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/diaryprint/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/diaryprint/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/diaryprint/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	    ./cmd/diaryprint
package buildinfo

import "fmt"

var (
	// Version is the semantic version, "dev" for local builds.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// Creator returns the producer name written into PDF metadata.
func Creator() string {
	return "diaryprint " + Version
}

// UserAgent returns the User-Agent sent when fetching remote assets.
func UserAgent() string {
	return fmt.Sprintf("diaryprint/%s (+https://github.com/matzehuels/diaryprint)", Version)
}

// Template returns the version template string for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
