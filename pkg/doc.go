// Package pkg provides the libraries behind diaryprint, which exports visual
// reports (site diaries, inspection reports) as paginated PDFs.
//
// # Overview
//
// A report is rendered once, at a fixed layout width, into a single tall
// raster. Regions that must not be cut (tables, info cards, the signature
// block) are located in that raster, page breaks are planned around them and
// each page slice is composed with a header band, optional logo and footer
// before the pages are written into one PDF.
//
// # Architecture
//
//	Document (JSON/TOML/YAML) or HTML report
//	         ↓
//	    [raster] render at fixed width (software or headless Chrome)
//	         ↓
//	    [locate] section bounding boxes in raster pixels
//	         ↓
//	    [plan] page slices around protected and trailing sections
//	         ↓
//	    [compose] one page image per slice, with header and footer
//	         ↓
//	    [assemble] PDF, verified by reading it back
//
// [pipeline] runs these stages with caching and is shared by the CLI and
// the HTTP API in [server].
//
// # Main Packages
//
// ## Export stages
//
// [document] - Report description: headings, text, cards, tables, spacers
// and signature blocks, laid out into positioned boxes.
//
// [raster] - Rendering into a pixel buffer. The software renderer draws
// documents with fogleman/gg; [raster/browser] drives headless Chrome for
// HTML reports.
//
// [locate] - Finds protected regions and the trailing section.
//
// [plan] - The page-break planner, plus JSON and Graphviz renderings of a
// plan for debugging.
//
// [compose] - Page composition: slice scaling, header band, logo, footer.
//
// [assemble] - PDF output with go-pdf/fpdf and verification with
// seehuhn.de/go/pdf.
//
// ## Supporting packages
//
// [page] - Paper formats and printable-area geometry.
//
// [asset] and [httputil] - Logo loading from disk or over HTTP with retries.
//
// [cache] - Plan and artifact caching: file, Redis, null and scoped caches.
//
// [jobs] - Export history in memory, on disk or in MongoDB.
//
// [errors] - Error codes and input validation.
//
// [observability] - Hooks for stages, cache access and HTTP traffic.
//
// [io] - Document import and plan export.
//
// # Testing
//
//	go test ./...                          # All tests
//	DIARYPRINT_REDIS=redis://localhost:6379 go test ./pkg/cache
//	DIARYPRINT_MONGO=mongodb://localhost go test ./pkg/jobs
//	DIARYPRINT_CHROME=1 go test ./pkg/raster/browser
//
// [raster]: https://pkg.go.dev/github.com/matzehuels/diaryprint/pkg/raster
// [raster/browser]: https://pkg.go.dev/github.com/matzehuels/diaryprint/pkg/raster/browser
// [locate]: https://pkg.go.dev/github.com/matzehuels/diaryprint/pkg/locate
// [plan]: https://pkg.go.dev/github.com/matzehuels/diaryprint/pkg/plan
// [compose]: https://pkg.go.dev/github.com/matzehuels/diaryprint/pkg/compose
// [assemble]: https://pkg.go.dev/github.com/matzehuels/diaryprint/pkg/assemble
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/diaryprint/pkg/pipeline
// [server]: https://pkg.go.dev/github.com/matzehuels/diaryprint/pkg/server
// [document]: https://pkg.go.dev/github.com/matzehuels/diaryprint/pkg/document
// [page]: https://pkg.go.dev/github.com/matzehuels/diaryprint/pkg/page
// [asset]: https://pkg.go.dev/github.com/matzehuels/diaryprint/pkg/asset
// [httputil]: https://pkg.go.dev/github.com/matzehuels/diaryprint/pkg/httputil
// [cache]: https://pkg.go.dev/github.com/matzehuels/diaryprint/pkg/cache
// [jobs]: https://pkg.go.dev/github.com/matzehuels/diaryprint/pkg/jobs
// [errors]: https://pkg.go.dev/github.com/matzehuels/diaryprint/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/diaryprint/pkg/observability
// [io]: https://pkg.go.dev/github.com/matzehuels/diaryprint/pkg/io
package pkg
