// Package plan computes how a tall raster is cut into printed pages.
//
// # Overview
//
// A rendered report is one image of height H pixels. A printed page can hold
// P pixel rows of content. Cutting every P rows is simple but ugly: tables
// and info cards end up split across pages, and the signature block can be
// left alone on a final page or torn in two. [Compute] walks the raster from
// top to bottom and, at every cut, consults the located [Section] boxes:
//
//   - [ClassNone]: may be cut anywhere
//   - [ClassProtected]: should start on a fresh page rather than be split
//   - [ClassTrailing]: the signature block; once it starts, the rest of the
//     document is rendered on the current page
//
// # Priority Cascade
//
// The decision at each cursor is made by [Decide], which returns a tagged
// [Decision]:
//
//   - [Continue]: close the page at Decision.Px
//   - [BreakBefore]: close the page right before a section
//   - [SkipGap]: move the cursor to a section start without closing the page
//
// The trailing rule is evaluated first. If the signature block fits in the
// space left on the current page, the remainder of the document becomes one
// page. If it does not fit, the page is closed right before it, unless the
// gap before it is under 10% of P, in which case the gap is carried along.
//
// Protected sections come next. The first protected section that starts
// inside the current window but ends after it moves to the next page; a gap
// under 5% of P before it is carried along instead of forming its own page.
//
// A protected section taller than P cannot be kept whole. It is cut at page
// boundaries and reported in [Plan.Notes].
//
// # Coverage
//
// Slices are contiguous, numbered from 1 and cover [0,H) exactly once; see
// [Validate]. Rows skipped by [SkipGap] are carried into the next slice, so a
// slice may be taller than P. The page renderer scales such slices down.
//
// # Debugging
//
// [ToDOT] and [RenderSVG] draw a plan with the sections it was computed from,
// which makes protected-section decisions easy to audit.
package plan
