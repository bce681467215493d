// Package compose turns page slices of a rendered document into page-sized
// canvases.
//
// # Page anatomy
//
// Every page is drawn on a white canvas of the page format's pixel size
// (see page.Geometry):
//
//	+------------------------------------------+
//	| margin                                   |
//	|  [logo] Title                       2/5  |  header band (HeaderColor)
//	|                                          |  band gap
//	|  slice content, top aligned              |  content area
//	|  ...                                     |
//	|  ---------------------------------------  |
//	|  footer text                             |  optional footer band
//	+------------------------------------------+
//
// The content area is exactly as wide as the raster, so a slice is copied
// pixel for pixel. A slice taller than the content area (a tall protected
// section the planner had to split) is shrunk uniformly with Catmull-Rom
// resampling instead of overflowing the page.
//
// # Concurrency
//
// [Composer.Pages] composes pages in parallel with a bounded errgroup after
// the plan is final. Pages are returned in index order and the raster is
// only read.
package compose
