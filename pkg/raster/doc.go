// Package raster renders a visual tree into a pixel buffer.
//
// # Renderers
//
// [Renderer] is the capture interface used by the export pipeline. Two
// backends exist:
//
//   - [DocumentRenderer] paints a document.Document with fogleman/gg. It
//     needs nothing outside the process.
//   - browser.Session (in the browser subpackage) loads an HTML report into
//     headless Chrome through go-rod and captures a full-page screenshot.
//
// Both render at a fixed layout width. [WithFixedWidth] is the scoped form of
// that mutation: the previous width is restored when the callback returns,
// fails or panics.
//
// # Surfaces
//
// [Allocate] creates every surface. Dimensions that are non-positive or above
// the configured pixel budget fail with errors.ErrCodeSurface, which aborts
// the export; nothing is rendered partially.
package raster
