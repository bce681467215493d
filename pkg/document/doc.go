// Package document describes the visual tree of a report and lays it out.
//
// A [Document] is a title plus an ordered list of [Section] values:
// headings, text, info cards, data tables, spacers and a signature block.
// The package never interprets the content of fields; it only turns them
// into boxes and text lines.
//
// [Layout] produces a [Geometry]: one [Region] per section with absolute
// drawing primitives in layout units (1 unit = 1 CSS pixel at 96 DPI). The
// renderer in pkg/raster paints the primitives at a scale factor; the locator
// in pkg/locate maps region boxes to pixel rows. Both call Layout on the same
// document at the same width, so their results agree.
//
// Sections marked hide_from_export are removed with [Filter] before layout.
package document
