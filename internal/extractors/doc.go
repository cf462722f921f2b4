// Package extractors provides the extractor registry and helpers shared by
// the per-format extractors in its subpackages.
//
// Each subpackage turns one file format into ordered content units:
//
//   - pdf: one unit per page
//   - epub: one unit per spine document, navigation excluded
//   - docx, html, plaintext: one unit per file
//   - markdown: one unit per top-level heading section
package extractors
