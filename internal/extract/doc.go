// Package extract turns an HTML document into clean corpus text.
//
// Extraction happens in two stages:
//
//  1. Normalization (VisibleText) removes non-content elements (scripts,
//     styles, head metadata), page chrome matched by the boilerplate
//     selectors and comments, then collects the remaining text nodes in
//     document order. A fragment containing a denylisted phrase is dropped
//     whole. Fragments are joined with newlines.
//  2. Cleaning (Clean) normalizes Unicode to NFC, collapses every whitespace
//     run to a single space, breaks the text after each ". " and enforces a
//     minimum length.
//
// Extractor combines both stages with the configured thresholds and
// classifies a page as usable or too short.
package extract
