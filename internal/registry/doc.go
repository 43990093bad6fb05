// Package registry fetches registry catalog documents, validates them
// against the embedded catalog schema, and merges several sources into one
// catalog with list-order precedence and staleness pruning. It also
// implements the maintainer-side index operations used to publish a
// registry document.
package registry
