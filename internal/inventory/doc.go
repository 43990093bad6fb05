// Package inventory answers which units are installed in the addons
// directory, where they live on disk and which version was installed.
//
// The directory itself is the source of truth for presence. A receipts file
// written after each successful install adds the version, digest and exact
// paths that extraction produced.
package inventory
