// Package archive places a verified download into the managed addons
// directory. Recognized containers (zip, tar, tar.gz) are extracted in
// process, single-file addons are moved into place, anything else is handed
// to an external archiver and, failing that, parked in a pending store so
// the user can save and extract it by hand.
package archive
