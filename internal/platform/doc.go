// Package platform wraps host differences the installer cares about:
// permission bits that Windows ignores and locating an external archiver.
package platform
