// Package addon defines the registry data model shared by every other
// package: versions, registry sources, catalog records, the persisted
// configuration document, and the outcome taxonomy reported by sync and
// install operations.
package addon
