// Package doctor runs diagnostic checks on the local installation: the
// config and addons directories, the registry state document, archives
// awaiting manual extraction, the external archiver and, on request, every
// configured registry.
package doctor
