// Package installer owns the registry configuration and runs the mutating
// operations against it: catalog sync, install, upgrade, uninstall and
// source management.
//
// A Service runs one mutating operation at a time. Readers may take
// snapshots of the configuration concurrently. Every mutation that must
// survive a restart is handed to the Store before the operation returns.
package installer
