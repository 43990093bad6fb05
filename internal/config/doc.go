// Package config manages user-level settings stored at
// ~/.addonreg/config.yaml and the persisted registry state document.
//
// Settings (directories, log level, S3 endpoint) go through viper so they
// can be overridden with ADDONREG_* environment variables. The registry
// state is a separate JSON document whose keys are unit names, which viper
// would lowercase, so it is read and written with encoding/json.
package config
