// Package config loads the instrument server configuration from YAML.
//
// All fields have working defaults: an empty file (or no file at all)
// yields a server on the default port with the simulator driver and no
// protocol log. Command-line flags in cmd/tem-server override whatever
// the file says.
package config
