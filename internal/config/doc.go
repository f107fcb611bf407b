// Package config loads the Vocalis server configuration.
//
// Configuration is a YAML file. ${VAR_NAME} references are replaced with
// environment variables before parsing, durations are written as Go duration
// strings ("30s", "2m"). Every field has a default, so an empty file (or no
// file at all) yields a runnable configuration.
package config
