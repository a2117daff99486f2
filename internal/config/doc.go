// SPDX-License-Identifier: MPL-2.0

// Package config loads the optional project configuration file wxpipe.cue.
//
// The file is validated against an embedded CUE schema (config_schema.cue),
// decoded and merged into Viper on top of the built-in defaults, then
// unmarshalled into Config. Without a file the defaults reproduce the fixed
// layout: sources under src/, outputs under dist/.
package config
