// SPDX-License-Identifier: MPL-2.0

// Package config loads jmodlink settings using Viper with CUE as the file format.
//
// Sources, lowest precedence first: built-in defaults, a CUE file (jmodlink.cue
// in the working directory, else config.cue in the platform config directory),
// JMODLINK_* assignments from a .env file, and JMODLINK_* process environment
// variables. The CUE file is validated against the embedded config_schema.cue.
package config
