// Package config defines the configuration of a causal process.
//
// Whether a process is created directly from Go code, by a simulation, or by
// the causal command, it uses the Config object defined in this package to
// store and forward configuration options. A process started from the command
// line also relies on a data directory, defined by Config.DataDir, where it
// expects to find:
//
//  peers.json // a JSON file listing every process of the group, indexed by ID.
//  causal.toml // (optional) a file overriding the default configuration.
package config
