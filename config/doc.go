// Package config loads the application configuration for the pipeline
// builder service.
//
// Configuration is layered: built-in defaults first, then an optional
// YAML file, then NEUROBLOCK_* environment variables. Later layers
// override earlier ones, so a deployment only writes down what it
// changes. Loading validates the merged result; the server never starts
// on a config it cannot honor.
//
// File paths are validated before reading (no traversal, regular files
// only, bounded size) because the config path is often operator input
// from a flag or environment variable.
package config
