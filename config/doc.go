// Package config loads runtime settings from a YAML file and the
// environment. Environment variables use the LAB_ prefix and override
// file values; absent files fall back to defaults.
package config
