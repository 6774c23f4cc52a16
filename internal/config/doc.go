// Package config provides configuration structures and utilities for sitecorpus.
// It defines the crawl, extraction and output settings, validates them, and
// merges per-site overrides from the optional .sitecorpus YAML file.
package config
