package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the site file name looked up in the working and home
// directories.
const DefaultConfigFile = ".sitecorpus"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile reads and validates a site file.
//
// Unknown keys are rejected so that a misspelt "ignorePattern" fails loudly
// instead of silently crawling paths the user meant to skip. Every selector
// and glob in the defaults and in each site is checked before the file is
// returned. A missing file yields ErrConfigNotFound; whether that matters is
// up to the caller.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}

	cf, err := decodeFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cf.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cf, nil
}

func decodeFile(data []byte) (*File, error) {
	cf := &File{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}
	return cf, nil
}

// validate checks the defaults and every site entry.
func (cf *File) validate() error {
	if err := cf.Defaults.validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	for name, sc := range cf.Sites {
		if err := sc.validate(); err != nil {
			return fmt.Errorf("site %s: %w", name, err)
		}
	}
	return nil
}

func (sc SiteConfig) validate() error {
	if sc.Depth < 0 {
		return ErrInvalidDepth
	}
	if sc.MinContentLength < 0 {
		return ErrInvalidMinLength
	}
	if err := ValidateSelectors(sc.BoilerplateSelectors); err != nil {
		return err
	}
	if err := ValidatePatterns(sc.IgnorePatterns); err != nil {
		return err
	}
	return ValidatePatterns(sc.FollowPatterns)
}

// FindConfigFile returns the site file to load, or "" when there is none.
//
// An explicit configPath is used only if it exists. Otherwise the lookup
// order is .sitecorpus in the working directory, .sitecorpus in the home
// directory, then config.yaml in XDGConfigDir.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if fileExists(configPath) {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, XDGConfigFile())

	for _, c := range candidates {
		if fileExists(c) {
			return c
		}
	}
	return ""
}

// XDGConfigFile is the user-wide site file, the last place FindConfigFile
// looks.
func XDGConfigFile() string {
	return filepath.Join(XDGConfigDir(), "config.yaml")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
