// Package config loads the YAML settings shared by the hxcore command and
// applications embedding the framework.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm/hxcore"
	"github.com/pthm/hxcore/lib/vscroll"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("config: invalid")

// Config is the root of the settings file.
type Config struct {
	// Engine names the rendering engine, "reactive" or "zero".
	Engine       string `yaml:"engine"`
	LogVerbosity int    `yaml:"logVerbosity"`
	// Addr is the listen address of the demo server.
	Addr string `yaml:"addr"`
	// DB is the bbolt file backing the demo feed.
	DB     string `yaml:"db"`
	Scroll Scroll `yaml:"scroll"`
	// Key signs or encrypts scroll cursors.
	Key string `yaml:"key"`
	// RetiredKeys still open cursors issued before the key was rotated.
	RetiredKeys []string `yaml:"retiredKeys"`
}

// Scroll configures virtual-scroll feeds.
type Scroll struct {
	PerPage    int  `yaml:"perPage"`
	Threshold  int  `yaml:"threshold"`
	Tombstones int  `yaml:"tombstones"`
	Sensitive  bool `yaml:"sensitive"`
}

// Default returns the settings used for keys missing from a file.
func Default() *Config {
	return &Config{
		Engine: "reactive",
		Addr:   ":8080",
		DB:     "hxcore.db",
		Scroll: Scroll{
			PerPage:    vscroll.DefaultPerPage,
			Threshold:  vscroll.DefaultThreshold,
			Tombstones: 3,
		},
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes YAML over Default and validates the result. Unknown keys
// are rejected.
func Parse(data []byte) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	var errs []error
	if _, err := hxcore.LookupEngine(c.Engine); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	if c.LogVerbosity < 0 {
		errs = append(errs, errors.New("logVerbosity must not be negative"))
	}
	if c.Scroll.PerPage < 1 {
		errs = append(errs, errors.New("scroll.perPage must be positive"))
	}
	if c.Scroll.Threshold < 0 {
		errs = append(errs, errors.New("scroll.threshold must not be negative"))
	}
	if c.Scroll.Tombstones < 0 {
		errs = append(errs, errors.New("scroll.tombstones must not be negative"))
	}
	if c.Scroll.Sensitive && c.Key == "" {
		errs = append(errs, errors.New("scroll.sensitive requires a key"))
	}
	if len(c.RetiredKeys) > 0 && c.Key == "" {
		errs = append(errs, errors.New("retiredKeys requires a key"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// String renders the settings as YAML with the key redacted, for logging.
func (c *Config) String() string {
	redacted := *c
	if redacted.Key != "" {
		redacted.Key = "REDACTED"
	}
	if n := len(redacted.RetiredKeys); n > 0 {
		redacted.RetiredKeys = make([]string, n)
		for i := range redacted.RetiredKeys {
			redacted.RetiredKeys[i] = "REDACTED"
		}
	}
	out, err := yaml.Marshal(&redacted)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(out)
}
