package schema

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/docdex/internal/errors"
)

// ReloadMode selects how the queryable snapshot tracks commits.
type ReloadMode string

const (
	// ReloadAuto refreshes the snapshot on a short background interval.
	ReloadAuto ReloadMode = "auto"
	// ReloadManual refreshes only when Reload() is called.
	ReloadManual ReloadMode = "manual"
)

// Default tuning values.
const (
	DefaultAutoReloadEvery = 50 * time.Millisecond
	DefaultWriterQueue     = 64
	DefaultCacheSize       = 256
	DefaultIDField         = "id"
)

// IndexConfig is the complete declaration of one index: where it lives,
// the schema of its documents, and engine-level settings.
type IndexConfig struct {
	// Path is the on-disk index location. Empty means in-memory.
	Path string `yaml:"path"`

	// Fields is the document schema.
	Fields []FieldConfig `yaml:"fields"`

	// Language selects the text analyzer (see AnalyzerNames).
	Language string `yaml:"language"`

	// IDField names the field update-by-id keys on. Default "id".
	IDField string `yaml:"id_field"`

	// Reload selects the visibility policy. Default auto.
	Reload ReloadMode `yaml:"reload"`

	// AutoReloadEvery is the refresh interval under the auto policy.
	AutoReloadEvery time.Duration `yaml:"auto_reload_every"`

	// WriterQueue bounds the write coordinator's pending operation queue.
	WriterQueue int `yaml:"writer_queue"`

	// CacheSize is the search result cache capacity in entries.
	CacheSize int `yaml:"cache_size"`
}

// DefaultIndexConfig returns a config with defaults applied and no fields.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		Language:        "standard",
		IDField:         DefaultIDField,
		Reload:          ReloadAuto,
		AutoReloadEvery: DefaultAutoReloadEvery,
		WriterQueue:     DefaultWriterQueue,
		CacheSize:       DefaultCacheSize,
	}
}

// FromYAML parses an IndexConfig from YAML, applies defaults, and
// validates it.
func FromYAML(data []byte) (IndexConfig, error) {
	cfg := DefaultIndexConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return IndexConfig{}, errors.ConfigError("invalid index config", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return IndexConfig{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses an IndexConfig from a file.
func LoadConfig(path string) (IndexConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return IndexConfig{}, errors.ConfigError("cannot read index config", err)
	}
	return FromYAML(data)
}

// Normalized returns a copy with defaults applied, for configs built
// programmatically rather than through FromYAML.
func (c IndexConfig) Normalized() IndexConfig {
	c.applyDefaults()
	return c
}

func (c *IndexConfig) applyDefaults() {
	if c.Language == "" {
		c.Language = "standard"
	}
	if c.IDField == "" {
		c.IDField = DefaultIDField
	}
	if c.Reload == "" {
		c.Reload = ReloadAuto
	}
	if c.AutoReloadEvery <= 0 {
		c.AutoReloadEvery = DefaultAutoReloadEvery
	}
	if c.WriterQueue <= 0 {
		c.WriterQueue = DefaultWriterQueue
	}
	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}
}

// Validate checks the configuration, including the embedded schema.
func (c IndexConfig) Validate() error {
	if _, err := c.Schema(); err != nil {
		return err
	}
	if _, ok := AnalyzerNames[c.Language]; !ok {
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"unknown language %q (available: %v)", c.Language, availableLanguages())
	}
	switch c.Reload {
	case ReloadAuto, ReloadManual:
	default:
		return errors.Newf(errors.ErrCodeConfigInvalid,
			"unknown reload mode %q", c.Reload)
	}
	return nil
}

// Schema builds the validated Schema from the field declarations.
func (c IndexConfig) Schema() (*Schema, error) {
	return New(c.Fields)
}
