package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"reqprops/internal/analysis"
	"reqprops/internal/crawler"
	"reqprops/internal/syntax"
)

// FileNames are the configuration files Discover looks for, in order.
var FileNames = []string{".reqprops.yaml", ".reqprops.yml", ".reqprops.toml"}

type Config struct {
	KnowledgeBase string                    `yaml:"knowledge_base" toml:"knowledge_base"`
	AllFunctions  bool                      `yaml:"all_functions" toml:"all_functions"`
	Ambiguity     string                    `yaml:"ambiguity" toml:"ambiguity" validate:"oneof=stop skip"`
	Format        string                    `yaml:"format" toml:"format" validate:"oneof=text json github"`
	Workers       int                       `yaml:"workers" toml:"workers" validate:"gte=0"`
	Cache         string                    `yaml:"cache" toml:"cache"`
	LogLevel      string                    `yaml:"log_level" toml:"log_level" validate:"oneof=debug info warn error quiet"`
	Ignore        []string                  `yaml:"ignore" toml:"ignore" validate:"dive,required"`
	Languages     map[string]LanguageConfig `yaml:"languages" toml:"languages" validate:"dive,keys,oneof=rust go,endkeys"`
	Server        ServerConfig              `yaml:"server" toml:"server"`
}

// LanguageConfig overrides a built-in dialect. Empty fields keep the default.
type LanguageConfig struct {
	Terminal           string   `yaml:"terminal" toml:"terminal"`
	NamespacePrefix    string   `yaml:"namespace_prefix" toml:"namespace_prefix"`
	ClientType         string   `yaml:"client_type" toml:"client_type"`
	ConstructorMarkers []string `yaml:"constructor_markers" toml:"constructor_markers" validate:"dive,required"`
	Directive          string   `yaml:"directive" toml:"directive"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr" validate:"required"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Ambiguity: string(analysis.AmbiguityStop),
		Format:    "text",
		LogLevel:  "warn",
		Ignore:    append([]string(nil), crawler.DefaultIgnored...),
		Server:    ServerConfig{Addr: ":7411"},
	}
}

// Discover returns the first configuration file present in dir, or "".
func Discover(dir string) string {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// LoadConfig reads path over the defaults, applies environment overrides
// and validates the result. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	// 2. Load the config file
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := decode(path, file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	// 3. Override with Environment Variables if present
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
		return err
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
	return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
}

func (c *Config) applyEnv() {
	if v := os.Getenv("REQPROPS_KNOWLEDGE_BASE"); v != "" {
		c.KnowledgeBase = v
	}
	if v := os.Getenv("REQPROPS_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("REQPROPS_FORMAT"); v != "" {
		c.Format = v
	}
	if v := os.Getenv("REQPROPS_CACHE"); v != "" {
		c.Cache = v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks enumerations and required fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Dialect returns the built-in dialect for language with the configured
// overrides applied.
func (c *Config) Dialect(language string) (syntax.Dialect, error) {
	d, ok := syntax.DefaultDialect(language)
	if !ok {
		return syntax.Dialect{}, fmt.Errorf("unsupported language %q", language)
	}
	o, ok := c.Languages[language]
	if !ok {
		return d, nil
	}
	if o.Terminal != "" {
		d.Terminal = o.Terminal
	}
	if o.NamespacePrefix != "" {
		d.NamespacePrefix = o.NamespacePrefix
	}
	if o.ClientType != "" {
		d.ClientType = o.ClientType
	}
	if len(o.ConstructorMarkers) > 0 {
		d.ConstructorMarkers = append([]string(nil), o.ConstructorMarkers...)
	}
	if o.Directive != "" {
		d.Directive = o.Directive
	}
	return d, nil
}

// Dialects returns the dialect of every supported language.
func (c *Config) Dialects() ([]syntax.Dialect, error) {
	var out []syntax.Dialect
	for _, lang := range []string{syntax.LanguageRust, syntax.LanguageGo} {
		d, err := c.Dialect(lang)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// AmbiguityPolicy returns the configured policy.
func (c *Config) AmbiguityPolicy() analysis.AmbiguityPolicy {
	return analysis.AmbiguityPolicy(c.Ambiguity)
}

// WorkerCount resolves a zero worker count to GOMAXPROCS.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
