package tatami

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the declarative application configuration loaded from a
// YAML file next to the application.
type Config struct {
	AppName     string `yaml:"app_name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`

	Addr         string `yaml:"addr"`
	SpecPath     string `yaml:"spec_path"`
	DocsPath     string `yaml:"docs_path"`
	TemplatesDir string `yaml:"templates_dir"`
}

// defaults fills unset fields.
func (c *Config) defaults() {
	if c.AppName == "" {
		c.AppName = "tatami"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.SpecPath == "" {
		c.SpecPath = "/openapi.json"
	}
	if c.DocsPath == "" {
		c.DocsPath = "/docs"
	}
}

// LoadConfig reads the application config from dir. When mode is
// non-empty, config-<mode>.yaml is preferred and config.yaml is the
// fallback; a missing file is not an error and yields the defaults.
func LoadConfig(dir, mode string) (*Config, error) {
	candidates := []string{"config.yaml"}
	if mode != "" {
		candidates = []string{fmt.Sprintf("config-%s.yaml", mode), "config.yaml"}
	}

	cfg := &Config{}
	for _, name := range candidates {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("tatami: read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("tatami: parse %s: %w", name, err)
		}
		break
	}

	cfg.defaults()
	return cfg, nil
}

// NewFromConfig builds a root router from a config: title, version,
// description, templates directory, plus spec and docs routes.
func NewFromConfig(cfg *Config, opts ...Option) *Router {
	all := append([]Option{
		WithTitle(cfg.AppName),
		WithVersion(cfg.Version),
		WithRouterDescription(cfg.Description),
		WithTemplatesDir(cfg.TemplatesDir),
	}, opts...)

	r := New(all...)
	r.ServeSpec(cfg.SpecPath)
	r.ServeDocs(cfg.DocsPath, WithDocsSpecURL(cfg.SpecPath))
	return r
}
