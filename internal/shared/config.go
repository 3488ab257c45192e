package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codewithboateng/policylint/internal/ir"
	"github.com/codewithboateng/policylint/internal/rules"
)

type Config struct {
	Database struct {
		Driver string `yaml:"driver"` // "sqlite" (default)
		DSN    string `yaml:"dsn"`    // "./policylint.db"
	} `yaml:"database"`

	Analysis struct {
		Sources []string `yaml:"sources"` // directories of *.unit.json / *.unit.yaml
		Workers int      `yaml:"workers"` // 0 = GOMAXPROCS
	} `yaml:"analysis"`

	Rules struct {
		Packs             []string          `yaml:"packs"` // empty = embedded default pack
		Permissive        bool              `yaml:"permissive"`
		SeverityOverrides map[string]string `yaml:"severity_overrides"`
		Disabled          []string          `yaml:"disabled"`
	} `yaml:"rules"`

	Reporting struct {
		OutDir string `yaml:"out_dir"` // "./reports"
	} `yaml:"reporting"`

	Logging struct {
		Format string `yaml:"format"` // "json"|"text"
		Level  string `yaml:"level"`  // "info"|"debug"|"warn"|"error"
	} `yaml:"logging"`

	Server struct {
		Addr string `yaml:"addr"` // ":8080"
	} `yaml:"server"`
}

func DefaultConfig() Config {
	var c Config
	c.Database.Driver = "sqlite"
	c.Database.DSN = "./policylint.db"
	c.Reporting.OutDir = "./reports"
	c.Logging.Format = "json"
	c.Logging.Level = "info"
	c.Server.Addr = ":8080"
	return c
}

// LoadConfig reads path (a missing file means defaults) and applies
// POLICYLINT_* environment overrides.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return c, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return c, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	// Env overrides (simple, explicit)
	if v := os.Getenv("POLICYLINT_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("POLICYLINT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, fmt.Errorf("POLICYLINT_WORKERS: %w", err)
		}
		c.Analysis.Workers = n
	}
	if v := os.Getenv("POLICYLINT_PACKS"); v != "" {
		c.Rules.Packs = splitList(v)
	}
	if v := os.Getenv("POLICYLINT_PERMISSIVE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("POLICYLINT_PERMISSIVE: %w", err)
		}
		c.Rules.Permissive = b
	}
	if v := os.Getenv("POLICYLINT_DISABLED_RULES"); v != "" {
		c.Rules.Disabled = splitList(v)
	}
	if v := os.Getenv("POLICYLINT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("POLICYLINT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("POLICYLINT_OUT_DIR"); v != "" {
		c.Reporting.OutDir = v
	}
	if v := os.Getenv("POLICYLINT_ADDR"); v != "" {
		c.Server.Addr = v
	}
	return c, nil
}

// RuleSettings converts the rules section for rules.NewRegistry.
func (c Config) RuleSettings() (rules.Settings, error) {
	s := rules.Settings{
		Permissive:        c.Rules.Permissive,
		SeverityOverrides: map[string]ir.Severity{},
		Disabled:          map[string]bool{},
	}
	for id, v := range c.Rules.SeverityOverrides {
		sev, err := ir.ParseSeverity(v)
		if err != nil {
			return s, fmt.Errorf("severity_overrides[%s]: %w", id, err)
		}
		s.SeverityOverrides[id] = sev
	}
	for _, id := range c.Rules.Disabled {
		s.Disabled[strings.TrimSpace(id)] = true
	}
	return s, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
