// Package config reads the ini configuration file.
package config

import (
	_ "embed"
	"errors"
	"io/fs"
	"os"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/wansing/perspective-lims/core"
	"gopkg.in/ini.v1"
)

//go:embed workflows.yaml
var DefaultWorkflows []byte

// CodeConfig is the text code of errors in the configuration file.
const CodeConfig = "CONFIG_ERROR"

// MySQL: collation should be utf8mb4_unicode_ci
const DefaultDB = "sqlite3:lims.sqlite3?_busy_timeout=10000&_journal=WAL&_sync=NORMAL&cache=shared"

type Config struct {
	DB        string `ini:"db"`        // sql database url, see github.com/xo/dburl
	Listen    string `ini:"listen"`    // ip:port
	Base      string `ini:"base"`      // prefix stripped from every HTTP request
	Workflows string `ini:"workflows"` // workflow definitions file, empty for the built-in definitions
	LogLevel  string `ini:"log-level"`
}

func Default() *Config {
	return &Config{
		DB:       DefaultDB,
		Listen:   "127.0.0.1:8080",
		LogLevel: "info",
	}
}

// Load reads the file on top of the defaults. A missing file yields the defaults.
func Load(filename string) (*Config, error) {

	var cfg = Default()

	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}

	file, err := ini.Load(filename)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "loading config "+filename).WithTextCode(CodeConfig)
	}

	if err := file.Section("").MapTo(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "mapping config "+filename).WithTextCode(CodeConfig)
	}

	cfg.Base = NormalizeBase(cfg.Base)
	return cfg, nil
}

// NormalizeBase returns base with a leading slash and without a trailing slash, or an empty string.
func NormalizeBase(base string) string {
	base = strings.Trim(base, "/")
	if base == "" {
		return ""
	}
	return "/" + base
}

// LoadWorkflows returns the workflow definitions from the configured file, or the built-in ones.
func (cfg *Config) LoadWorkflows() (*core.WorkflowRegistry, error) {
	if cfg.Workflows == "" {
		return core.ParseWorkflows(DefaultWorkflows)
	}
	return core.LoadWorkflows(cfg.Workflows)
}
