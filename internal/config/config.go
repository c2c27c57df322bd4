package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/secscan/internal/domain/scans"
	"github.com/bryanwahyu/secscan/internal/domain/scoring"
)

// ToolConfig describes how to invoke one external analysis tool. Args are
// text/template strings rendered with {{.Target}} and {{.Root}}.
type ToolConfig struct {
	Binary   string   `yaml:"binary"`
	Args     []string `yaml:"args"`
	Image    string   `yaml:"image"`
	OKCodes  []int    `yaml:"okCodes"`
	Target   string   `yaml:"target"`
	Severity string   `yaml:"severity"` // dependency tool only; pip-audit reports none
}

// Rule is one configuration-validation rule.
type Rule struct {
	ID          string `yaml:"id"`
	Kind        string `yaml:"kind"` // file_exists | file_contains | file_not_contains | no_secrets
	Path        string `yaml:"path"`
	Pattern     string `yaml:"pattern"`
	Severity    string `yaml:"severity"`
	Description string `yaml:"description"`
}

// Control is one security control expected to be present in source.
type Control struct {
	Name    string   `yaml:"name"`
	File    string   `yaml:"file"`
	Markers []string `yaml:"markers"`
}

type Config struct {
	Project   string `yaml:"project"`
	Root      string `yaml:"root"`
	ReportDir string `yaml:"reportDir"`

	Executor struct {
		Mode string `yaml:"mode"` // local | docker
	} `yaml:"executor"`

	StaticAnalysis ToolConfig `yaml:"staticAnalysis"`
	Dependencies   ToolConfig `yaml:"dependencies"`

	Rules         []Rule               `yaml:"rules"`
	Controls      []Control            `yaml:"controls"`
	AcceptedRisks []scans.AcceptedRisk `yaml:"acceptedRisks"`
	Scoring       scoring.Policy       `yaml:"scoring"`

	Server struct {
		Port    int      `yaml:"port"`
		APIKey  string   `yaml:"apiKey"`
		Origins []string `yaml:"origins"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres, empty disables history
		DSN      string `yaml:"dsn"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`
}

// Default returns the configuration used when no config file exists. It
// reproduces the checks of the original automation script.
func Default() *Config {
	cfg := &Config{
		Project:   "LLM Guardrails Demo API",
		Root:      ".",
		ReportDir: "security-reports",
	}
	cfg.Executor.Mode = "local"
	cfg.StaticAnalysis = ToolConfig{
		Binary:  "bandit",
		Args:    []string{"-r", "{{.Target}}", "-f", "json", "-q", "--exit-zero"},
		Image:   "ghcr.io/pycqa/bandit/bandit:latest",
		OKCodes: []int{0},
		Target:  "src",
	}
	cfg.Dependencies = ToolConfig{
		Binary:   "pip-audit",
		Args:     []string{"-r", "{{.Target}}", "-f", "json", "--progress-spinner", "off"},
		Image:    "pypa/pip-audit:latest",
		OKCodes:  []int{0, 1},
		Target:   "requirements.txt",
		Severity: "HIGH",
	}
	cfg.Rules = []Rule{
		{ID: "env-file-present", Kind: "file_exists", Path: ".env", Severity: "MEDIUM",
			Description: "Missing .env file - API keys may be exposed"},
		{ID: "gitignore-present", Kind: "file_exists", Path: ".gitignore", Severity: "MEDIUM",
			Description: "Missing .gitignore file"},
		{ID: "env-gitignored", Kind: "file_contains", Path: ".gitignore", Pattern: ".env", Severity: "HIGH",
			Description: ".env not in .gitignore - credentials at risk"},
		{ID: "flask-debug-off", Kind: "file_not_contains", Path: "src/app.py", Pattern: "debug=True", Severity: "HIGH",
			Description: "Flask debug mode enabled - unsafe for production"},
		{ID: "bind-address", Kind: "file_not_contains", Path: "src/app.py", Pattern: `host="0.0.0.0"`, Severity: "LOW",
			Description: "Server binds to all interfaces"},
		// pattern check only; MEDIUM so it cannot decide the posture on its own
		{ID: "no-hardcoded-secrets", Kind: "no_secrets", Path: "src", Severity: "MEDIUM",
			Description: "Hard-coded credential in source"},
	}
	cfg.Controls = []Control{
		{Name: "Guardrails AI", File: "src/app.py", Markers: []string{"from guardrails import Guard"}},
		{Name: "Phoenix Observability", File: "src/app.py", Markers: []string{"import phoenix", "from phoenix"}},
		{Name: "Input Validation", File: "src/app.py", Markers: []string{"guard.validate"}},
		{Name: "PII Detection", File: "src/app.py", Markers: []string{"DetectPII"}},
		{Name: "Toxic Content Filter", File: "src/app.py", Markers: []string{"ToxicLanguage"}},
	}
	cfg.Scoring = scoring.DefaultPolicy()
	cfg.Server.Port = 8080
	cfg.OpenAI.Model = "gpt-4o-mini"
	return cfg
}

// Load baca file config.yaml. A missing file yields Default(); values in the
// file override the defaults field by field.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("SECSCAN_API_KEY"); v != "" {
		c.Server.APIKey = v
	}
	if v := os.Getenv("SECSCAN_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("SECSCAN_REPORT_DIR"); v != "" {
		c.ReportDir = v
	}
}

// Validate checks the fields the scan cannot run without.
func (c *Config) Validate() error {
	if c.ReportDir == "" {
		return errors.New("config: reportDir is required")
	}
	switch c.Executor.Mode {
	case "local", "docker":
	default:
		return fmt.Errorf("config: executor.mode must be local or docker, got %q", c.Executor.Mode)
	}
	switch c.Database.Driver {
	case "", "mysql", "postgres":
	default:
		return fmt.Errorf("config: database.driver must be mysql or postgres, got %q", c.Database.Driver)
	}
	for _, r := range c.Rules {
		switch r.Kind {
		case "file_exists", "file_contains", "file_not_contains", "no_secrets":
		default:
			return fmt.Errorf("config: rule %s has unknown kind %q", r.ID, r.Kind)
		}
	}
	return c.Scoring.Validate()
}

// ReportPath resolves the report directory against the project root.
func (c *Config) ReportPath() string {
	if filepath.IsAbs(c.ReportDir) {
		return c.ReportDir
	}
	return filepath.Join(c.Root, c.ReportDir)
}

// DSN builds the database DSN for the configured driver. An explicit dsn wins.
func (c *Config) DSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	switch c.Database.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.Name)
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			c.Database.User,
			c.Database.Password,
			c.Database.Host,
			c.Database.Port,
			c.Database.Name,
		)
	}
}
