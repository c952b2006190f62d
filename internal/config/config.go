package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MuchTitan/logtail/internal/engine"
	"github.com/MuchTitan/logtail/internal/filter"
	filtergrep "github.com/MuchTitan/logtail/internal/filter/grep"
	"github.com/MuchTitan/logtail/internal/input"
	"github.com/MuchTitan/logtail/internal/input/tail"
	"github.com/MuchTitan/logtail/internal/output"
	outputcounter "github.com/MuchTitan/logtail/internal/output/counter"
	outputgelf "github.com/MuchTitan/logtail/internal/output/gelf"
	outputsplunk "github.com/MuchTitan/logtail/internal/output/splunk"
	outputsqlite "github.com/MuchTitan/logtail/internal/output/sqlite"
	outputstdout "github.com/MuchTitan/logtail/internal/output/stdout"
	"github.com/MuchTitan/logtail/internal/parser"
	parserjson "github.com/MuchTitan/logtail/internal/parser/json"
	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration
type Config struct {
	System  SystemConfig     `yaml:"System" toml:"System"`
	Inputs  []map[string]any `yaml:"Inputs" toml:"Inputs"`
	Parsers []map[string]any `yaml:"Parsers" toml:"Parsers"`
	Filters []map[string]any `yaml:"Filters" toml:"Filters"`
	Outputs []map[string]any `yaml:"Outputs" toml:"Outputs"`
}

// SystemConfig holds system-wide configuration. Environment variables
// take precedence over the file.
type SystemConfig struct {
	LogLevel  string `yaml:"logLevel" toml:"logLevel" env:"LOGTAIL_LOG_LEVEL"`
	LogFile   string `yaml:"logFile" toml:"logFile" env:"LOGTAIL_LOG_FILE"`
	LogFormat string `yaml:"logFormat" toml:"logFormat" env:"LOGTAIL_LOG_FORMAT"`
}

func (c *SystemConfig) GetLogLevel() logrus.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "TRACE":
		return logrus.TraceLevel
	case "DEBUG":
		return logrus.DebugLevel
	case "WARN", "WARNING":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	default:
		// Default LogLevel Info
		return logrus.InfoLevel
	}
}

func (c *SystemConfig) formatter() logrus.Formatter {
	if strings.EqualFold(c.LogFormat, "text") {
		return &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		}
	}
	return &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339, // Use RFC3339 format (2006-01-02T15:04:05Z07:00)
	}
}

// Load reads a YAML or TOML (by extension) config file, expanding ${VAR}
// references first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Replace environment variables
	expanded := []byte(os.ExpandEnv(string(data)))

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(expanded, cfg)
	default:
		err = yaml.Unmarshal(expanded, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := env.Parse(&cfg.System); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}

	return cfg, nil
}

// SetupLogging points the global logrus logger at stderr and, if set,
// the configured log file.
func SetupLogging(system SystemConfig) error {
	writers := []io.Writer{os.Stderr}

	if system.LogFile != "" {
		file, err := os.OpenFile(system.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, file)
	}

	logrus.SetLevel(system.GetLogLevel())
	logrus.SetOutput(io.MultiWriter(writers...))
	logrus.SetFormatter(system.formatter())

	return nil
}

// Engine is extended to include configuration
type PluginEngine struct {
	*engine.Engine
	config Config
}

// NewPluginEngine loads the config at configPath, sets up logging and
// builds every configured plugin.
func NewPluginEngine(configPath string) (*PluginEngine, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}

	if err := SetupLogging(cfg.System); err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	return NewPluginEngineFromConfig(cfg)
}

// NewPluginEngineFromConfig builds the plugins of an already loaded config.
// Plugins initialized before a failure are shut down again.
func NewPluginEngineFromConfig(cfg *Config) (*PluginEngine, error) {
	e := &PluginEngine{
		Engine: engine.NewEngine(),
		config: *cfg,
	}

	if err := e.initializePlugins(); err != nil {
		e.Stop()
		return nil, err
	}

	return e, nil
}

func (e *PluginEngine) Config() Config {
	return e.config
}

// TailInputs returns the configured tail inputs.
func (e *PluginEngine) TailInputs() []*tail.Tail {
	var tails []*tail.Tail
	for _, in := range e.Inputs() {
		if t, ok := in.(*tail.Tail); ok {
			tails = append(tails, t)
		}
	}
	return tails
}

func (e *PluginEngine) initializePlugins() error {
	if len(e.config.Inputs) == 0 {
		return fmt.Errorf("no inputs configured")
	}

	for i, inputConfig := range e.config.Inputs {
		if err := e.initializeInput(inputConfig); err != nil {
			return fmt.Errorf("failed to initialize input %d: %w", i, err)
		}
	}

	for i, parserConfig := range e.config.Parsers {
		if err := e.initializeParser(parserConfig); err != nil {
			return fmt.Errorf("failed to initialize parser %d: %w", i, err)
		}
	}

	for i, filterConfig := range e.config.Filters {
		if err := e.initializeFilter(filterConfig); err != nil {
			return fmt.Errorf("failed to initialize filter %d: %w", i, err)
		}
	}

	for i, outputConfig := range e.config.Outputs {
		if err := e.initializeOutput(outputConfig); err != nil {
			return fmt.Errorf("failed to initialize output %d: %w", i, err)
		}
	}

	return nil
}

func pluginType(config map[string]any) (string, error) {
	raw, ok := config["Type"].(string)
	if !ok || raw == "" {
		return "", fmt.Errorf("plugin has no Type")
	}
	return strings.ToLower(raw), nil
}

// initPlugin runs Init, turning a panic from util.MustString on a
// mistyped key into an error.
func initPlugin(plugin interface{ Init(map[string]any) error }, config map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid plugin config: %v", r)
		}
	}()
	return plugin.Init(config)
}

func (e *PluginEngine) initializeInput(config map[string]any) error {
	var inputObject input.Plugin

	kind, err := pluginType(config)
	if err != nil {
		return err
	}
	switch kind {
	case "tail":
		inputObject = &tail.Tail{}
	default:
		return fmt.Errorf("unknown input type: %s", kind)
	}

	if err := initPlugin(inputObject, config); err != nil {
		return err
	}

	e.RegisterInput(inputObject)
	return nil
}

func (e *PluginEngine) initializeParser(config map[string]any) error {
	var parserObject parser.Plugin

	kind, err := pluginType(config)
	if err != nil {
		return err
	}
	switch kind {
	case "json":
		parserObject = &parserjson.Json{}
	case "regex":
		parserObject = &parser.Regex{}
	default:
		return fmt.Errorf("unknown parser type: %s", kind)
	}

	if err := initPlugin(parserObject, config); err != nil {
		return err
	}

	e.RegisterParser(parserObject)
	return nil
}

func (e *PluginEngine) initializeFilter(config map[string]any) error {
	var filterObject filter.Plugin

	kind, err := pluginType(config)
	if err != nil {
		return err
	}
	switch kind {
	case "grep":
		filterObject = &filtergrep.Grep{}
	default:
		return fmt.Errorf("unknown filter type: %s", kind)
	}

	if err := initPlugin(filterObject, config); err != nil {
		return err
	}

	e.RegisterFilter(filterObject)
	return nil
}

func (e *PluginEngine) initializeOutput(config map[string]any) error {
	var outputObject output.Plugin

	kind, err := pluginType(config)
	if err != nil {
		return err
	}
	switch kind {
	case "stdout":
		outputObject = &outputstdout.Stdout{}
	case "splunk":
		outputObject = &outputsplunk.Splunk{}
	case "counter":
		outputObject = &outputcounter.Counter{}
	case "gelf":
		outputObject = &outputgelf.GELF{}
	case "sqlite":
		outputObject = &outputsqlite.SQLite{}
	default:
		return fmt.Errorf("unknown output type: %s", kind)
	}

	if err := initPlugin(outputObject, config); err != nil {
		return err
	}

	e.RegisterOutput(outputObject)
	return nil
}

// Describe summarizes a plugin config for display.
func Describe(config map[string]any) string {
	kind, _ := config["Type"].(string)
	name, _ := config["Name"].(string)
	if name == "" {
		name = kind
	}
	var detail string
	switch {
	case config["Glob"] != nil:
		detail = fmt.Sprintf("glob=%v", config["Glob"])
	case config["Match"] != nil:
		detail = fmt.Sprintf("match=%v", config["Match"])
	}
	return strings.TrimSpace(fmt.Sprintf("%s (%s) %s", name, kind, detail))
}
