package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlConfig = `
System:
  logLevel: debug
  logFormat: text
Inputs:
  - Type: tail
    Name: app
    Tag: app.logs
    Glob: ${LOG_DIR}/**/*.log
    Interval: 5
    TimestampRule:
      StartByte: 0
      Length: 19
      Format: "%Y-%m-%d %H:%M:%S"
Parsers:
  - Type: regex
    Pattern: '^(?P<time>\S+ \S+) (?P<level>[A-Z]+)'
    TimeKey: time
    TimeFormat: "%Y-%m-%d %H:%M:%S"
  - Type: json
Filters:
  - Type: grep
    Match: "app*"
    Exclude:
      - healthcheck
Outputs:
  - Type: counter
    Match: "*"
`

const tomlConfig = `
[System]
logLevel = "warning"

[[Inputs]]
Type = "tail"
Glob = "/var/log/*.log"
Interval = "250ms"
MaxLineBytes = 2048

[Inputs.TimestampRule]
StartByte = 1
Length = 19
Format = "2006-01-02 15:04:05"

[[Outputs]]
Type = "stdout"
Format = "plain"
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func restoreLogger(t *testing.T) {
	t.Helper()
	level := logrus.GetLevel()
	formatter := logrus.StandardLogger().Formatter
	out := logrus.StandardLogger().Out
	t.Cleanup(func() {
		logrus.SetLevel(level)
		logrus.SetFormatter(formatter)
		logrus.SetOutput(out)
	})
}

func TestLoad_YAMLExpandsEnv(t *testing.T) {
	t.Setenv("LOG_DIR", "/srv/logs")
	cfg, err := Load(writeConfig(t, "cfg.yaml", yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.System.LogLevel)
	assert.Equal(t, "text", cfg.System.LogFormat)
	require.Len(t, cfg.Inputs, 1)
	assert.Equal(t, "/srv/logs/**/*.log", cfg.Inputs[0]["Glob"])
	assert.Equal(t, 5, cfg.Inputs[0]["Interval"])
	require.Len(t, cfg.Filters, 1)
	require.Len(t, cfg.Outputs, 1)
}

func TestLoad_TOML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "cfg.toml", tomlConfig))
	require.NoError(t, err)

	assert.Equal(t, "warning", cfg.System.LogLevel)
	require.Len(t, cfg.Inputs, 1)
	assert.Equal(t, "250ms", cfg.Inputs[0]["Interval"])
	assert.Equal(t, int64(2048), cfg.Inputs[0]["MaxLineBytes"])

	rule, ok := cfg.Inputs[0]["TimestampRule"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(19), rule["Length"])
}

func TestLoad_EnvOverridesSystem(t *testing.T) {
	t.Setenv("LOGTAIL_LOG_LEVEL", "trace")
	t.Setenv("LOGTAIL_LOG_FORMAT", "json")

	cfg, err := Load(writeConfig(t, "cfg.yaml", yamlConfig))
	require.NoError(t, err)
	assert.Equal(t, "trace", cfg.System.LogLevel)
	assert.Equal(t, "json", cfg.System.LogFormat)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = Load(writeConfig(t, "bad.yaml", "Inputs: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse config")

	_, err = Load(writeConfig(t, "bad.toml", "[System\n"))
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestGetLogLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"TRACE":   logrus.TraceLevel,
		"debug":   logrus.DebugLevel,
		"Warning": logrus.WarnLevel,
		"warn":    logrus.WarnLevel,
		"ERROR":   logrus.ErrorLevel,
		"":        logrus.InfoLevel,
		"bogus":   logrus.InfoLevel,
	}
	for level, want := range tests {
		system := SystemConfig{LogLevel: level}
		assert.Equal(t, want, system.GetLogLevel(), level)
	}
}

func TestSetupLogging(t *testing.T) {
	restoreLogger(t)
	logFile := filepath.Join(t.TempDir(), "agent.log")

	require.NoError(t, SetupLogging(SystemConfig{LogLevel: "debug", LogFile: logFile}))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	logrus.Debug("hello from the agent")
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the agent")

	require.NoError(t, SetupLogging(SystemConfig{LogFormat: "text"}))
	assert.IsType(t, &logrus.TextFormatter{}, logrus.StandardLogger().Formatter)
}

func TestSetupLogging_BadFile(t *testing.T) {
	restoreLogger(t)
	err := SetupLogging(SystemConfig{LogFile: filepath.Join(t.TempDir(), "missing", "agent.log")})
	assert.ErrorContains(t, err, "failed to open log file")
}

func TestNewPluginEngine(t *testing.T) {
	restoreLogger(t)
	t.Setenv("LOG_DIR", t.TempDir())

	e, err := NewPluginEngine(writeConfig(t, "cfg.yaml", yamlConfig))
	require.NoError(t, err)
	defer e.Stop()

	assert.Len(t, e.Inputs(), 1)
	assert.Len(t, e.Parsers(), 2)
	assert.Len(t, e.Filters(), 1)
	assert.Len(t, e.Outputs(), 1)

	tails := e.TailInputs()
	require.Len(t, tails, 1)
	assert.Equal(t, "app", tails[0].Name())
	assert.Equal(t, "app.logs", tails[0].Tag())
}

func TestNewPluginEngineFromConfig_TOMLValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, "cfg.toml", tomlConfig))
	require.NoError(t, err)

	e, err := NewPluginEngineFromConfig(cfg)
	require.NoError(t, err)
	defer e.Stop()
	assert.Len(t, e.TailInputs(), 1)
}

func TestNewPluginEngineFromConfig_Errors(t *testing.T) {
	tailInput := func() map[string]any {
		return map[string]any{
			"Type": "tail",
			"Glob": "/var/log/*.log",
			"TimestampRule": map[string]any{
				"Length": 19,
				"Format": "2006-01-02 15:04:05",
			},
		}
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "no inputs",
			cfg:     Config{},
			wantErr: "no inputs configured",
		},
		{
			name:    "missing type",
			cfg:     Config{Inputs: []map[string]any{{"Glob": "*.log"}}},
			wantErr: "plugin has no Type",
		},
		{
			name:    "unknown input",
			cfg:     Config{Inputs: []map[string]any{{"Type": "tcp"}}},
			wantErr: "unknown input type: tcp",
		},
		{
			name: "unknown parser",
			cfg: Config{
				Inputs:  []map[string]any{tailInput()},
				Parsers: []map[string]any{{"Type": "logfmt"}},
			},
			wantErr: "unknown parser type: logfmt",
		},
		{
			name: "unknown filter",
			cfg: Config{
				Inputs:  []map[string]any{tailInput()},
				Filters: []map[string]any{{"Type": "lua"}},
			},
			wantErr: "unknown filter type: lua",
		},
		{
			name: "unknown output",
			cfg: Config{
				Inputs:  []map[string]any{tailInput()},
				Outputs: []map[string]any{{"Type": "kafka"}},
			},
			wantErr: "unknown output type: kafka",
		},
		{
			name:    "mistyped key",
			cfg:     Config{Inputs: []map[string]any{{"Type": "tail", "Glob": 42}}},
			wantErr: "invalid plugin config",
		},
		{
			name: "invalid tail",
			cfg: Config{Inputs: []map[string]any{{
				"Type": "tail",
				"Glob": "/var/log/*.log",
			}}},
			wantErr: "no TimestampRule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPluginEngineFromConfig(&tt.cfg)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "app (tail) glob=/var/log/*.log", Describe(map[string]any{
		"Type": "tail",
		"Name": "app",
		"Glob": "/var/log/*.log",
	}))
	assert.Equal(t, "stdout (stdout) match=app*", Describe(map[string]any{
		"Type":  "stdout",
		"Match": "app*",
	}))
	assert.Equal(t, "counter (counter)", Describe(map[string]any{"Type": "counter"}))
}
