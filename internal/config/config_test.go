package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("dialect", "", "")
	fs.String("object", "", "")
	fs.String("output", "", "")
	fs.String("log-level", "", "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDialect, cfg.Dialect)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Empty(t, cfg.File)
	assert.Equal(t, rune(0), cfg.EscapeChar())

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, "exprql.yaml", `
dialect: sqlite
object: User
escape: "!"
schema: schema.yaml
log:
  level: info
`)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "exprql.yaml", cfg.File)
	assert.Equal(t, "sqlite", cfg.Dialect)
	assert.Equal(t, "User", cfg.Object)
	assert.Equal(t, "schema.yaml", cfg.Schema)
	assert.Equal(t, '!', cfg.EscapeChar())
	assert.Equal(t, "info", cfg.Log.Level)

	t.Setenv("EXPRQL_DIALECT", "mssql")
	t.Setenv("EXPRQL_LOG_LEVEL", "debug")
	cfg, err = Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "mssql", cfg.Dialect)
	assert.Equal(t, "debug", cfg.Log.Level)

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--dialect", "mariadb", "--log-level", "error"}))
	cfg, err = Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "mariadb", cfg.Dialect)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "User", cfg.Object, "unset flags must not override")
}

func TestLoadExplicitFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(t.TempDir())
	path := writeFile(t, dir, "custom.yml", "output: json\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, path, cfg.File)

	_, err = Load(filepath.Join(dir, "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"dialect":   "dialect: oracle\n",
		"output":    "output: xml\n",
		"escape":    "escape: ab\n",
		"log level": "log:\n  level: loud\n",
		"yaml":      "dialect: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, dir, "exprql.yaml", content)
			_, err := Load(path, nil)
			assert.Error(t, err)
		})
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "log.level", envKey("EXPRQL_LOG_LEVEL"))
	assert.Equal(t, "dialect", envKey("EXPRQL_DIALECT"))
	assert.Equal(t, "log.level", flagKey("log-level"))
}
