package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"

	"heatsim/calculator"
	"heatsim/queue"
	"heatsim/steel_type"
)

const sample = `
[server]
Addr = :8088

[database]
Path = /tmp/jobs.db

[queue]
PollInterval = 5s
FailQueuedOnStartup = false

[calculator]
DefaultPreset = coarse

[material]
Solidus = 1480

[log]
Level = debug
Format = json
`

// 测试结束后恢复各包默认值
func writeSample(t *testing.T) string {
	t.Helper()
	t.Cleanup(func() { FromFile(ini.Empty()) })
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeSample(t))
	require.NoError(t, err)

	assert.Equal(t, ":8088", cfg.Addr)
	assert.Equal(t, "/tmp/jobs.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "coarse", calculator.DefaultPreset())
	assert.Equal(t, 1480.0, steel_type.DefaultParameter().SolidPhaseTemperature)

	qc := queue.DefaultConfig()
	assert.Equal(t, 5*time.Second, qc.PollInterval)
	assert.Equal(t, 500*time.Millisecond, qc.ProgressInterval)
	assert.False(t, qc.FailQueuedOnStartup)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HEATSIM_CONFIG", writeSample(t))
	t.Setenv("HEATSIM_ADDR", ":7000")
	t.Setenv("HEATSIM_DB_PATH", "override.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "override.db", cfg.DBPath)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.ini"))
	assert.Error(t, err)

	// 默认路径不存在时使用内置默认值
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "heatsim.db", cfg.DBPath)
	assert.Equal(t, "medium", calculator.DefaultPreset())
}

func TestSetupLogging(t *testing.T) {
	saved := log.GetLevel()
	t.Cleanup(func() {
		log.SetLevel(saved)
		log.SetFormatter(&log.TextFormatter{})
	})

	cfg := &Config{LogLevel: "warn", LogFormat: "json"}
	require.NoError(t, cfg.SetupLogging())
	assert.Equal(t, log.WarnLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	assert.Error(t, (&Config{LogLevel: "loud"}).SetupLogging())
	assert.Error(t, (&Config{LogLevel: "info", LogFormat: "xml"}).SetupLogging())
}
