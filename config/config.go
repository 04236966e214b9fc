package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"heatsim/calculator"
	"heatsim/queue"
	"heatsim/steel_type"
)

const (
	DefaultPath = "conf/config.ini"
	// 环境变量前缀，优先级高于配置文件
	EnvPrefix = "HEATSIM_"
)

type Config struct {
	Addr      string // HTTP 监听地址
	DBPath    string // sqlite 文件
	LogLevel  string
	LogFormat string // text | json
}

// Load reads .env, then the ini file at path (HEATSIM_CONFIG or the default
// when path is empty), pushes each section into its package and applies
// HEATSIM_* overrides. A missing default file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.WithError(err).Debug(".env 未加载")
	}

	explicit := path != ""
	if !explicit {
		if path = os.Getenv(EnvPrefix + "CONFIG"); path != "" {
			explicit = true
		} else {
			path = DefaultPath
		}
	}

	file, err := ini.Load(path)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		log.WithField("path", path).Warn("配置文件不存在，使用默认配置")
		file = ini.Empty()
	default:
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	cfg := FromFile(file)
	cfg.applyEnv()
	return cfg, nil
}

// FromFile loads every package section from an already parsed file.
func FromFile(file *ini.File) *Config {
	calculator.LoadCfg(file)
	steel_type.LoadCfg(file)
	queue.LoadCfg(file)

	return &Config{
		Addr:      file.Section("server").Key("Addr").MustString(":9000"),
		DBPath:    file.Section("database").Key("Path").MustString("heatsim.db"),
		LogLevel:  file.Section("log").Key("Level").MustString("info"),
		LogFormat: file.Section("log").Key("Format").MustString("text"),
	}
}

func (c *Config) applyEnv() {
	for key, dst := range map[string]*string{
		"ADDR":       &c.Addr,
		"DB_PATH":    &c.DBPath,
		"LOG_LEVEL":  &c.LogLevel,
		"LOG_FORMAT": &c.LogFormat,
	} {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
}

// SetupLogging configures the standard logrus logger.
func (c *Config) SetupLogging() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	switch c.LogFormat {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
