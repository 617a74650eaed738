package internal

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/tuannm99/novakey/internal/record"
)

type NovaKeyConfig struct {
	AppName string `mapstructure:"app_name"`

	Storage struct {
		// Workdir holds table metadata. Empty keeps everything in memory.
		Workdir string `mapstructure:"workdir"`
	} `mapstructure:"storage"`

	Log struct {
		Level string `mapstructure:"level"`
		Color string `mapstructure:"color"` // auto|always|never
	} `mapstructure:"log"`

	Tables []TableConfig `mapstructure:"tables"`
}

type ColumnConfig struct {
	Name     string `mapstructure:"name"`
	Type     string `mapstructure:"type"`
	Nullable bool   `mapstructure:"nullable"`
}

type TableConfig struct {
	Name       string         `mapstructure:"name"`
	Columns    []ColumnConfig `mapstructure:"columns"`
	PrimaryKey []string       `mapstructure:"primary_key"`
}

// Schema converts the table definition. The primary-key index name is
// filled in by the engine when the table is created.
func (tc TableConfig) Schema() (record.Schema, error) {
	var s record.Schema
	for _, c := range tc.Columns {
		typ, err := record.ParseColumnType(c.Type)
		if err != nil {
			return record.Schema{}, fmt.Errorf("table %s: %w", tc.Name, err)
		}
		s.Cols = append(s.Cols, record.Column{Name: c.Name, Type: typ, Nullable: c.Nullable})
	}
	if len(tc.PrimaryKey) > 0 {
		s.PrimaryKey = &record.PrimaryKey{Columns: append([]string(nil), tc.PrimaryKey...)}
	}
	return s, nil
}

// SlogLevel maps Log.Level, defaulting to info.
func (c *NovaKeyConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func LoadConfig(path string) (*NovaKeyConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("app_name", "novakey")
	v.SetDefault("storage.workdir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.color", "auto")

	v.SetEnvPrefix("NOVAKEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg NovaKeyConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
