package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"tandem/application"
	"tandem/utils"
)

// Config は tandem 全体の設定です。ファイルは TOML と YAML のどちらでも書けます。
type Config struct {
	Relay RelayConfig `toml:"relay" yaml:"relay"`
	Sim   SimConfig   `toml:"sim" yaml:"sim"`
	Agent AgentConfig `toml:"agent" yaml:"agent"`
	Log   LogConfig   `toml:"log" yaml:"log"`
	Path  string      `toml:"-" yaml:"-"`
}

type RelayConfig struct {
	Addr          string `toml:"addr" yaml:"addr"`
	Secret        string `toml:"secret" yaml:"secret"`
	QueueSize     int    `toml:"queue_size" yaml:"queue_size"`
	IdleTimeoutMS int    `toml:"idle_timeout_ms" yaml:"idle_timeout_ms"`
}

type SimConfig struct {
	Ticks         int64   `toml:"ticks" yaml:"ticks"`
	Seed          uint64  `toml:"seed" yaml:"seed"`
	Width         float64 `toml:"width" yaml:"width"`
	Height        float64 `toml:"height" yaml:"height"`
	Footprint     float64 `toml:"footprint" yaml:"footprint"`
	SkipRate      float64 `toml:"skip_rate" yaml:"skip_rate"`
	DropRate      float64 `toml:"drop_rate" yaml:"drop_rate"`
	DuplicateRate float64 `toml:"duplicate_rate" yaml:"duplicate_rate"`
	// RelayURL が空でなければ、チーム通信はプロセス内バスではなくリレー経由になります。
	RelayURL string `toml:"relay_url" yaml:"relay_url"`
	Team     string `toml:"team" yaml:"team"`
}

type AgentConfig struct {
	FreshnessWindow int64   `toml:"freshness_window" yaml:"freshness_window"`
	FirePower       float64 `toml:"fire_power" yaml:"fire_power"`
	FireRange       float64 `toml:"fire_range" yaml:"fire_range"`
	RadarGain       float64 `toml:"radar_gain" yaml:"radar_gain"`
}

type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

func Default() Config {
	t := application.DefaultTuning()
	return Config{
		Relay: RelayConfig{
			Addr:          ":9090",
			QueueSize:     64,
			IdleTimeoutMS: 30000,
		},
		Sim: SimConfig{
			Ticks:     2000,
			Seed:      1,
			Width:     800,
			Height:    600,
			Footprint: 36,
			Team:      "tandem",
		},
		Agent: AgentConfig{
			FreshnessWindow: t.FreshnessWindow,
			FirePower:       t.FirePower,
			FireRange:       t.FireRange,
			RadarGain:       t.RadarGain,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load は path の設定を既定値の上に読み込み、環境変数で上書きします。
// path が空なら既定値と環境変数だけを使います。
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		resolved, err := expandHome(path)
		if err != nil {
			return Config{}, err
		}
		data, err := os.ReadFile(resolved)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", resolved, err)
		}
		if err := decode(resolved, data, &cfg); err != nil {
			return Config{}, err
		}
		cfg.Path = resolved
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode toml config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode yaml config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Relay.Addr = utils.GetEnvDefault("RELAY_ADDR", cfg.Relay.Addr)
	cfg.Relay.Secret = utils.GetEnvDefault("RELAY_SECRET", cfg.Relay.Secret)
	cfg.Sim.RelayURL = utils.GetEnvDefault("RELAY_URL", cfg.Sim.RelayURL)
	cfg.Log.Level = utils.GetEnvDefault("LOG_LEVEL", cfg.Log.Level)

	if v := utils.GetEnvDefault("ARENA_SEED", ""); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse ARENA_SEED: %w", err)
		}
		cfg.Sim.Seed = seed
	}
	return nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return filepath.Clean(path), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/")), nil
}

func (c Config) Tuning() application.Tuning {
	return application.Tuning{
		FreshnessWindow: c.Agent.FreshnessWindow,
		FirePower:       c.Agent.FirePower,
		FireRange:       c.Agent.FireRange,
		RadarGain:       c.Agent.RadarGain,
	}
}

func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.Relay.IdleTimeoutMS) * time.Millisecond
}

// LogLevel は Log.Level を slog.Level に変換します。不明な値は Info です。
func (c Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
