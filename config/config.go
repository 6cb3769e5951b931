// Package config loads the dged daemon configuration from YAML with
// DGE_* environment overrides.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/blockberries/dge/ledger"
	"github.com/blockberries/dge/types"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Params     types.Params      `yaml:"params"`
	Milestones []types.Milestone `yaml:"milestones"`

	Server   ServerConfig   `yaml:"server"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Journal  JournalConfig  `yaml:"journal"`
	NATS     NATSConfig     `yaml:"nats"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	VotingPeriod time.Duration `yaml:"voting_period"`
}

// OracleConfig selects the price and supply source. When URL is set
// the HTTP oracle is used; otherwise PriceUSD and Supply are static.
type OracleConfig struct {
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	PriceUSD float64       `yaml:"price_usd"`
	Supply   float64       `yaml:"circulating_supply"`
}

// JournalConfig selects the SQL audit journal. An empty driver
// disables it.
type JournalConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// NATSConfig enables event publishing when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// ScheduleConfig holds cron specs (with seconds) for the vote sweeps.
// An empty spec disables the job.
type ScheduleConfig struct {
	PollVotes   string `yaml:"poll_votes"`
	ExpireVotes string `yaml:"expire_votes"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		Params:     types.DefaultParams(),
		Milestones: ledger.DefaultSchedule().Milestones(),
		Server: ServerConfig{
			Addr:         ":9090",
			VotingPeriod: 7 * 24 * time.Hour,
		},
		Oracle: OracleConfig{
			Timeout:  10 * time.Second,
			PriceUSD: 1,
		},
		NATS: NATSConfig{
			Subject: "dge.events",
		},
		Schedule: ScheduleConfig{
			PollVotes:   "0 * * * * *",
			ExpireVotes: "30 */5 * * * *",
		},
		Metrics: MetricsConfig{
			Addr: ":9091",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides file values with DGE_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("DGE_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("DGE_VOTING_PERIOD")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DGE_VOTING_PERIOD: %w", err)
		}
		c.Server.VotingPeriod = d
	}
	if v := os.Getenv("DGE_ORACLE_URL"); v != "" {
		c.Oracle.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("DGE_ORACLE_PRICE_USD")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DGE_ORACLE_PRICE_USD: %w", err)
		}
		c.Oracle.PriceUSD = f
	}
	if v := strings.TrimSpace(os.Getenv("DGE_ORACLE_SUPPLY")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DGE_ORACLE_SUPPLY: %w", err)
		}
		c.Oracle.Supply = f
	}
	if v := strings.TrimSpace(os.Getenv("DGE_JOURNAL_DRIVER")); v != "" {
		c.Journal.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("DGE_JOURNAL_DSN"); v != "" {
		c.Journal.DSN = v
	}
	if v := os.Getenv("DGE_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("DGE_NATS_SUBJECT"); v != "" {
		c.NATS.Subject = v
	}
	if v := os.Getenv("DGE_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("DGE_LOG_LEVEL")); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("DGE_LOG_FORMAT")); v != "" {
		c.Log.Format = strings.ToLower(v)
	}
	return nil
}

// MilestoneSchedule builds the configured milestone schedule.
func (c Config) MilestoneSchedule() (ledger.Schedule, error) {
	return ledger.NewSchedule(c.Milestones)
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
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

// Handler returns the slog handler selected by Format, writing to w.
func (l LogConfig) Handler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if strings.EqualFold(l.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
