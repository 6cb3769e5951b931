package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate checks the configuration before the daemon starts.
func (c Config) Validate() error {
	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("params: %w", err)
	}
	if _, err := c.MilestoneSchedule(); err != nil {
		return fmt.Errorf("milestones: %w", err)
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr must be set")
	}
	if c.Server.VotingPeriod < 0 {
		return fmt.Errorf("server.voting_period must be >= 0, got %s", c.Server.VotingPeriod)
	}

	if c.Oracle.URL != "" {
		if c.Oracle.Timeout <= 0 {
			return fmt.Errorf("oracle.timeout must be > 0, got %s", c.Oracle.Timeout)
		}
	} else {
		if !(c.Oracle.PriceUSD > 0) || math.IsInf(c.Oracle.PriceUSD, 0) {
			return fmt.Errorf("oracle.price_usd must be a finite value > 0, got %v", c.Oracle.PriceUSD)
		}
		if !(c.Oracle.Supply >= 0) || math.IsInf(c.Oracle.Supply, 0) {
			return fmt.Errorf("oracle.circulating_supply must be a finite value >= 0, got %v", c.Oracle.Supply)
		}
	}

	switch c.Journal.Driver {
	case "":
	case "sqlite", "postgres":
		if c.Journal.DSN == "" {
			return fmt.Errorf("journal.dsn must be set for driver %q", c.Journal.Driver)
		}
	default:
		return fmt.Errorf("journal.driver must be 'sqlite', 'postgres' or empty, got %q", c.Journal.Driver)
	}

	if c.NATS.URL != "" && strings.TrimSpace(c.NATS.Subject) == "" {
		return fmt.Errorf("nats.subject must be set when nats.url is set")
	}

	for name, spec := range map[string]string{
		"schedule.poll_votes":   c.Schedule.PollVotes,
		"schedule.expire_votes": c.Schedule.ExpireVotes,
	} {
		if spec == "" {
			continue
		}
		if _, err := cronParser.Parse(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json', got %q", c.Log.Format)
	}
	return nil
}
