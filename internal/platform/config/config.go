package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config carries everything main needs to wire the process. Values come from
// environment variables (ROLLCALL_API_ADDR etc.), with an optional .env file
// loaded first for local development.
type Config struct {
	APIAddr  string
	LogLevel string
	LogJSON  bool

	// ControlJWTKey signs/verifies bearer tokens for the session control API.
	ControlJWTKey string

	// DatabaseURL selects the Postgres-backed enrollment store and ledger
	// when set. Empty means in-memory stores (dev/test).
	DatabaseURL string
	// RedisURL selects the Redis ledger variant when set and DatabaseURL
	// is empty.
	RedisURL string

	// KafkaBrokers enables the attendance event publisher when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// RosterPath points at the CSV roster loaded when no database is
	// configured.
	RosterPath string

	// SendgridKey enables the email notifier; empty falls back to console.
	SendgridKey    string
	AlertFromEmail string
	AppName        string

	Session Session
}

// Session bundles the per-session attendance rules handed to the engine.
type Session struct {
	SlotDuration    time.Duration
	PresentWindow   time.Duration
	LateWindow      time.Duration
	NotifyWindow    time.Duration
	SweepInterval   time.Duration
	MatchThreshold  float64
	SessionDuration time.Duration // zero means run until stopped
}

// Load builds a Config from the environment. A .env file in the working
// directory is applied first when present (ignored when absent).
func Load() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("ROLLCALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("control_jwt_key", "dev-secret-change-in-production")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("kafka_brokers", "")
	v.SetDefault("kafka_topic", "rollcall.attendance")
	v.SetDefault("roster_path", "database/students.csv")
	v.SetDefault("sendgrid_key", "")
	v.SetDefault("alert_from_email", "noreply@localhost")
	v.SetDefault("app_name", "Rollcall")

	v.SetDefault("slot_duration", time.Hour)
	v.SetDefault("present_window", 5*time.Minute)
	v.SetDefault("late_window", 10*time.Minute)
	v.SetDefault("notify_window", time.Hour)
	v.SetDefault("sweep_interval", time.Minute)
	v.SetDefault("match_threshold", 0.70)
	v.SetDefault("session_duration", time.Duration(0))

	cfg := Config{
		APIAddr:        v.GetString("api_addr"),
		LogLevel:       v.GetString("log_level"),
		LogJSON:        v.GetBool("log_json"),
		ControlJWTKey:  v.GetString("control_jwt_key"),
		DatabaseURL:    v.GetString("database_url"),
		RedisURL:       v.GetString("redis_url"),
		KafkaTopic:     v.GetString("kafka_topic"),
		RosterPath:     v.GetString("roster_path"),
		SendgridKey:    v.GetString("sendgrid_key"),
		AlertFromEmail: v.GetString("alert_from_email"),
		AppName:        v.GetString("app_name"),
		Session: Session{
			SlotDuration:    v.GetDuration("slot_duration"),
			PresentWindow:   v.GetDuration("present_window"),
			LateWindow:      v.GetDuration("late_window"),
			NotifyWindow:    v.GetDuration("notify_window"),
			SweepInterval:   v.GetDuration("sweep_interval"),
			MatchThreshold:  v.GetFloat64("match_threshold"),
			SessionDuration: v.GetDuration("session_duration"),
		},
	}

	if brokers := v.GetString("kafka_brokers"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if err := cfg.Session.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects rule combinations the decider cannot express.
func (s Session) Validate() error {
	if s.SlotDuration <= 0 {
		return fmt.Errorf("slot_duration must be positive, got %s", s.SlotDuration)
	}
	if s.PresentWindow < 0 || s.LateWindow < s.PresentWindow {
		return fmt.Errorf("window rules invalid: present=%s late=%s", s.PresentWindow, s.LateWindow)
	}
	if s.LateWindow > s.SlotDuration {
		return fmt.Errorf("late_window %s exceeds slot_duration %s", s.LateWindow, s.SlotDuration)
	}
	if s.NotifyWindow <= 0 {
		return fmt.Errorf("notify_window must be positive, got %s", s.NotifyWindow)
	}
	if s.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive, got %s", s.SweepInterval)
	}
	if s.MatchThreshold <= 0 || s.MatchThreshold >= 1 {
		return fmt.Errorf("match_threshold must be in (0,1), got %v", s.MatchThreshold)
	}
	return nil
}
