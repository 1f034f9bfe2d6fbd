// Package config reads service settings from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"marker-animator/internal/animator"
)

type Config struct {
	RoutesSource string `validate:"oneof=file postgres"`
	RoutesFile   string `validate:"required_if=RoutesSource file"`

	DatabaseURL string `validate:"required_if=RoutesSource postgres"`
	// City selects the newest imported GTFS database whose name contains it.
	City string
	// TripIDs to animate; when empty, trips active today are used.
	TripIDs          []string
	ActiveTripsLimit int `validate:"gte=0"`
	Location         *time.Location

	Publisher    string `validate:"oneof=nats mqtt"`
	NATSURL      string `validate:"required_if=Publisher nats"`
	MQTTURL      string `validate:"required_if=Publisher mqtt"`
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	SubjectPrefix      string
	LogPublishSubjects bool
	OutboxSize         int `validate:"gt=0"`

	FrameInterval   time.Duration `validate:"gt=0"`
	SpeedMultiplier float64       `validate:"gt=0"`
	DefaultLoop     bool
	DefaultEasing   string

	// MetricsAddr like ":9102". Empty disables the metrics server.
	MetricsAddr string
}

var validate = validator.New()

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		RoutesSource:  strings.ToLower(getenvDefault("ROUTES_SOURCE", "file")),
		RoutesFile:    getenvDefault("ROUTES_FILE", "routes.yaml"),
		City:          firstNonEmpty(os.Getenv("CITY"), os.Getenv("CITY_NAME")),
		TripIDs:       splitList(os.Getenv("TRIP_IDS")),
		Publisher:     strings.ToLower(getenvDefault("PUBLISHER", "nats")),
		NATSURL:       getenvDefault("NATS_URL", "nats://127.0.0.1:4222"),
		MQTTURL:       getenvDefault("MQTT_URL", "tcp://127.0.0.1:1883"),
		MQTTClientID:  os.Getenv("MQTT_CLIENT_ID"),
		MQTTUsername:  os.Getenv("MQTT_USERNAME"),
		MQTTPassword:  os.Getenv("MQTT_PASSWORD"),
		SubjectPrefix: getenvDefault("SUBJECT_PREFIX", "markers"),
		DefaultEasing: getenvDefault("DEFAULT_EASING", "linear"),
		MetricsAddr:   os.Getenv("METRICS_ADDR"),
	}
	cfg.DatabaseURL = databaseURL(cfg.City != "")

	var err error
	if cfg.FrameInterval, err = millisEnv("FRAME_INTERVAL_MS", 50); err != nil {
		return nil, err
	}
	if cfg.OutboxSize, err = intEnv("OUTBOX_SIZE", 1024); err != nil {
		return nil, err
	}
	if cfg.ActiveTripsLimit, err = intEnv("ACTIVE_TRIPS_LIMIT", 50); err != nil {
		return nil, err
	}

	if v := os.Getenv("SPEED_MULTIPLIER"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid SPEED_MULTIPLIER: %q", v)
		}
		cfg.SpeedMultiplier = f
	} else {
		cfg.SpeedMultiplier = 1.0
	}

	cfg.DefaultLoop = boolEnv("DEFAULT_LOOP")
	cfg.LogPublishSubjects = boolEnv("LOG_PUBLISH_SUBJECTS")

	if tz := os.Getenv("TZ"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	} else {
		cfg.Location = time.Local
	}

	if _, err := animator.Easing(cfg.DefaultEasing); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_EASING: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// databaseURL prefers DATABASE_URL / PG_DSN, else builds a DSN from the
// libpq PG* variables. With a city the base database defaults to postgres.
func databaseURL(city bool) string {
	if dsn := firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")); dsn != "" {
		return dsn
	}
	name := os.Getenv("PGDATABASE")
	if name == "" && city {
		name = "postgres"
	}
	if name == "" {
		return ""
	}
	userinfo := urlEscape(getenvDefault("PGUSER", "postgres"))
	if pass := os.Getenv("PGPASSWORD"); pass != "" {
		userinfo += ":" + urlEscape(pass)
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s",
		userinfo,
		getenvDefault("PGHOST", "127.0.0.1"),
		getenvDefault("PGPORT", "5432"),
		name,
		getenvDefault("PGSSLMODE", "disable"),
	)
}

func millisEnv(k string, def int) (time.Duration, error) {
	ms, err := intEnv(k, def)
	if err != nil {
		return 0, err
	}
	if ms <= 0 {
		return 0, fmt.Errorf("invalid %s: %d", k, ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func intEnv(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", k, v)
	}
	return n, nil
}

func boolEnv(k string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	r := strings.NewReplacer("%", "%25", "@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
