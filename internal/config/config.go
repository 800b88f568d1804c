package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Addr           string
	JWTSecret      string
	JWTUser        string
	JWTPassword    string
	TokenTTL       time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string

	SearchTimeout  time.Duration
	CacheTTL       time.Duration
	StreamInterval time.Duration

	ModelServerURL   string
	ModelServerToken string
	RedisAddr        string
	DatabaseURL      string

	// Candidate airline set, in tie-break order.
	Airlines       []string
	Markup         float64
	TotalStops     string
	AdditionalInfo string
	Routes         int
	MaxParallel    int

	DepartureCities   []string
	DestinationCities []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8080")
	v.SetDefault("auth_user", "demo")
	v.SetDefault("auth_pass", "demo123")
	v.SetDefault("token_ttl", "1h")
	v.SetDefault("allowed_origins", "http://localhost:8501")

	v.SetDefault("search_timeout", "10s")
	v.SetDefault("cache_ttl", "10m")
	v.SetDefault("stream_interval", "30s")

	v.SetDefault("model_server_url", "http://127.0.0.1:5000")

	v.SetDefault("airlines", "Jet Airways,IndiGo,Air India,SpiceJet")
	v.SetDefault("markup", 1.08)
	v.SetDefault("total_stops", "non-stop")
	v.SetDefault("additional_info", "No info")
	v.SetDefault("routes", 1)
	v.SetDefault("max_parallel", 8)

	v.SetDefault("departure_cities", "Banglore,Kolkata,Delhi,Chennai,Mumbai")
	v.SetDefault("destination_cities", "New Delhi,Banglore,Cochin,Kolkata,Delhi,Hyderabad")
}

// Load reads .env, the optional config file and the environment, in that order
// of increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("FLIGHTS_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/flights")
	}

	if err := v.ReadInConfig(); err != nil {
		slog.Info("no config file found, using defaults + env vars", "reason", err)
	}

	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	durations := map[string]*time.Duration{}
	cfg := &Config{
		Addr:              v.GetString("addr"),
		JWTSecret:         v.GetString("jwt_secret"),
		JWTUser:           v.GetString("auth_user"),
		JWTPassword:       v.GetString("auth_pass"),
		TLSCertFile:       os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:        os.Getenv("TLS_KEY_FILE"),
		AllowedOrigins:    stringList(v, "allowed_origins"),
		ModelServerURL:    strings.TrimRight(v.GetString("model_server_url"), "/"),
		ModelServerToken:  v.GetString("model_server_token"),
		RedisAddr:         v.GetString("redis_addr"),
		DatabaseURL:       v.GetString("database_url"),
		Airlines:          stringList(v, "airlines"),
		Markup:            v.GetFloat64("markup"),
		TotalStops:        v.GetString("total_stops"),
		AdditionalInfo:    v.GetString("additional_info"),
		Routes:            v.GetInt("routes"),
		MaxParallel:       v.GetInt("max_parallel"),
		DepartureCities:   stringList(v, "departure_cities"),
		DestinationCities: stringList(v, "destination_cities"),
	}
	durations["token_ttl"] = &cfg.TokenTTL
	durations["search_timeout"] = &cfg.SearchTimeout
	durations["cache_ttl"] = &cfg.CacheTTL
	durations["stream_interval"] = &cfg.StreamInterval

	for key, dst := range durations {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("config: bad %s: %w", key, err)
		}
		*dst = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("config: jwt_secret is required")
	}
	if len(c.Airlines) == 0 {
		return fmt.Errorf("config: airlines must list at least one carrier")
	}
	if !(c.Markup > 0) || math.IsInf(c.Markup, 0) {
		return fmt.Errorf("config: markup must be positive, got %v", c.Markup)
	}
	if c.Routes < 1 {
		return fmt.Errorf("config: routes must be at least 1, got %d", c.Routes)
	}
	if c.MaxParallel < 1 {
		return fmt.Errorf("config: max_parallel must be at least 1, got %d", c.MaxParallel)
	}
	if c.StreamInterval <= 0 {
		return fmt.Errorf("config: stream_interval must be positive")
	}
	return nil
}

// stringList accepts either a YAML list or a comma separated string (the env form).
// Viper's own string slice cast splits on whitespace, which breaks names like "Air India".
func stringList(v *viper.Viper, key string) []string {
	var raw []string
	switch val := v.Get(key).(type) {
	case string:
		raw = strings.Split(val, ",")
	default:
		raw = v.GetStringSlice(key)
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
