package config

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultListenAddr     = ":8082"
	defaultGeocodingURL   = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultLoginRate      = 5
	defaultUpstreamTimout = 10 * time.Second
)

type Config struct {
	SessionSecret []byte
	ListenAddr    string
	MySQLDSN      string

	BackendURL    string
	BackendAPIKey string

	GeocodingURL    string
	GeocodingAPIKey string

	LogLevel slog.Level
	LogFile  string

	LoginRatePerMinute int
	// TrustedProxies are the peers whose forwarding headers name the client.
	TrustedProxies  []netip.Prefix
	UpstreamTimeout time.Duration
}

// Load reads the env file named by START (default .env) when present and
// exits the process if the environment is incomplete.
func Load() *Config {
	file := os.Getenv("START")
	if file == "" {
		file = ".env"
	}
	if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Env file %s: %v", file, err)
	}

	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}
	return cfg
}

// FromEnv builds a Config from getenv. Every missing or malformed key is
// reported in the returned error.
func FromEnv(getenv func(string) string) (*Config, error) {
	var errs []error
	require := func(key string) string {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is not set in environment", key))
		}
		return v
	}
	orDefault := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		SessionSecret:   []byte(require("SESSION_SECRET")),
		MySQLDSN:        require("MYSQL_DSN"),
		BackendURL:      strings.TrimRight(require("BACKEND_URL"), "/"),
		BackendAPIKey:   getenv("BACKEND_API_KEY"),
		ListenAddr:      orDefault("LISTEN_ADDR", defaultListenAddr),
		GeocodingURL:    orDefault("GEOCODING_URL", defaultGeocodingURL),
		GeocodingAPIKey: getenv("GEOCODING_API_KEY"),
		LogFile:         getenv("LOG_FILE"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(orDefault("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	cfg.LoginRatePerMinute = defaultLoginRate
	if v := getenv("LOGIN_RATE_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Errorf("LOGIN_RATE_PER_MINUTE must be a positive integer, got %q", v))
		}
		cfg.LoginRatePerMinute = n
	}

	for _, v := range strings.Split(getenv("TRUSTED_PROXIES"), ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		p, err := parsePrefix(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
			continue
		}
		cfg.TrustedProxies = append(cfg.TrustedProxies, p)
	}

	cfg.UpstreamTimeout = defaultUpstreamTimout
	if v := getenv("UPSTREAM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("UPSTREAM_TIMEOUT must be a positive duration, got %q", v))
		}
		cfg.UpstreamTimeout = d
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parsePrefix accepts a CIDR or a bare address, which is taken as a single host.
func parsePrefix(v string) (netip.Prefix, error) {
	if strings.Contains(v, "/") {
		p, err := netip.ParsePrefix(v)
		if err != nil {
			return netip.Prefix{}, err
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(v)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}
