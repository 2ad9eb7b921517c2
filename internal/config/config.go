package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Session file
	SessionFile      string
	AutosaveInterval time.Duration
	RestoreWorkers   int
	SaveRetries      int
	RecentCapacity   int

	// Garbled-text heuristic
	MinPrintableRatio   float64
	AlphaCheckMinGlyphs int

	// PDF
	PDFFallbackPdftotext bool

	// UI-shell bridge
	ListenAddr string
	APIToken   string

	StatsWindow time.Duration
	LogLevel    slog.Level
}

// Load reads ROBBY_* environment variables. Out-of-range values fall back to
// their defaults. defaultSessionFile is used when ROBBY_SESSION_FILE is unset.
func Load(defaultSessionFile string) Config {
	cfg := Config{
		SessionFile:      envOr("ROBBY_SESSION_FILE", defaultSessionFile),
		AutosaveInterval: envDuration("ROBBY_AUTOSAVE_INTERVAL", 30*time.Second),
		RestoreWorkers:   envInt("ROBBY_RESTORE_WORKERS", 4),
		SaveRetries:      envInt("ROBBY_SAVE_RETRIES", 3),
		RecentCapacity:   envInt("ROBBY_RECENT_CAPACITY", 10),

		MinPrintableRatio:   envFloat("ROBBY_MIN_PRINTABLE_RATIO", 0.85),
		AlphaCheckMinGlyphs: envInt("ROBBY_ALPHA_CHECK_MIN_GLYPHS", 16),

		PDFFallbackPdftotext: envBool("ROBBY_PDF_FALLBACK_PDFTOTEXT", true),

		ListenAddr: envOr("ROBBY_LISTEN_ADDR", "127.0.0.1:8765"),
		APIToken:   os.Getenv("ROBBY_API_TOKEN"),

		StatsWindow: envDuration("ROBBY_STATS_WINDOW", 1*time.Hour),
		LogLevel:    envLevel("ROBBY_LOG_LEVEL", slog.LevelInfo),
	}

	if cfg.AutosaveInterval <= 0 {
		cfg.AutosaveInterval = 30 * time.Second
	}
	if cfg.RestoreWorkers <= 0 {
		cfg.RestoreWorkers = 4
	}
	if cfg.SaveRetries < 0 {
		cfg.SaveRetries = 3
	}
	if cfg.RecentCapacity <= 0 {
		cfg.RecentCapacity = 10
	}
	// The negated form also rejects NaN.
	if !(cfg.MinPrintableRatio > 0 && cfg.MinPrintableRatio <= 1) {
		cfg.MinPrintableRatio = 0.85
	}
	// Zero turns the letter check off.
	if cfg.AlphaCheckMinGlyphs < 0 {
		cfg.AlphaCheckMinGlyphs = 16
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.SessionFile == "" {
		return fmt.Errorf("ROBBY_SESSION_FILE is required when no config directory is available")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("ROBBY_LISTEN_ADDR must not be empty")
	}
	if !isLoopback(c.ListenAddr) && c.APIToken == "" {
		return fmt.Errorf("ROBBY_API_TOKEN is required when listening on %s", c.ListenAddr)
	}
	return nil
}

func isLoopback(addr string) bool {
	host := addr
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		host = addr[:i]
	}
	host = strings.Trim(host, "[]")
	return host == "localhost" || strings.HasPrefix(host, "127.") || host == "::1"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(v)); err == nil {
			return l
		}
	}
	return fallback
}
