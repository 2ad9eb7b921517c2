package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load("/home/u/.config/robby_reader/session.toml")

	if cfg.SessionFile != "/home/u/.config/robby_reader/session.toml" {
		t.Errorf("expected default session file, got %q", cfg.SessionFile)
	}
	if cfg.AutosaveInterval != 30*time.Second {
		t.Errorf("expected 30s autosave, got %v", cfg.AutosaveInterval)
	}
	if cfg.RestoreWorkers != 4 || cfg.SaveRetries != 3 || cfg.RecentCapacity != 10 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.MinPrintableRatio != 0.85 || cfg.AlphaCheckMinGlyphs != 16 {
		t.Errorf("unexpected garble defaults %v %d", cfg.MinPrintableRatio, cfg.AlphaCheckMinGlyphs)
	}
	if !cfg.PDFFallbackPdftotext {
		t.Error("expected pdftotext fallback on by default")
	}
	if cfg.ListenAddr != "127.0.0.1:8765" {
		t.Errorf("expected loopback listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("expected info level, got %v", cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ROBBY_SESSION_FILE", "/tmp/s.toml")
	t.Setenv("ROBBY_AUTOSAVE_INTERVAL", "5s")
	t.Setenv("ROBBY_RESTORE_WORKERS", "8")
	t.Setenv("ROBBY_SAVE_RETRIES", "0")
	t.Setenv("ROBBY_MIN_PRINTABLE_RATIO", "0.5")
	t.Setenv("ROBBY_PDF_FALLBACK_PDFTOTEXT", "false")
	t.Setenv("ROBBY_LOG_LEVEL", "debug")

	cfg := Load("/unused")
	if cfg.SessionFile != "/tmp/s.toml" {
		t.Errorf("expected %q, got %q", "/tmp/s.toml", cfg.SessionFile)
	}
	if cfg.AutosaveInterval != 5*time.Second || cfg.RestoreWorkers != 8 || cfg.SaveRetries != 0 {
		t.Errorf("unexpected overrides %+v", cfg)
	}
	if cfg.MinPrintableRatio != 0.5 {
		t.Errorf("expected 0.5, got %v", cfg.MinPrintableRatio)
	}
	if cfg.PDFFallbackPdftotext {
		t.Error("expected pdftotext fallback off")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.LogLevel)
	}
}

func TestLoad_ClampsInvalid(t *testing.T) {
	t.Setenv("ROBBY_AUTOSAVE_INTERVAL", "-1s")
	t.Setenv("ROBBY_RESTORE_WORKERS", "0")
	t.Setenv("ROBBY_RECENT_CAPACITY", "notanumber")
	t.Setenv("ROBBY_MIN_PRINTABLE_RATIO", "1.5")
	t.Setenv("ROBBY_LOG_LEVEL", "loud")

	cfg := Load("/s.toml")
	if cfg.AutosaveInterval != 30*time.Second {
		t.Errorf("expected 30s, got %v", cfg.AutosaveInterval)
	}
	if cfg.RestoreWorkers != 4 || cfg.RecentCapacity != 10 {
		t.Errorf("expected defaults, got %d %d", cfg.RestoreWorkers, cfg.RecentCapacity)
	}
	if cfg.MinPrintableRatio != 0.85 {
		t.Errorf("expected 0.85, got %v", cfg.MinPrintableRatio)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("expected info level, got %v", cfg.LogLevel)
	}
}

func TestLoad_GarbleThresholdEdges(t *testing.T) {
	t.Setenv("ROBBY_MIN_PRINTABLE_RATIO", "NaN")
	t.Setenv("ROBBY_ALPHA_CHECK_MIN_GLYPHS", "0")

	cfg := Load("/s.toml")
	if cfg.MinPrintableRatio != 0.85 {
		t.Errorf("expected NaN ratio to fall back to 0.85, got %v", cfg.MinPrintableRatio)
	}
	if cfg.AlphaCheckMinGlyphs != 0 {
		t.Errorf("expected 0 to disable the letter check, got %d", cfg.AlphaCheckMinGlyphs)
	}

	t.Setenv("ROBBY_ALPHA_CHECK_MIN_GLYPHS", "-3")
	if got := Load("/s.toml").AlphaCheckMinGlyphs; got != 16 {
		t.Errorf("expected negative glyph count to fall back to 16, got %d", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"loopback without token", Config{SessionFile: "/s", ListenAddr: "127.0.0.1:8765"}, false},
		{"localhost", Config{SessionFile: "/s", ListenAddr: "localhost:1"}, false},
		{"ipv6 loopback", Config{SessionFile: "/s", ListenAddr: "[::1]:8765"}, false},
		{"public without token", Config{SessionFile: "/s", ListenAddr: "0.0.0.0:8765"}, true},
		{"public with token", Config{SessionFile: "/s", ListenAddr: ":8765", APIToken: "t"}, false},
		{"no session file", Config{ListenAddr: "127.0.0.1:1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}
