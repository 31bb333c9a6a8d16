package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "nonexistent")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("default port = %d", cfg.Port)
	}
	if cfg.Mode != "release" {
		t.Fatalf("default mode = %q", cfg.Mode)
	}
	if cfg.ReadLimit != 32768 {
		t.Fatalf("default read_limit = %d", cfg.ReadLimit)
	}
	if cfg.PingPeriod != 54*time.Second {
		t.Fatalf("default ping_period = %v", cfg.PingPeriod)
	}
	if cfg.RateLimit != 10 || cfg.RateInterval != 10*time.Second {
		t.Fatalf("default rate limit = %d/%v", cfg.RateLimit, cfg.RateInterval)
	}
	if len(cfg.ICEServers) != 1 {
		t.Fatalf("expected a default STUN server, got %d entries", len(cfg.ICEServers))
	}
}

func TestWebRTCICEServersMapping(t *testing.T) {
	cfg := &Config{ICEServers: []ICEServer{
		{URLs: []string{"stun:stun.example.org:3478"}},
		{URLs: []string{"turn:turn.example.org:3478"}, Username: "user", Credential: "pass"},
	}}

	servers := cfg.WebRTCICEServers()
	if len(servers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(servers))
	}
	if servers[0].URLs[0] != "stun:stun.example.org:3478" {
		t.Fatalf("unexpected url %v", servers[0].URLs)
	}
	if servers[0].Credential != nil {
		t.Fatalf("stun server must carry no credential")
	}
	if servers[1].Username != "user" || servers[1].Credential != "pass" {
		t.Fatalf("turn credentials not mapped: %+v", servers[1])
	}
}
