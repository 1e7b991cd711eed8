// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wscat.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfig_Profiles(t *testing.T) {
	path := writeConfig(t, `
default_endpoint: staging
endpoints:
  staging:
    address: wss://staging.example.com/feed
    protocols: [feed.v2, feed.v1]
    headers:
      Authorization: Bearer dev-token
    handshake_timeout: 10s
  local:
    address: ws://127.0.0.1:8080
    insecure_skip_verify: true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.DefaultEndpoint != "staging" {
		t.Errorf("DefaultEndpoint = %q, want %q", cfg.DefaultEndpoint, "staging")
	}
	staging := cfg.Endpoints["staging"]
	if staging.Address != "wss://staging.example.com/feed" {
		t.Errorf("staging address = %q", staging.Address)
	}
	if len(staging.Protocols) != 2 || staging.Protocols[0] != "feed.v2" {
		t.Errorf("staging protocols = %v, want [feed.v2 feed.v1]", staging.Protocols)
	}
	if staging.Headers["Authorization"] != "Bearer dev-token" {
		t.Errorf("staging Authorization header = %q", staging.Headers["Authorization"])
	}
	if !cfg.Endpoints["local"].InsecureSkipVerify {
		t.Error("local insecure_skip_verify = false, want true")
	}
}

func TestLoadConfig_NoPathIsEmpty(t *testing.T) {
	t.Setenv("WSCAT_CONFIG", "")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if len(cfg.Endpoints) != 0 || cfg.DefaultEndpoint != "" {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfig_EnvironmentVariable(t *testing.T) {
	path := writeConfig(t, `
endpoints:
  echo:
    address: wss://echo.example.com
`)
	t.Setenv("WSCAT_CONFIG", path)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if _, ok := cfg.Endpoints["echo"]; !ok {
		t.Errorf("expected endpoint echo from WSCAT_CONFIG, got %+v", cfg.Endpoints)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name: "missing address",
			config: Config{
				Endpoints: map[string]EndpointConfig{"bad": {}},
			},
			wantErr: "address is required",
		},
		{
			name: "bad duration",
			config: Config{
				Endpoints: map[string]EndpointConfig{
					"bad": {Address: "wss://x.example.com", HandshakeTimeout: "soon"},
				},
			},
			wantErr: "handshake_timeout",
		},
		{
			name: "unknown default endpoint",
			config: Config{
				DefaultEndpoint: "missing",
				Endpoints: map[string]EndpointConfig{
					"present": {Address: "wss://x.example.com"},
				},
			},
			wantErr: "default_endpoint",
		},
		{
			name: "valid",
			config: Config{
				DefaultEndpoint: "present",
				Endpoints: map[string]EndpointConfig{
					"present": {Address: "wss://x.example.com", HandshakeTimeout: "5s"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Resolve(t *testing.T) {
	cfg := &Config{
		DefaultEndpoint: "staging",
		Endpoints: map[string]EndpointConfig{
			"staging": {Address: "wss://staging.example.com"},
			"local":   {Address: "ws://127.0.0.1:8080"},
		},
	}

	endpoint, err := cfg.Resolve("local")
	if err != nil {
		t.Fatalf("Resolve(local) error: %v", err)
	}
	if endpoint.Address != "ws://127.0.0.1:8080" {
		t.Errorf("Resolve(local) address = %q", endpoint.Address)
	}

	endpoint, err = cfg.Resolve("")
	if err != nil {
		t.Fatalf("Resolve(default) error: %v", err)
	}
	if endpoint.Address != "wss://staging.example.com" {
		t.Errorf("Resolve(default) address = %q, want staging", endpoint.Address)
	}

	if _, err := cfg.Resolve("missing"); err == nil {
		t.Error("Resolve(missing) error = nil, want error")
	}

	empty := &Config{}
	endpoint, err = empty.Resolve("")
	if err != nil {
		t.Fatalf("Resolve on empty config error: %v", err)
	}
	if endpoint.Address != "" {
		t.Errorf("Resolve on empty config = %+v, want zero profile", endpoint)
	}
}

func TestEndpointConfig_Dialer(t *testing.T) {
	endpoint := EndpointConfig{
		Address:            "wss://x.example.com",
		Headers:            map[string]string{"Authorization": "Bearer token"},
		HandshakeTimeout:   "10s",
		InsecureSkipVerify: true,
	}

	dialer, err := endpoint.Dialer()
	if err != nil {
		t.Fatalf("Dialer error: %v", err)
	}
	if dialer.HandshakeTimeout != 10*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 10s", dialer.HandshakeTimeout)
	}
	if got := dialer.HTTPHeader.Get("Authorization"); got != "Bearer token" {
		t.Errorf("Authorization header = %q, want %q", got, "Bearer token")
	}
	if dialer.TLSClientConfig == nil || !dialer.TLSClientConfig.InsecureSkipVerify {
		t.Error("TLSClientConfig.InsecureSkipVerify not set")
	}

	zero, err := EndpointConfig{Address: "ws://x.example.com"}.Dialer()
	if err != nil {
		t.Fatalf("Dialer error: %v", err)
	}
	if zero.HandshakeTimeout != 0 || zero.HTTPHeader != nil || zero.TLSClientConfig != nil {
		t.Errorf("zero profile dialer = %+v, want zero dialer", zero)
	}
}
