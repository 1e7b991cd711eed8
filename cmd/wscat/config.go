// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/wsstream"
)

// Config is the wscat configuration: named endpoint profiles, so that
// frequently used servers do not need their address, subprotocols, and
// headers retyped on every invocation.
type Config struct {
	// DefaultEndpoint names the profile used when no address argument
	// and no --endpoint flag is given.
	DefaultEndpoint string `yaml:"default_endpoint"`

	// Endpoints maps profile names to connection settings.
	Endpoints map[string]EndpointConfig `yaml:"endpoints"`
}

// EndpointConfig is one named connection profile.
type EndpointConfig struct {
	// Address is the WebSocket URL (ws, wss, http, or https scheme).
	Address string `yaml:"address"`

	// Protocols are offered during subprotocol negotiation.
	Protocols []string `yaml:"protocols"`

	// Headers are sent with the handshake request, for cookies and
	// authorization.
	Headers map[string]string `yaml:"headers"`

	// HandshakeTimeout bounds the handshake, as a Go duration string
	// such as "10s". Empty means the dialer default.
	HandshakeTimeout string `yaml:"handshake_timeout"`

	// InsecureSkipVerify disables TLS certificate verification for wss
	// addresses.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// LoadConfig loads the configuration from path, or from WSCAT_CONFIG when
// path is empty. No path at all yields an empty configuration rather than
// an error: profiles are optional, the URL argument alone is enough.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("WSCAT_CONFIG")
	}
	if path == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks profile integrity: every endpoint needs an address,
// durations must parse, and the default endpoint must exist.
func (c *Config) Validate() error {
	for name, endpoint := range c.Endpoints {
		if endpoint.Address == "" {
			return fmt.Errorf("endpoint %q: address is required", name)
		}
		if endpoint.HandshakeTimeout != "" {
			if _, err := time.ParseDuration(endpoint.HandshakeTimeout); err != nil {
				return fmt.Errorf("endpoint %q: handshake_timeout: %w", name, err)
			}
		}
	}
	if c.DefaultEndpoint != "" {
		if _, ok := c.Endpoints[c.DefaultEndpoint]; !ok {
			return fmt.Errorf("default_endpoint %q is not defined under endpoints", c.DefaultEndpoint)
		}
	}
	return nil
}

// Resolve returns the named profile, or the default profile when name is
// empty. With no name and no default it returns a zero profile, leaving
// the command line as the only source of settings.
func (c *Config) Resolve(name string) (EndpointConfig, error) {
	if name == "" {
		name = c.DefaultEndpoint
	}
	if name == "" {
		return EndpointConfig{}, nil
	}
	endpoint, ok := c.Endpoints[name]
	if !ok {
		return EndpointConfig{}, fmt.Errorf("endpoint %q is not defined in the config", name)
	}
	return endpoint, nil
}

// Dialer builds the socket dialer for this profile.
func (e EndpointConfig) Dialer() (*wsstream.Dialer, error) {
	dialer := &wsstream.Dialer{}
	if e.HandshakeTimeout != "" {
		timeout, err := time.ParseDuration(e.HandshakeTimeout)
		if err != nil {
			return nil, fmt.Errorf("handshake_timeout: %w", err)
		}
		dialer.HandshakeTimeout = timeout
	}
	if len(e.Headers) > 0 {
		header := make(http.Header, len(e.Headers))
		for name, value := range e.Headers {
			header.Set(name, value)
		}
		dialer.HTTPHeader = header
	}
	if e.InsecureSkipVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return dialer, nil
}
