// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 InvoiceMarshal Contributors

// Package config loads and validates the InvoiceMarshal auth service
// configuration. The configuration is resolved once at boot from defaults,
// an optional YAML file, and command-line flags, then treated as immutable
// and injected into components; nothing reads ambient global state.
package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config is the full service configuration.
type Config struct {
	Server   Server   `koanf:"server"`
	Database Database `koanf:"database"`
	Throttle Throttle `koanf:"throttle"`
	Tokens   Tokens   `koanf:"tokens"`
	Gate     Gate     `koanf:"gate"`
	Mail     Mail     `koanf:"mail"`
}

// Server configures the HTTP and observability listeners.
type Server struct {
	HTTPAddr    string `koanf:"http_addr"`
	MetricsAddr string `koanf:"metrics_addr"` // empty = disabled
	LogFormat   string `koanf:"log_format"`   // json or text
	BaseURL     string `koanf:"base_url"`     // external base for verification links
}

// Database configures the PostgreSQL connection.
type Database struct {
	URL string `koanf:"url"`
}

// Throttle configures the two sliding-window admission policies.
type Throttle struct {
	SignupWindowSeconds int `koanf:"signup_window_seconds"`
	SignupMaxFailures   int `koanf:"signup_max_failures"`
	LoginWindowSeconds  int `koanf:"login_window_seconds"`
	LoginMaxFailures    int `koanf:"login_max_failures"`
}

// SignupWindow returns the signup window as a duration.
func (t Throttle) SignupWindow() time.Duration {
	return time.Duration(t.SignupWindowSeconds) * time.Second
}

// LoginWindow returns the login window as a duration.
func (t Throttle) LoginWindow() time.Duration {
	return time.Duration(t.LoginWindowSeconds) * time.Second
}

// Tokens configures verification token issuance.
//
// Password hashing costs are deliberately absent: they are fixed constants
// in the auth package, not configuration.
type Tokens struct {
	VerificationTTLSeconds int `koanf:"verification_ttl_seconds"`
}

// VerificationTTL returns the token TTL as a duration.
func (t Tokens) VerificationTTL() time.Duration {
	return time.Duration(t.VerificationTTLSeconds) * time.Second
}

// Gate configures the protected area and its redirect destinations.
type Gate struct {
	ProtectedPrefixes []string `koanf:"protected_prefixes"`
	AdminPrefix       string   `koanf:"admin_prefix"`
	VerifyPath        string   `koanf:"verify_path"`
	UnauthorizedPath  string   `koanf:"unauthorized_path"`
}

// Mail configures the outbound verification mail.
type Mail struct {
	From string `koanf:"from"`
}

// Default returns the built-in configuration. Policy values follow the
// product defaults: 1h/5 signup throttle, 15m/5 login throttle, 24h token
// TTL, and the dashboard/onboarding/admin protected area.
func Default() Config {
	return Config{
		Server: Server{
			HTTPAddr:    ":8080",
			MetricsAddr: "127.0.0.1:9100",
			LogFormat:   "json",
			BaseURL:     "http://localhost:8080",
		},
		Throttle: Throttle{
			SignupWindowSeconds: 3600,
			SignupMaxFailures:   5,
			LoginWindowSeconds:  900,
			LoginMaxFailures:    5,
		},
		Tokens: Tokens{
			VerificationTTLSeconds: 86400,
		},
		Gate: Gate{
			ProtectedPrefixes: []string{"/dashboard", "/onboarding", "/admin"},
			AdminPrefix:       "/admin",
			VerifyPath:        "/verify-email",
			UnauthorizedPath:  "/unauthorized",
		},
		Mail: Mail{
			From: "no-reply@invoicemarshal.local",
		},
	}
}

// Load resolves the configuration from defaults, the optional YAML file at
// path, and any set flags, then validates it. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}
	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration. It is called once at boot; an invalid
// configuration aborts startup.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.http_addr is required")
	}
	if c.Server.LogFormat != "json" && c.Server.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			With("log_format", c.Server.LogFormat).
			Errorf("server.log_format must be json or text")
	}
	if c.Server.BaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.base_url is required")
	}
	if c.Throttle.SignupWindowSeconds <= 0 || c.Throttle.LoginWindowSeconds <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("throttle windows must be positive")
	}
	if c.Throttle.SignupMaxFailures <= 0 || c.Throttle.LoginMaxFailures <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("throttle failure limits must be positive")
	}
	if c.Tokens.VerificationTTLSeconds <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("tokens.verification_ttl_seconds must be positive")
	}
	if len(c.Gate.ProtectedPrefixes) == 0 {
		return oops.Code("CONFIG_INVALID").Errorf("gate.protected_prefixes cannot be empty")
	}
	return nil
}
