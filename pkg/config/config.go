// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envListenAddr             = "MCP_LISTEN_ADDR"
	envServerURL              = "MCP_SERVER_URL"
	envWidgetsFile            = "MCP_WIDGETS_FILE"
	envWidgetBaseURL          = "MCP_WIDGET_BASE_URL"
	envPublicBaseURL          = "MCP_PUBLIC_BASE_URL"
	envWidgetDomain           = "MCP_WIDGET_DOMAIN"
	envHealthProbe            = "MCP_HEALTH_PROBE"
	envHealthPath             = "MCP_HEALTH_PATH"
	envRequestTimeout         = "MCP_REQUEST_TIMEOUT"
	envInsecureSkipVerify     = "MCP_UPSTREAM_INSECURE"
	envLogLevel               = "MCP_LOG_LEVEL"
	envLogPretty              = "MCP_LOG_PRETTY"
	envServerReadTimeout      = "MCP_SERVER_READ_TIMEOUT"
	envServerWriteTimeout     = "MCP_SERVER_WRITE_TIMEOUT"
	envServerIdleTimeout      = "MCP_SERVER_IDLE_TIMEOUT"
	envGracefulShutdown       = "MCP_GRACEFUL_SHUTDOWN"
	defaultListenAddr         = "127.0.0.1:3000"
	defaultServerURL          = "http://localhost:3001/mcp"
	defaultWidgetDomain       = "https://chatgpt.com"
	defaultHealthPath         = "/health"
	defaultLogLevel           = "info"
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 30 * time.Second
	defaultServerIdleTimeout  = 120 * time.Second
	defaultGracefulShutdown   = 10 * time.Second
)

// Config captures runtime settings for the gateway. It is resolved once at
// startup and handed by value to every component that needs it.
type Config struct {
	ListenAddr string
	// MCPServerURL is the upstream MCP endpoint, typically ending in /mcp.
	MCPServerURL *url.URL
	// Widgets binds tool names to widget pages.
	Widgets []WidgetMapping
	// WidgetBaseURL is where widget markup is rendered. Empty means derive it
	// from the inbound request.
	WidgetBaseURL string
	// PublicBaseURL is the gateway origin written into discovery documents.
	// Empty means derive it from the inbound request.
	PublicBaseURL           string
	WidgetDomain            string
	HealthProbe             bool
	HealthPath              string
	RequestTimeout          time.Duration
	InsecureSkipVerify      bool
	LogLevel                string
	LogPretty               bool
	ServerReadTimeout       time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	GracefulShutdownTimeout time.Duration
}

// Load reads configuration from environment variables and validates required values.
func Load() (Config, error) {
	upstream, err := ParseServerURL(getString(envServerURL, defaultServerURL))
	if err != nil {
		return Config{}, err
	}

	widgets := DefaultWidgets()
	if path := strings.TrimSpace(os.Getenv(envWidgetsFile)); path != "" {
		widgets, err = LoadWidgetsFile(path)
		if err != nil {
			return Config{}, err
		}
	}

	widgetBase, err := optionalBaseURL(envWidgetBaseURL)
	if err != nil {
		return Config{}, err
	}
	publicBase, err := optionalBaseURL(envPublicBaseURL)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:              getString(envListenAddr, defaultListenAddr),
		MCPServerURL:            upstream,
		Widgets:                 widgets,
		WidgetBaseURL:           widgetBase,
		PublicBaseURL:           publicBase,
		WidgetDomain:            getString(envWidgetDomain, defaultWidgetDomain),
		HealthProbe:             getBool(envHealthProbe, false),
		HealthPath:              getString(envHealthPath, defaultHealthPath),
		RequestTimeout:          getDuration(envRequestTimeout, 0),
		InsecureSkipVerify:      getBool(envInsecureSkipVerify, false),
		LogLevel:                strings.ToLower(getString(envLogLevel, defaultLogLevel)),
		LogPretty:               getBool(envLogPretty, false),
		ServerReadTimeout:       getDuration(envServerReadTimeout, defaultServerReadTimeout),
		ServerWriteTimeout:      getDuration(envServerWriteTimeout, defaultServerWriteTimeout),
		ServerIdleTimeout:       getDuration(envServerIdleTimeout, defaultServerIdleTimeout),
		GracefulShutdownTimeout: getDuration(envGracefulShutdown, defaultGracefulShutdown),
	}

	return cfg, nil
}

// ParseServerURL validates an upstream MCP endpoint.
func ParseServerURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("MCP_SERVER_URL must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid MCP_SERVER_URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, errors.New("MCP_SERVER_URL must be absolute (scheme://host/path)")
	}
	return u, nil
}

func optionalBaseURL(key string) (string, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
	}
	return strings.TrimSuffix(raw, "/"), nil
}

func getString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
