// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(envServerURL, "")
	t.Setenv(envWidgetsFile, "")
	t.Setenv(envWidgetBaseURL, "")
	t.Setenv(envPublicBaseURL, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.MCPServerURL.String(); got != defaultServerURL {
		t.Fatalf("server url mismatch: %s", got)
	}
	if cfg.ListenAddr != defaultListenAddr {
		t.Fatalf("listen addr mismatch: %s", cfg.ListenAddr)
	}
	if cfg.WidgetDomain != defaultWidgetDomain {
		t.Fatalf("widget domain mismatch: %s", cfg.WidgetDomain)
	}
	if cfg.RequestTimeout != 0 {
		t.Fatalf("expected no request timeout, got %s", cfg.RequestTimeout)
	}
	if len(cfg.Widgets) != 1 || cfg.Widgets[0].ToolName != "example_tool" {
		t.Fatalf("expected built-in example widget, got %+v", cfg.Widgets)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "widgets.yaml")
	content := `
widgets:
  - toolName: get_weather
    widgetPath: widgets/weather
    prefersBorder: false
    csp:
      connect_domains: ["https://api.weather.example"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write widgets file: %v", err)
	}

	t.Setenv(envServerURL, "https://upstream.example/mcp")
	t.Setenv(envWidgetsFile, path)
	t.Setenv(envPublicBaseURL, "https://gw.example/")
	t.Setenv(envRequestTimeout, "3s")
	t.Setenv(envHealthProbe, "true")
	t.Setenv(envLogLevel, "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MCPServerURL.Host != "upstream.example" {
		t.Fatalf("unexpected upstream host: %s", cfg.MCPServerURL.Host)
	}
	if cfg.PublicBaseURL != "https://gw.example" {
		t.Fatalf("public base not trimmed: %s", cfg.PublicBaseURL)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Fatalf("request timeout mismatch: %s", cfg.RequestTimeout)
	}
	if !cfg.HealthProbe {
		t.Fatal("expected health probe enabled")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level not lowered: %s", cfg.LogLevel)
	}
	if len(cfg.Widgets) != 1 {
		t.Fatalf("expected one widget, got %d", len(cfg.Widgets))
	}
	w := cfg.Widgets[0]
	if w.WidgetPath != "/widgets/weather" {
		t.Fatalf("widget path not normalized: %s", w.WidgetPath)
	}
	if w.BorderPreference() {
		t.Fatal("explicit prefersBorder=false was lost")
	}
	if w.CSP == nil || len(w.CSP.ConnectDomains) != 1 {
		t.Fatalf("csp not decoded: %+v", w.CSP)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "relative upstream", env: map[string]string{envServerURL: "/mcp"}},
		{name: "bad public base", env: map[string]string{envPublicBaseURL: "gw.example"}},
		{name: "missing widgets file", env: map[string]string{envWidgetsFile: filepath.Join(t.TempDir(), "nope.yaml")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(envServerURL, "")
			t.Setenv(envWidgetsFile, "")
			t.Setenv(envPublicBaseURL, "")
			t.Setenv(envWidgetBaseURL, "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseWidgetsValidation(t *testing.T) {
	if _, err := ParseWidgets([]byte("widgets:\n  - widgetPath: /a\n")); err == nil {
		t.Fatal("expected missing toolName to fail")
	}
	if _, err := ParseWidgets([]byte("widgets:\n  - toolName: a\n")); err == nil {
		t.Fatal("expected missing widgetPath to fail")
	}
	if _, err := ParseWidgets([]byte("widgets: [")); err == nil {
		t.Fatal("expected malformed YAML to fail")
	}

	ws, err := ParseWidgets([]byte(`{"widgets":[{"toolName":"a","widgetPath":"/a"}]}`))
	if err != nil {
		t.Fatalf("JSON input should parse: %v", err)
	}
	if !ws[0].BorderPreference() {
		t.Fatal("unset prefersBorder should default to true")
	}
}

func TestNormalizeWidgetPath(t *testing.T) {
	tests := map[string]string{
		"":               "",
		"widgets/a":      "/widgets/a",
		"/widgets/a":     "/widgets/a",
		"//widgets/a":    "/widgets/a",
		"  /widgets/b  ": "/widgets/b",
	}
	for in, want := range tests {
		if got := NormalizeWidgetPath(in); got != want {
			t.Errorf("NormalizeWidgetPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWidgetsSchema(t *testing.T) {
	raw, err := WidgetsSchema()
	if err != nil {
		t.Fatalf("WidgetsSchema: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if !strings.Contains(string(raw), "toolName") || !strings.Contains(string(raw), "connect_domains") {
		t.Fatalf("schema misses widget fields: %s", raw)
	}
}
