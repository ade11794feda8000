// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package proxy

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/axite-ai/mcp-gpt-proxy/pkg/config"
	"github.com/axite-ai/mcp-gpt-proxy/pkg/oauth"
	"github.com/axite-ai/mcp-gpt-proxy/pkg/widget"
)

// Proxy routes inbound requests to the MCP relay or the OAuth relay.
type Proxy struct {
	// cfg keeps runtime knobs such as the upstream URL and widget mappings.
	cfg config.Config
	// client performs outbound HTTP requests with tuned transport settings.
	client *http.Client
	// registry answers tool and widget path lookups.
	registry *widget.Registry
	// resolver renders widget resources.
	resolver *widget.Resolver
	// oauthBase is the upstream OAuth origin derived from the MCP endpoint.
	oauthBase string
	// logger emits structured logs for observability.
	logger zerolog.Logger
	// handler is the routed, middleware-wrapped entry point.
	handler http.Handler
}

// New constructs a Proxy backed by an http.Client configured with sensible
// connection pooling defaults and the provided runtime configuration.
func New(cfg config.Config) (*Proxy, error) {
	// Build a transport that honours system proxies and keeps connections warm.
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, // nolint:gosec -- opt-in for development scenarios
		},
	}

	client := &http.Client{
		// zero leaves upstream calls bounded only by the transport
		Timeout:   cfg.RequestTimeout,
		Transport: transport,
	}

	return NewWithClient(cfg, client)
}

// NewWithClient constructs a Proxy that sends every outbound request through
// client.
func NewWithClient(cfg config.Config, client *http.Client) (*Proxy, error) {
	if cfg.MCPServerURL == nil {
		return nil, fmt.Errorf("proxy: MCP server URL is required")
	}

	logger := log.With().Str("component", "proxy").Logger()
	registry := widget.NewRegistry(cfg.Widgets, log.With().Str("component", "widgets").Logger())
	oauthBase := oauth.ExtractBase(cfg.MCPServerURL.String())

	gateway := oauth.NewGateway(client, oauthBase, cfg.PublicBaseURL, log.With().Str("component", "oauth").Logger())
	if err := gateway.Validate(); err != nil {
		return nil, fmt.Errorf("proxy: %w", err)
	}

	p := &Proxy{
		cfg:       cfg,
		client:    client,
		registry:  registry,
		resolver:  widget.NewResolver(client, registry, cfg.WidgetDomain, log.With().Str("component", "resolver").Logger()),
		oauthBase: oauthBase,
		logger:    logger,
	}
	p.handler = p.routes(gateway.Handler())

	return p, nil
}

// ServeHTTP dispatches to the routed handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// Registry exposes the widget mappings in effect.
func (p *Proxy) Registry() *widget.Registry {
	return p.registry
}

// routes mounts the MCP endpoint and the OAuth relay behind the request
// middleware.
func (p *Proxy) routes(oauthHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", p.serveMCP)
	for _, path := range oauth.Paths() {
		mux.Handle(path, oauthHandler)
	}
	return p.withRequestContext(mux)
}
