// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// healthProbeTimeout bounds the optional upstream probe.
const healthProbeTimeout = 5 * time.Second

// Upstream reachability as reported by the health probe.
const (
	UpstreamHealthy   = "healthy"
	UpstreamDegraded  = "degraded"
	UpstreamUnhealthy = "unhealthy"
)

type healthStatus struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
	Upstream  string `json:"upstream,omitempty"`
}

// serveHealth reports liveness and, when enabled, upstream reachability.
func (p *Proxy) serveHealth(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status:    "active",
		Service:   "MCP GPT Proxy",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	event := p.loggerFor(r)
	if p.cfg.HealthProbe {
		status.Upstream = p.probeUpstream(r.Context(), event)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		event.Error().Err(err).Msg("write health status failed")
	}
}

// probeUpstream GETs the upstream health path: 2xx is healthy, any other
// status degraded, no answer unhealthy.
func (p *Proxy) probeUpstream(ctx context.Context, event zerolog.Logger) string {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	target := p.oauthBase + "/" + strings.TrimPrefix(p.cfg.HealthPath, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		event.Error().Err(err).Str("target", target).Msg("build health probe failed")
		return UpstreamUnhealthy
	}

	resp, err := p.client.Do(req)
	if err != nil {
		event.Warn().Err(&upstreamError{Target: target, Err: err}).Msg("upstream health probe failed")
		return UpstreamUnhealthy
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return UpstreamHealthy
	}
	event.Warn().Int("status", resp.StatusCode).Str("target", target).Msg("upstream health probe degraded")
	return UpstreamDegraded
}
