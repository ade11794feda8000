// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package oauth

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/axite-ai/mcp-gpt-proxy/pkg/headers"
)

// unreachableBody is returned with a 502 when the upstream cannot be reached.
const unreachableBody = "Upstream OAuth server unreachable"

// route describes how one gateway path maps onto the upstream.
type route struct {
	pattern      string
	upstreamPath string
	// rewrite enables discovery document URL rewriting on JSON bodies.
	rewrite bool
}

// routes lists every OAuth path the gateway fronts.
var routes = []route{
	{pattern: "GET /.well-known/oauth-protected-resource", upstreamPath: "/.well-known/oauth-protected-resource", rewrite: true},
	{pattern: "GET /.well-known/oauth-protected-resource/mcp", upstreamPath: "/.well-known/oauth-protected-resource/mcp"},
	{pattern: "GET /.well-known/oauth-authorization-server", upstreamPath: "/.well-known/oauth-authorization-server", rewrite: true},
	{pattern: "GET /authorize", upstreamPath: "/authorize"},
	{pattern: "POST /authorize", upstreamPath: "/authorize"},
	{pattern: "POST /token", upstreamPath: "/token"},
}

// Gateway relays the OAuth surface of the upstream MCP server.
type Gateway struct {
	// client must not follow redirects; see NewGateway.
	client *http.Client
	// upstreamBase is the upstream OAuth origin, e.g. https://up.example.
	upstreamBase string
	// publicBase overrides the request-derived gateway origin when set.
	publicBase string
	logger     zerolog.Logger
}

// NewGateway builds a Gateway. The client is copied and told not to follow
// redirects so 3xx responses and their Location reach the caller.
func NewGateway(client *http.Client, upstreamBase, publicBase string, logger zerolog.Logger) *Gateway {
	c := *client
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Gateway{
		client:       &c,
		upstreamBase: strings.TrimSuffix(upstreamBase, "/"),
		publicBase:   strings.TrimSuffix(publicBase, "/"),
		logger:       logger,
	}
}

// Handler serves the OAuth routes. GET patterns also serve HEAD; browser
// preflights are answered by the CORS layer.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, rt := range routes {
		mux.HandleFunc(rt.pattern, func(w http.ResponseWriter, r *http.Request) {
			g.forward(w, r, rt)
		})
	}
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Accept"},
		// clients must read the challenge and redirect target
		ExposedHeaders: []string{"WWW-Authenticate", "Location"},
		MaxAge:         600,
	}).Handler(mux)
}

// Paths lists the gateway paths served by Handler, for mounting.
func Paths() []string {
	return []string{"/.well-known/", "/authorize", "/token"}
}

// forward relays r to the upstream path of rt. HEAD becomes an upstream GET
// with the body dropped; discovery JSON is rewritten when rt asks for it.
func (g *Gateway) forward(w http.ResponseWriter, r *http.Request, rt route) {
	start := time.Now()
	event := g.logger.With().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Logger()

	target := g.upstreamBase + rt.upstreamPath
	method := r.Method
	var body io.Reader
	switch method {
	case http.MethodHead, http.MethodGet:
		method = http.MethodGet
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
	default:
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			event.Error().Err(err).Msg("read request body failed")
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		body = bytes.NewReader(payload)
	}
	event = event.With().Str("target", target).Logger()

	upstreamReq, err := http.NewRequestWithContext(r.Context(), method, target, body)
	if err != nil {
		event.Error().Err(err).Msg("build upstream request failed")
		writeUnreachable(w)
		return
	}
	upstreamReq.Header = headers.FilterInbound(r.Header)

	resp, err := g.client.Do(upstreamReq)
	if err != nil {
		event.Error().
			Err(err).
			Dur("duration", time.Since(start)).
			Msg("failed to reach upstream OAuth server")
		writeUnreachable(w)
		return
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			event.Error().Err(closeErr).Msg("close upstream response body failed")
		}
	}()

	copyHeaders(w.Header(), headers.FilterOutbound(resp.Header))

	switch {
	case r.Method == http.MethodHead:
		w.WriteHeader(resp.StatusCode)
	case rt.rewrite && isJSON(resp.Header):
		g.writeRewritten(w, r, resp, event)
	default:
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			event.Error().Err(err).Msg("stream upstream body failed")
			return
		}
	}

	event.Info().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("oauth request proxied")
}

// writeRewritten rewrites a discovery document body. A body that does not
// decode is relayed as received.
func (g *Gateway) writeRewritten(w http.ResponseWriter, r *http.Request, resp *http.Response, event zerolog.Logger) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		event.Error().Err(err).Msg("read discovery document failed")
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	out, err := g.rewriteBody(raw, g.proxyBase(r))
	if err != nil {
		event.Warn().Err(err).Msg("discovery document not rewritable; relaying as received")
		out = raw
	} else {
		w.Header().Set("Content-Type", "application/json")
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(out); err != nil {
		event.Error().Err(err).Msg("write discovery document failed")
	}
}

func (g *Gateway) rewriteBody(raw []byte, proxyBase string) ([]byte, error) {
	doc, err := DecodeDocument(raw)
	if err != nil {
		return nil, err
	}
	return Rewrite(doc, g.upstreamBase, proxyBase).Encode()
}

func (g *Gateway) proxyBase(r *http.Request) string {
	if g.publicBase != "" {
		return g.publicBase
	}
	return headers.RequestOrigin(r)
}

func isJSON(h http.Header) bool {
	return strings.Contains(strings.ToLower(h.Get("Content-Type")), "application/json")
}

func writeUnreachable(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusBadGateway)
	_, _ = io.WriteString(w, unreachableBody)
}

// copyHeaders appends all headers from src into dst.
func copyHeaders(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

// ErrNoUpstream is returned by Validate when the gateway has no upstream origin.
var ErrNoUpstream = errors.New("oauth gateway has no upstream base")

// Validate checks the gateway can build upstream URLs.
func (g *Gateway) Validate() error {
	if g.upstreamBase == "" {
		return ErrNoUpstream
	}
	if !strings.HasPrefix(g.upstreamBase, "http://") && !strings.HasPrefix(g.upstreamBase, "https://") {
		return fmt.Errorf("oauth upstream base %q is not an http(s) origin", g.upstreamBase)
	}
	return nil
}
