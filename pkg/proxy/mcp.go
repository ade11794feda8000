// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/axite-ai/mcp-gpt-proxy/pkg/headers"
	"github.com/axite-ai/mcp-gpt-proxy/pkg/jsonrpc"
	"github.com/axite-ai/mcp-gpt-proxy/pkg/widget"
)

const (
	msgParseError  = "Parse error"
	msgUnavailable = "MCP server unavailable"
)

// serveMCP handles every method on /mcp.
func (p *Proxy) serveMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		p.serveHealth(w, r)
	case http.MethodPost:
		p.serveRPC(w, r)
	case http.MethodOptions:
		servePreflight(w)
	default:
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

// servePreflight answers CORS preflights for the MCP endpoint.
func servePreflight(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.WriteHeader(http.StatusNoContent)
}

// serveRPC answers widget resource reads locally and relays everything else.
func (p *Proxy) serveRPC(w http.ResponseWriter, r *http.Request) {
	event := p.loggerFor(r)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		event.Error().Err(err).Msg("read request body failed")
		writeRPC(w, http.StatusBadRequest, jsonrpc.NewError(nil, jsonrpc.CodeParseError, msgParseError), event)
		return
	}

	req, err := jsonrpc.ParseRequest(body)
	if err != nil {
		event.Warn().Err(err).Int("body_bytes", len(body)).Msg("rejecting unparsable JSON-RPC body")
		writeRPC(w, http.StatusBadRequest, jsonrpc.NewError(nil, jsonrpc.CodeParseError, msgParseError), event)
		return
	}

	ctx := event.With().Str("rpc_method", req.Method)
	if len(req.ID) > 0 {
		ctx = ctx.RawJSON("rpc_id", req.ID)
	}
	event = ctx.Logger()

	if req.IsResourceRead() {
		if uri := req.ResourceURI(); widget.IsWidgetURI(uri) {
			p.serveWidget(w, r, req, uri, event)
			return
		}
	}

	p.forward(w, r, req, body, event)
}

// serveWidget resolves a widget resource read without involving the upstream.
func (p *Proxy) serveWidget(w http.ResponseWriter, r *http.Request, req *jsonrpc.Request, uri string, event zerolog.Logger) {
	content, err := p.resolver.Resolve(r.Context(), uri, p.rendererBase(r))
	if err != nil {
		event.Warn().Err(err).Str("uri", uri).Msg("widget resource not found")
		writeRPC(w, http.StatusOK, jsonrpc.NewError(req.ID, jsonrpc.CodeResourceNotFound, "Widget not found: "+uri), event)
		return
	}

	resp, err := jsonrpc.NewResult(req.ID, &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{content},
	})
	if err != nil {
		event.Error().Err(err).Str("uri", uri).Msg("encode widget resource failed")
		writeRPC(w, http.StatusInternalServerError, jsonrpc.NewError(req.ID, jsonrpc.CodeInternalError, "Internal error"), event)
		return
	}

	event.Debug().Str("uri", uri).Msg("served widget resource")
	writeRPC(w, http.StatusOK, resp, event)
}

// forward relays the original body to the upstream MCP endpoint and writes
// back its answer, decorating tool results that have a widget.
func (p *Proxy) forward(w http.ResponseWriter, r *http.Request, req *jsonrpc.Request, body []byte, event zerolog.Logger) {
	start := time.Now()
	target := p.cfg.MCPServerURL.String()

	resp, payload, err := p.roundTrip(r, target, body)
	if err != nil {
		var ue *upstreamError
		event.Error().
			Err(err).
			Str("target", target).
			Bool("timeout", errors.As(err, &ue) && ue.Timeout()).
			Dur("duration", time.Since(start)).
			Msg("failed to forward request")
		writeRPC(w, http.StatusServiceUnavailable, jsonrpc.NewError(req.ID, jsonrpc.CodeInternalError, msgUnavailable), event)
		return
	}

	out := headers.FilterOutbound(resp.Header)

	// Failures keep their status, body and challenge untouched.
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		const maxLogBody = 4 * 1024
		event.Warn().
			Int("status", resp.StatusCode).
			Bytes("upstream_body", payload[:min(len(payload), maxLogBody)]).
			Msg("upstream returned error")
		writeRaw(w, resp.StatusCode, out, payload, event)
		return
	}

	// Notifications are acknowledged without a body.
	if len(bytes.TrimSpace(payload)) == 0 {
		writeRaw(w, resp.StatusCode, out, nil, event)
		return
	}

	jsonBody := payload
	if isEventStream(resp.Header) {
		jsonBody, err = firstEventMessage(payload)
		if err != nil {
			event.Error().Err(err).Str("target", target).Msg("upstream event stream carried no response")
			writeRPC(w, http.StatusServiceUnavailable, jsonrpc.NewError(req.ID, jsonrpc.CodeInternalError, msgUnavailable), event)
			return
		}
	}

	if !json.Valid(jsonBody) {
		event.Error().
			Err(&upstreamError{Target: target, Err: errors.New("response body is not JSON")}).
			Str("content_type", resp.Header.Get("Content-Type")).
			Msg("upstream returned a non-JSON body")
		writeRPC(w, http.StatusServiceUnavailable, jsonrpc.NewError(req.ID, jsonrpc.CodeInternalError, msgUnavailable), event)
		return
	}

	if req.IsToolCall() {
		if rpcResp, err := jsonrpc.ParseResponse(jsonBody); err == nil && rpcResp.IsSuccess() {
			jsonBody = p.decorateToolResult(req, rpcResp, jsonBody, event)
		}
	}

	deleteHeader(out, "Content-Type")
	out.Set("Content-Type", "application/json")
	writeRaw(w, resp.StatusCode, out, jsonBody, event)

	event.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request proxied")
}

// roundTrip posts body to target with the allow-listed client headers and
// returns the response with its body fully read.
func (p *Proxy) roundTrip(r *http.Request, target string, body []byte) (*http.Response, []byte, error) {
	upstreamReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, nil, &upstreamError{Target: target, Err: fmt.Errorf("build upstream request: %w", err)}
	}
	upstreamReq.Header = headers.FilterInbound(r.Header)
	if upstreamReq.Header.Get("Content-Type") == "" {
		upstreamReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(upstreamReq)
	if err != nil {
		return nil, nil, &upstreamError{Target: target, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &upstreamError{Target: target, Err: fmt.Errorf("read upstream body: %w", err)}
	}
	return resp, payload, nil
}

// decorateToolResult injects widget metadata into a successful tools/call
// response when the tool has a widget. Any other case returns body unchanged.
func (p *Proxy) decorateToolResult(req *jsonrpc.Request, rpcResp *jsonrpc.Response, body []byte, event zerolog.Logger) []byte {
	tool := req.ToolName()
	mapping, ok := p.registry.ByTool(tool)
	if !ok {
		return body
	}

	result, err := widget.DecodeToolCallResult(rpcResp.Result)
	if err != nil {
		if !errors.Is(err, widget.ErrNotToolResult) {
			event.Warn().Err(err).Str("tool", tool).Msg("tool result not decorated")
		}
		return body
	}

	decorated, err := json.Marshal(widget.Inject(result, mapping, p.cfg.WidgetDomain))
	if err != nil {
		event.Error().Err(err).Str("tool", tool).Msg("encode decorated tool result failed")
		return body
	}
	rpcResp.Result = decorated
	if rpcResp.JSONRPC == "" {
		rpcResp.JSONRPC = jsonrpc.Version
	}

	out, err := json.Marshal(rpcResp)
	if err != nil {
		event.Error().Err(err).Str("tool", tool).Msg("encode decorated response failed")
		return body
	}

	event.Info().
		Str("tool", tool).
		Str("widget", widget.ToWidgetURI(mapping.WidgetPath)).
		Msg("injected widget metadata")
	return out
}

// rendererBase is where widget pages are fetched from.
func (p *Proxy) rendererBase(r *http.Request) string {
	if p.cfg.WidgetBaseURL != "" {
		return p.cfg.WidgetBaseURL
	}
	return headers.RequestOrigin(r)
}

// loggerFor returns the request logger installed by the middleware, or the
// component logger when the handler runs bare.
func (p *Proxy) loggerFor(r *http.Request) zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return p.logger
}

func isEventStream(h http.Header) bool {
	return strings.HasPrefix(strings.ToLower(h.Get("Content-Type")), "text/event-stream")
}

// deleteHeader removes key from h whatever spelling it was stored under.
func deleteHeader(h http.Header, key string) {
	for k := range h {
		if strings.EqualFold(k, key) {
			delete(h, k)
		}
	}
}

func writeRPC(w http.ResponseWriter, status int, resp *jsonrpc.Response, event zerolog.Logger) {
	raw, err := json.Marshal(resp)
	if err != nil {
		event.Error().Err(err).Msg("encode JSON-RPC response failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(raw); err != nil {
		event.Error().Err(err).Msg("write response failed")
	}
}

func writeRaw(w http.ResponseWriter, status int, h http.Header, body []byte, event zerolog.Logger) {
	dst := w.Header()
	for k, vv := range h {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
	w.WriteHeader(status)
	if len(body) == 0 {
		return
	}
	if _, err := w.Write(body); err != nil {
		event.Error().Err(err).Msg("write response failed")
	}
}
