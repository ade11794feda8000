// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package oauth fronts the upstream OAuth surface: discovery documents are
// rewritten so clients come back to the gateway, authorize and token calls
// are relayed untouched.
package oauth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Document is a flat OAuth discovery document (RFC 8414 / RFC 9728). Only
// top-level strings and arrays of strings are ever rewritten.
type Document map[string]any

// DecodeDocument parses a discovery document, keeping numbers exact.
func DecodeDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode discovery document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("decode discovery document: not an object")
	}
	return doc, nil
}

// Encode writes doc without HTML escaping so URLs stay readable.
func (d Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("encode discovery document: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Rewrite returns a copy of doc where every top-level string, and every
// string element of a top-level array, starting with upstreamBase has that
// prefix replaced by proxyBase. Nested objects are not descended into.
// Applying it twice is a no-op as long as proxyBase does not itself start
// with upstreamBase.
func Rewrite(doc Document, upstreamBase, proxyBase string) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
		if upstreamBase == "" {
			continue
		}
		switch {
		case isRewritableString(v, upstreamBase):
			out[k] = proxyBase + strings.TrimPrefix(v.(string), upstreamBase)
		case isRewritableArray(v):
			out[k] = rewriteArray(v.([]any), upstreamBase, proxyBase)
		}
	}
	return out
}

func isRewritableString(v any, upstreamBase string) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, upstreamBase)
}

func isRewritableArray(v any) bool {
	_, ok := v.([]any)
	return ok
}

func rewriteArray(items []any, upstreamBase, proxyBase string) []any {
	out := make([]any, len(items))
	for i, item := range items {
		if isRewritableString(item, upstreamBase) {
			out[i] = proxyBase + strings.TrimPrefix(item.(string), upstreamBase)
			continue
		}
		out[i] = item
	}
	return out
}

// ExtractBase derives the OAuth origin from the MCP endpoint by dropping a
// trailing /mcp segment: "https://up.example/mcp" -> "https://up.example".
func ExtractBase(mcpEndpointURL string) string {
	u, err := url.Parse(mcpEndpointURL)
	if err != nil || !u.IsAbs() {
		return strings.TrimSuffix(mcpEndpointURL, "/mcp")
	}
	if strings.HasSuffix(u.Path, "/mcp") {
		u.Path = strings.TrimSuffix(u.Path, "/mcp")
		u.RawPath = ""
	}
	return strings.TrimSuffix(u.String(), "/")
}
