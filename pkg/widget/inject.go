// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package widget

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/axite-ai/mcp-gpt-proxy/pkg/config"
)

// Metadata keys understood by the widget host.
const (
	MetaOutputTemplate = "openai/outputTemplate"
	MetaPrefersBorder  = "openai/widgetPrefersBorder"
	MetaDescription    = "openai/widgetDescription"
	MetaInvoking       = "openai/toolInvocation/invoking"
	MetaInvoked        = "openai/toolInvocation/invoked"
	MetaCSP            = "openai/widgetCSP"
	MetaDomain         = "openai/widgetDomain"

	// DefaultDomain is the widget host origin used when none is configured.
	DefaultDomain = "https://chatgpt.com"

	metaKey    = "_meta"
	contentKey = "content"
)

// ErrNotToolResult reports a result without a content member.
var ErrNotToolResult = errors.New("result is not a tool call result")

// ToolCallResult is a tools/call result whose _meta can be edited while every
// other member is carried through as the upstream encoded it.
type ToolCallResult struct {
	Meta   mcp.Meta
	fields map[string]json.RawMessage
}

// DecodeToolCallResult decodes raw, which must be an object with a content
// member.
func DecodeToolCallResult(raw json.RawMessage) (*ToolCallResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotToolResult, err)
	}
	if _, ok := fields[contentKey]; !ok {
		return nil, ErrNotToolResult
	}

	res := &ToolCallResult{fields: fields}
	if metaRaw, ok := fields[metaKey]; ok {
		delete(fields, metaKey)
		if err := json.Unmarshal(metaRaw, &res.Meta); err != nil {
			return nil, fmt.Errorf("decode _meta: %w", err)
		}
	}
	return res, nil
}

// MarshalJSON writes the untouched members plus the current _meta.
func (r *ToolCallResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.fields)+1)
	for k, v := range r.fields {
		out[k] = v
	}
	if len(r.Meta) > 0 {
		out[metaKey] = r.Meta
	}
	return json.Marshal(out)
}

// Inject returns a copy of result whose _meta carries the rendering hints of
// m. Existing keys are kept unless they are among the keys set here.
func Inject(result *ToolCallResult, m config.WidgetMapping, domain string) *ToolCallResult {
	if domain == "" {
		domain = DefaultDomain
	}

	meta := make(mcp.Meta, len(result.Meta)+7)
	maps.Copy(meta, result.Meta)

	meta[MetaOutputTemplate] = ToWidgetURI(m.WidgetPath)
	meta[MetaPrefersBorder] = m.BorderPreference()
	if m.Description != "" {
		meta[MetaDescription] = m.Description
	}
	if m.InvokingText != "" {
		meta[MetaInvoking] = m.InvokingText
	}
	if m.InvokedText != "" {
		meta[MetaInvoked] = m.InvokedText
	}
	if m.CSP != nil {
		meta[MetaCSP] = m.CSP
	}
	meta[MetaDomain] = domain

	return &ToolCallResult{Meta: meta, fields: maps.Clone(result.fields)}
}
