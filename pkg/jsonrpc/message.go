// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package jsonrpc models the JSON-RPC 2.0 envelopes the gateway inspects.
// Ids and payloads stay as raw JSON so anything not intercepted round-trips
// byte for byte.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the only protocol tag the gateway emits.
const Version = "2.0"

// Error codes used by the gateway.
const (
	CodeParseError       = -32700
	CodeInternalError    = -32603
	CodeResourceNotFound = -32002
)

// MCP methods the gateway intercepts.
const (
	MethodToolsCall     = "tools/call"
	MethodResourcesRead = "resources/read"
)

// ErrParse reports a body that is not a JSON-RPC request object.
var ErrParse = errors.New("parse error")

// Request is an inbound JSON-RPC request or notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC response. ID is written as null when unset.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the error member of a Response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// ToolCallParams is the subset of tools/call params the gateway reads.
type ToolCallParams struct {
	Name string `json:"name"`
}

// ResourceReadParams is the subset of resources/read params the gateway reads.
type ResourceReadParams struct {
	URI string `json:"uri"`
}

// ParseRequest decodes body. Only malformed JSON is reported as ErrParse. A
// well-formed body that is not a single request object, such as a batch,
// yields a zero Request that matches no intercepted method.
func ParseRequest(body []byte) (*Request, error) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return nil, ErrParse
	}
	var req Request
	if trimmed[0] != '{' {
		return &req, nil
	}
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return &Request{}, nil
	}
	return &req, nil
}

// IsToolCall reports whether the request is a tools/call.
func (r *Request) IsToolCall() bool {
	return r.Method == MethodToolsCall
}

// IsResourceRead reports whether the request is a resources/read.
func (r *Request) IsResourceRead() bool {
	return r.Method == MethodResourcesRead
}

// ToolName returns params.name of a tools/call, or "" when absent.
func (r *Request) ToolName() string {
	var p ToolCallParams
	if len(r.Params) == 0 || json.Unmarshal(r.Params, &p) != nil {
		return ""
	}
	return p.Name
}

// ResourceURI returns params.uri of a resources/read, or "" when absent.
func (r *Request) ResourceURI() string {
	var p ResourceReadParams
	if len(r.Params) == 0 || json.Unmarshal(r.Params, &p) != nil {
		return ""
	}
	return p.URI
}

// NewResult builds a success response carrying result.
func NewResult(id json.RawMessage, result any) (*Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &Response{JSONRPC: Version, ID: id, Result: raw}, nil
}

// NewError builds an error response. A nil id encodes as null.
func NewError(id json.RawMessage, code int, message string) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &Error{Code: code, Message: message},
	}
}

// ParseResponse decodes an upstream response body.
func ParseResponse(body []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

// IsSuccess reports whether the response carries a result and no error.
func (r *Response) IsSuccess() bool {
	return r.Error == nil && len(r.Result) > 0 && !bytes.Equal(r.Result, []byte("null"))
}
