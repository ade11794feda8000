// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package proxy provides the HTTP gateway that sits between a chat client and
// a remote MCP server. It relays JSON-RPC traffic to the upstream, serves
// widget resources itself, decorates tool results with widget rendering
// metadata, and mounts the OAuth discovery and authorization relay.
package proxy
