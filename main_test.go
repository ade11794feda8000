// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package main

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestSchemaCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"schema"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("schema command failed: %v", err)
	}

	var schema map[string]any
	if err := json.Unmarshal(out.Bytes(), &schema); err != nil {
		t.Fatalf("schema output is not JSON: %v", err)
	}
	if _, ok := schema["properties"]; !ok {
		t.Fatalf("schema lacks properties: %s", out.String())
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if out.String() != "mcp-gpt-proxy version dev\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestServeRejectsBadUpstreamFlag(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"serve", "--upstream", "not a url"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for invalid upstream")
	}
}
