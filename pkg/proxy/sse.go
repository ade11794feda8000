// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package proxy

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// errNoEventMessage reports an event stream without a JSON-RPC response.
var errNoEventMessage = errors.New("event stream holds no JSON-RPC response")

// firstEventMessage returns the data of the first server-sent event that is a
// JSON-RPC response or a batch of them. Streamable HTTP servers may answer a POST with a short
// stream instead of a JSON body; requests and notifications the server pushes
// ahead of the response are skipped.
func firstEventMessage(stream []byte) ([]byte, error) {
	scanner := bufio.NewScanner(bytes.NewReader(stream))
	scanner.Buffer(make([]byte, 0, 64*1024), max(len(stream)+1, 64*1024))

	var data []string
	flush := func() []byte {
		defer func() { data = data[:0] }()
		if len(data) == 0 {
			return nil
		}
		payload := []byte(strings.Join(data, "\n"))
		if isResponse(payload) {
			return payload
		}
		return nil
	}

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		switch {
		case line == "":
			if msg := flush(); msg != nil {
				return msg, nil
			}
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if msg := flush(); msg != nil {
		return msg, nil
	}
	return nil, errNoEventMessage
}

func isResponse(payload []byte) bool {
	if trimmed := bytes.TrimSpace(payload); len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Valid(trimmed)
	}
	var probe struct {
		Method string          `json:"method"`
		Result json.RawMessage `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return false
	}
	return probe.Method == "" && (probe.Result != nil || probe.Error != nil)
}
