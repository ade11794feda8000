// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package headers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestOrigin(t *testing.T) {
	tests := []struct {
		name  string
		host  string
		proto string
		want  string
	}{
		{name: "plain", host: "gw.example", want: "http://gw.example"},
		{name: "forwarded https", host: "gw.example", proto: "https", want: "https://gw.example"},
		{name: "proxy chain", host: "gw.example:8443", proto: "https, http", want: "https://gw.example:8443"},
		{name: "no host", host: "", want: "http://localhost:3000"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://placeholder/mcp", nil)
			r.Host = tc.host
			if tc.proto != "" {
				r.Header.Set("X-Forwarded-Proto", tc.proto)
			}
			if got := RequestOrigin(r); got != tc.want {
				t.Fatalf("RequestOrigin = %q, want %q", got, tc.want)
			}
		})
	}
}
