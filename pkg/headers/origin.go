// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package headers

import (
	"net/http"
	"strings"
)

const defaultHost = "localhost:3000"

// RequestOrigin rebuilds the public origin the client used to reach the
// gateway, honouring X-Forwarded-Proto from a fronting proxy.
func RequestOrigin(r *http.Request) string {
	scheme := "http"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		// a chain of proxies appends, the first entry is the client's
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	host := r.Host
	if host == "" {
		host = defaultHost
	}
	return scheme + "://" + host
}
