// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package headers holds the allow-lists applied to headers crossing the
// gateway in either direction. Anything not listed (cookies, host,
// forwarded-for, session headers) is dropped.
package headers

import (
	"net/http"
	"strings"
)

// inboundAllowed lists the client headers forwarded to the upstream.
var inboundAllowed = map[string]struct{}{
	"authorization": {},
	"content-type":  {},
	"accept":        {},
}

// outboundAllowed lists the upstream headers returned to the client.
// www-authenticate carries OAuth challenges and location carries redirects.
var outboundAllowed = map[string]struct{}{
	"content-type":     {},
	"www-authenticate": {},
	"cache-control":    {},
	"pragma":           {},
	"expires":          {},
	"location":         {},
}

// FilterInbound returns a copy of h holding only the headers an upstream
// request may carry.
func FilterInbound(h http.Header) http.Header {
	return filter(h, inboundAllowed)
}

// FilterOutbound returns a copy of h holding only the headers a downstream
// response may carry.
func FilterOutbound(h http.Header) http.Header {
	return filter(h, outboundAllowed)
}

func filter(src http.Header, allowed map[string]struct{}) http.Header {
	dst := make(http.Header)
	for k, vv := range src {
		if _, ok := allowed[strings.ToLower(k)]; !ok {
			continue
		}
		// keep the key as encountered, map access bypasses canonicalization
		dst[k] = append([]string(nil), vv...)
	}
	return dst
}
