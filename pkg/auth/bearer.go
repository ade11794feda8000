// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package auth reads the bearer credential a client presents so request logs
// can say who a call was made for. The gateway never verifies or issues
// tokens; the upstream does that.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const bearerPrefix = "bearer "

// Bearer summarizes an Authorization header. Claims come from an unverified
// parse and are only fit for diagnostics.
type Bearer struct {
	Present   bool
	JWT       bool
	Subject   string
	Issuer    string
	ExpiresAt time.Time
}

// Inspect parses an Authorization header value. Opaque tokens yield a Bearer
// with Present set and JWT unset.
func Inspect(authorization string) Bearer {
	authorization = strings.TrimSpace(authorization)
	if len(authorization) <= len(bearerPrefix) || !strings.EqualFold(authorization[:len(bearerPrefix)], bearerPrefix) {
		return Bearer{}
	}
	raw := strings.TrimSpace(authorization[len(bearerPrefix):])
	if raw == "" {
		return Bearer{}
	}

	b := Bearer{Present: true}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return b
	}
	b.JWT = true
	b.Subject, _ = claims.GetSubject()
	b.Issuer, _ = claims.GetIssuer()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		b.ExpiresAt = exp.Time
	}
	return b
}

// Expired reports whether the token carries an expiry before now.
func (b Bearer) Expired(now time.Time) bool {
	return !b.ExpiresAt.IsZero() && b.ExpiresAt.Before(now)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (b Bearer) MarshalZerologObject(e *zerolog.Event) {
	e.Bool("present", b.Present)
	if !b.JWT {
		return
	}
	e.Str("sub", b.Subject).Str("iss", b.Issuer)
	if !b.ExpiresAt.IsZero() {
		e.Time("exp", b.ExpiresAt).Bool("expired", b.Expired(time.Now()))
	}
}
