// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package widget

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// MIMEType tells the widget host the resource is interactive widget markup.
const MIMEType = "text/html+skybridge"

// maxMarkupBytes caps the rendered page read from the rendering surface.
const maxMarkupBytes = 8 << 20

// fetchTimeout bounds a shared widget fetch once detached from its callers.
const fetchTimeout = 30 * time.Second

// ErrWidgetNotFound reports a widget URI whose markup could not be produced.
var ErrWidgetNotFound = errors.New("widget not found")

// Resolver turns widget URIs into resource contents by fetching the rendered
// page from the rendering surface.
type Resolver struct {
	client   *http.Client
	registry *Registry
	domain   string
	logger   zerolog.Logger
	// group coalesces concurrent fetches of the same page.
	group singleflight.Group
}

// NewResolver builds a Resolver. domain is the widget host origin advertised
// in resource metadata.
func NewResolver(client *http.Client, registry *Registry, domain string, logger zerolog.Logger) *Resolver {
	if domain == "" {
		domain = DefaultDomain
	}
	return &Resolver{
		client:   client,
		registry: registry,
		domain:   domain,
		logger:   logger,
	}
}

// Resolve fetches the markup for uri from rendererBaseURL. Every failure is
// logged and reported as ErrWidgetNotFound.
func (r *Resolver) Resolve(ctx context.Context, uri, rendererBaseURL string) (*mcp.ResourceContents, error) {
	if !IsWidgetURI(uri) {
		return nil, fmt.Errorf("%w: %s", ErrWidgetNotFound, uri)
	}

	widgetPath := WidgetPathOf(uri)
	target := strings.TrimSuffix(rendererBaseURL, "/") + widgetPath

	// The shared fetch outlives any single caller; each caller stops waiting
	// on its own context.
	ch := r.group.DoChan(target, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return r.fetch(fetchCtx, target)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		r.logger.Warn().
			Err(ctx.Err()).
			Str("uri", uri).
			Str("target", target).
			Msg("caller gave up waiting for widget")
		return nil, fmt.Errorf("%w: %s", ErrWidgetNotFound, uri)
	}
	if res.Err != nil {
		r.logger.Error().
			Err(res.Err).
			Str("uri", uri).
			Str("target", target).
			Msg("failed to render widget")
		return nil, fmt.Errorf("%w: %s", ErrWidgetNotFound, uri)
	}

	r.logger.Debug().
		Str("uri", uri).
		Str("target", target).
		Bool("shared", res.Shared).
		Msg("widget rendered")

	return &mcp.ResourceContents{
		URI:      uri,
		MIMEType: MIMEType,
		Text:     res.Val.(string),
		Meta:     r.resourceMeta(widgetPath),
	}, nil
}

// resourceMeta describes a widget resource, using the mapping registered for
// widgetPath when there is one.
func (r *Resolver) resourceMeta(widgetPath string) mcp.Meta {
	meta := mcp.Meta{
		MetaPrefersBorder: true,
		MetaDomain:        r.domain,
	}

	m, ok := r.registry.ByWidgetPath(widgetPath)
	if !ok {
		return meta
	}
	meta[MetaPrefersBorder] = m.BorderPreference()
	if m.Description != "" {
		meta[MetaDescription] = m.Description
	}
	if m.CSP != nil {
		meta[MetaCSP] = m.CSP
	}
	return meta
}

func (r *Resolver) fetch(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build widget request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch widget: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("fetch widget: status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMarkupBytes+1))
	if err != nil {
		return "", fmt.Errorf("read widget body: %w", err)
	}
	if len(body) > maxMarkupBytes {
		return "", fmt.Errorf("widget markup exceeds %d bytes", maxMarkupBytes)
	}
	return string(body), nil
}
