// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package widget

import (
	"github.com/rs/zerolog"

	"github.com/axite-ai/mcp-gpt-proxy/pkg/config"
)

// Registry indexes widget mappings by tool name and by widget path. It is
// built once and never mutated, so lookups need no locking.
type Registry struct {
	byTool map[string]config.WidgetMapping
	byPath map[string]config.WidgetMapping
	paths  []string
}

// NewRegistry indexes widgets in order. The first mapping for a tool name or
// widget path wins; later duplicates are logged and ignored.
func NewRegistry(widgets []config.WidgetMapping, logger zerolog.Logger) *Registry {
	r := &Registry{
		byTool: make(map[string]config.WidgetMapping, len(widgets)),
		byPath: make(map[string]config.WidgetMapping, len(widgets)),
	}

	for i, w := range widgets {
		w.WidgetPath = config.NormalizeWidgetPath(w.WidgetPath)
		if w.ToolName == "" || w.WidgetPath == "" {
			logger.Warn().
				Int("index", i).
				Str("tool", w.ToolName).
				Str("widget_path", w.WidgetPath).
				Msg("skipping incomplete widget mapping")
			continue
		}
		if prev, dup := r.byTool[w.ToolName]; dup {
			logger.Warn().
				Str("tool", w.ToolName).
				Str("kept_path", prev.WidgetPath).
				Str("ignored_path", w.WidgetPath).
				Msg("duplicate tool name in widget mappings; keeping first")
			continue
		}
		if prev, dup := r.byPath[w.WidgetPath]; dup {
			logger.Warn().
				Str("widget_path", w.WidgetPath).
				Str("kept_tool", prev.ToolName).
				Str("ignored_tool", w.ToolName).
				Msg("duplicate widget path in widget mappings; keeping first")
			continue
		}
		r.byTool[w.ToolName] = w
		r.byPath[w.WidgetPath] = w
		r.paths = append(r.paths, w.WidgetPath)
	}

	return r
}

// ByTool returns the mapping for a tool name.
func (r *Registry) ByTool(name string) (config.WidgetMapping, bool) {
	m, ok := r.byTool[name]
	return m, ok
}

// ByWidgetPath returns the mapping for a widget path. Paths without a
// leading slash are rooted first.
func (r *Registry) ByWidgetPath(path string) (config.WidgetMapping, bool) {
	m, ok := r.byPath[config.NormalizeWidgetPath(path)]
	return m, ok
}

// AllWidgetPaths lists the registered widget paths in configuration order.
func (r *Registry) AllWidgetPaths() []string {
	return append([]string(nil), r.paths...)
}

// Len reports the number of registered mappings.
func (r *Registry) Len() int {
	return len(r.paths)
}
