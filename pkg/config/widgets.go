// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// WidgetMapping binds an MCP tool to the widget page rendered for its results.
type WidgetMapping struct {
	ToolName      string `yaml:"toolName" json:"toolName" jsonschema:"required,description=Name of the MCP tool to enhance"`
	WidgetPath    string `yaml:"widgetPath" json:"widgetPath" jsonschema:"required,description=Path of the widget page (e.g. /widgets/weather)"`
	Description   string `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"description=Description the model sees for the widget"`
	PrefersBorder *bool  `yaml:"prefersBorder,omitempty" json:"prefersBorder,omitempty" jsonschema:"description=Render the widget with a border (default true)"`
	InvokingText  string `yaml:"invokingText,omitempty" json:"invokingText,omitempty" jsonschema:"description=Status text shown while the tool runs"`
	InvokedText   string `yaml:"invokedText,omitempty" json:"invokedText,omitempty" jsonschema:"description=Status text shown after the tool completes"`
	CSP           *CSP   `yaml:"csp,omitempty" json:"csp,omitempty" jsonschema:"description=Content security policy for the widget"`
}

// CSP lists the origins a widget may reach.
type CSP struct {
	ConnectDomains  []string `yaml:"connect_domains,omitempty" json:"connect_domains,omitempty"`
	ResourceDomains []string `yaml:"resource_domains,omitempty" json:"resource_domains,omitempty"`
}

// BorderPreference returns PrefersBorder, defaulting to true.
func (m WidgetMapping) BorderPreference() bool {
	if m.PrefersBorder == nil {
		return true
	}
	return *m.PrefersBorder
}

// WidgetsFile is the on-disk layout of MCP_WIDGETS_FILE.
type WidgetsFile struct {
	Widgets []WidgetMapping `yaml:"widgets" json:"widgets" jsonschema:"required,description=Tool to widget mappings"`
}

// DefaultWidgets is used when no widgets file is configured.
func DefaultWidgets() []WidgetMapping {
	border := true
	return []WidgetMapping{
		{
			ToolName:      "example_tool",
			WidgetPath:    "/widgets/example",
			Description:   "Example widget demonstrating data binding",
			PrefersBorder: &border,
			InvokingText:  "Loading...",
			InvokedText:   "Ready",
		},
	}
}

// LoadWidgetsFile reads a YAML widgets file. JSON is accepted too since it is
// a subset of YAML.
func LoadWidgetsFile(path string) ([]WidgetMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading widgets file: %w", err)
	}
	return ParseWidgets(data)
}

// ParseWidgets decodes widgets file content and normalizes widget paths to a
// leading slash.
func ParseWidgets(data []byte) ([]WidgetMapping, error) {
	var file WidgetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing widgets YAML: %w", err)
	}
	for i := range file.Widgets {
		w := &file.Widgets[i]
		w.ToolName = strings.TrimSpace(w.ToolName)
		w.WidgetPath = NormalizeWidgetPath(w.WidgetPath)
		if w.ToolName == "" {
			return nil, fmt.Errorf("widgets[%d]: toolName is required", i)
		}
		if w.WidgetPath == "" {
			return nil, fmt.Errorf("widgets[%d] (%s): widgetPath is required", i, w.ToolName)
		}
	}
	return file.Widgets, nil
}

// NormalizeWidgetPath roots p with a single leading slash. Empty stays empty.
func NormalizeWidgetPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return "/" + strings.TrimLeft(p, "/")
}

// WidgetsSchema renders the JSON Schema of the widgets file.
func WidgetsSchema() ([]byte, error) {
	reflector := &jsonschema.Reflector{
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(&WidgetsFile{})
	schema.Title = "mcp-gpt-proxy widgets file"
	return json.MarshalIndent(schema, "", "  ")
}
