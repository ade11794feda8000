// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package widget

import "strings"

const (
	// URIPrefix marks resources served by the gateway itself.
	URIPrefix = "ui://widget/"
	uriSuffix = ".html"
)

// IsWidgetURI reports whether uri names a widget resource.
func IsWidgetURI(uri string) bool {
	return strings.HasPrefix(uri, URIPrefix)
}

// ToWidgetURI maps a widget path to its resource URI:
// "/widgets/weather" -> "ui://widget/widgets/weather.html".
func ToWidgetURI(widgetPath string) string {
	return URIPrefix + strings.TrimPrefix(widgetPath, "/") + uriSuffix
}

// WidgetPathOf is the inverse of ToWidgetURI:
// "ui://widget/widgets/weather.html" -> "/widgets/weather".
func WidgetPathOf(uri string) string {
	p := strings.TrimPrefix(uri, URIPrefix)
	p = strings.TrimSuffix(p, uriSuffix)
	return "/" + p
}
