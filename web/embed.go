// Package web carries the built-in site assets: page and fragment
// templates, the MapLibre shim, stylesheets and the bundled base style
// documents. A deployment can override everything with --web-dir.
package web

import "embed"

// FS holds the embedded templates and static assets.
//
//go:embed templates static
var FS embed.FS
