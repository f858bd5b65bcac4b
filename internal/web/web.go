// Package web holds the single-page browser UI served by the gateway.
package web

import _ "embed"

// Index is the browser UI. It keeps the display name in localStorage and
// talks to POST /api/harmonize.
//
//go:embed static/index.html
var Index []byte
