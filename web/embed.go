package web

import "embed"

// StaticFS embeds the dashboard client (html/js/css).
//
//go:embed static
var StaticFS embed.FS
