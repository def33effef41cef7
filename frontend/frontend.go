// Package frontend provides the embedded web page served by "cartracker serve".
package frontend

import "embed"

// Files contains the embedded web frontend under dist/.
//
//go:embed dist/*
var Files embed.FS
