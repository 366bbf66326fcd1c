// Package frontend holds the static UI shared by the desktop and browser
// shells.
package frontend

import "embed"

//go:embed index.html app.js style.css
var Assets embed.FS
