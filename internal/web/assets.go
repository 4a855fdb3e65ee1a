// Package web embeds the live event viewer page.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var embeddedFS embed.FS

// Handler serves the viewer page and its assets. Responses are marked
// no-cache so a rebuilt binary is picked up on reload.
func Handler() (http.Handler, error) {
	static, err := fs.Sub(embeddedFS, "static")
	if err != nil {
		return nil, err
	}
	files := http.FileServer(http.FS(static))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, r)
	}), nil
}
