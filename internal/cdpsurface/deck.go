package cdpsurface

import (
	_ "embed"
	"net/http"
)

//go:embed deck.html
var deckHTML []byte

// PagePath is where the HTTP API mounts the deck page.
const PagePath = "/deck"

// PageHandler serves the deck page the browser tab loads.
func PageHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(deckHTML)
	})
}
