package httpx

import (
	"net/http"
	"strings"
)

// IsHTMX reports whether the request was initiated by htmx (Hx-Request: true).
func IsHTMX(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Hx-Request"), "true")
}

// SetHXRedirect instructs htmx to redirect the browser to the given URL.
func SetHXRedirect(w http.ResponseWriter, url string) { w.Header().Set("Hx-Redirect", url) }

// hxRedirect answers an htmx request with a client-side redirect. htmx does
// not follow 3xx responses into a full navigation, so the target travels in a
// header on a 200.
func hxRedirect(w http.ResponseWriter, target string) {
	SetHXRedirect(w, target)
	w.WriteHeader(http.StatusOK)
}
