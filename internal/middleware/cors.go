package middleware

import (
	"net/http"
	"slices"
	"strings"
)

// CORSMiddleware allows browser clients from the given origins. "*" allows any.
// With no origins configured no CORS headers are sent.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowAny := slices.Contains(origins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAny || slices.Contains(origins, origin)) {
				h := w.Header()
				if allowAny {
					h.Set("Access-Control-Allow-Origin", "*")
				} else {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
				h.Set("Access-Control-Allow-Methods", strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", "))
				h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Encoding, Authorization, "+DefaultCredentialHeader)

				if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
