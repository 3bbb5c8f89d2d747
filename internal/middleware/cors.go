// Package middleware holds the HTTP middleware shared by all routes.
package middleware

import "net/http"

// CORS allows the browser client to reach the API from any origin. Role
// checks in this service are advisory UI gates, so an open CORS policy does
// not widen any security boundary.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Viewer-Nombre, X-Viewer-Apellido, X-Viewer-Role")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
