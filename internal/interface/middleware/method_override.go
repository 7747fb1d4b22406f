package middleware

import (
	"net/http"
	"strings"
)

const MethodOverrideField = "_method"

// MethodOverride lets HTML forms, which can only POST, reach PUT, PATCH and DELETE routes
// through a hidden _method field. It wraps the engine because gin picks the route
// before any gin middleware runs.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && isForm(r) {
			if err := r.ParseForm(); err == nil {
				switch m := strings.ToUpper(r.PostForm.Get(MethodOverrideField)); m {
				case http.MethodPut, http.MethodPatch, http.MethodDelete:
					r.Method = m
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded")
}
