package middleware

import (
	"net/http"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

type CORSOptions struct {
	// Origins are glob patterns such as "https://*.example.com"; "*" allows any origin.
	Origins     []string
	Methods     []string
	Credentials bool
}

// CORS answers preflight requests and sets the Access-Control headers for allowed
// origins. The request origin is echoed back so credentials keep working.
func CORS(opts CORSOptions) (func(http.Handler) http.Handler, error) {
	patterns := make([]glob.Glob, 0, len(opts.Origins))
	for _, o := range opts.Origins {
		if o == "*" {
			o = "**"
		}
		// '*' stops at dots so "https://*.example.com" matches one subdomain level.
		g, err := glob.Compile(o, '.')
		if err != nil {
			return nil, oops.With("origin", o).Wrapf(err, "invalid CORS origin pattern")
		}
		patterns = append(patterns, g)
	}
	methods := strings.Join(opts.Methods, ", ")

	allowed := func(origin string) bool {
		for _, g := range patterns {
			if g.Match(origin) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			h.Add("Vary", "Origin")
			if !allowed(origin) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Origin", origin)
			if opts.Credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				h.Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}
