package middleware

import (
	"net/http"
	"net/netip"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RealIP rewrites RemoteAddr from X-Real-IP or X-Forwarded-For only when the
// connection comes from one of the trusted proxies. Anyone else keeps their
// socket address, so the rate limiter cannot be dodged by forging headers.
func RealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		forwarded := chiMiddleware.RealIP(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if fromTrustedProxy(r.RemoteAddr, trusted) {
				forwarded.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func fromTrustedProxy(remoteAddr string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	peer, err := netip.ParseAddrPort(remoteAddr)
	if err != nil {
		return false
	}
	addr := peer.Addr().Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
