package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"net/netip"

	"github.com/go-chi/chi/v5"
)

// RegisterPprof mounts /debug/pprof behind an allowlist of CIDRs. With no
// valid CIDR nothing is mounted.
func RegisterPprof(r chi.Router, allowedCIDRs []string, logger *slog.Logger) bool {
	prefixes := parsePrefixes(allowedCIDRs, logger)
	if len(prefixes) == 0 {
		return false
	}

	r.Group(func(r chi.Router) {
		r.Use(ipAllowlist(prefixes, logger))
		r.HandleFunc("/debug/pprof/*", pprof.Index)
		r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		r.HandleFunc("/debug/pprof/profile", pprof.Profile)
		r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		r.HandleFunc("/debug/pprof/trace", pprof.Trace)
	})
	return true
}

func parsePrefixes(cidrs []string, logger *slog.Logger) []netip.Prefix {
	var out []netip.Prefix
	for _, cidr := range cidrs {
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			logger.Warn("invalid allowlist CIDR, skipping", slog.String("cidr", cidr), slog.String("error", err.Error()))
			continue
		}
		out = append(out, p.Masked())
	}
	return out
}

func ipAllowlist(prefixes []netip.Prefix, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if addr, err := netip.ParseAddr(host); err == nil {
				addr = addr.Unmap()
				for _, p := range prefixes {
					if p.Contains(addr) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			logger.Warn("access denied by IP allowlist", slog.String("ip", host), slog.String("path", r.URL.Path))
			writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "access restricted by IP allowlist")
		})
	}
}
