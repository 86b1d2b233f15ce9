package router

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

type clientIPKey struct{}

// ClientIP is the caller address resolved by the router, or "" outside a
// routed request.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// proxyList holds the networks whose forwarding headers are believed.
type proxyList []netip.Prefix

func parseProxies(cidrs []string) proxyList {
	var out proxyList
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if !strings.Contains(c, "/") {
			if addr, err := netip.ParseAddr(c); err == nil {
				out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
				continue
			}
		}
		p, err := netip.ParsePrefix(c)
		if err != nil {
			slog.Warn("ignoring malformed trusted proxy", "value", c, "error", err)
			continue
		}
		out = append(out, p.Masked())
	}
	return out
}

func (pl proxyList) trusts(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range pl {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// resolve walks X-Forwarded-For from the nearest hop outwards and stops at
// the first address that is not a trusted proxy. Headers from untrusted
// peers are ignored.
func (pl proxyList) resolve(r *http.Request) string {
	peer := remoteAddr(r.RemoteAddr)
	if !peer.IsValid() {
		return r.RemoteAddr
	}
	if !pl.trusts(peer) {
		return peer.String()
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		if !pl.trusts(hop) {
			return hop.Unmap().String()
		}
	}

	if xr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return xr.Unmap().String()
	}
	return peer.String()
}

func remoteAddr(s string) netip.Addr {
	host, _, err := net.SplitHostPort(s)
	if err != nil {
		host = s
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}
	}
	return addr.Unmap()
}

func clientIP(proxies proxyList) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientIPKey{}, proxies.resolve(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
