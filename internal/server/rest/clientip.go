package rest

import (
	"net"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/cmsauth/internal/netx"
)

// clientIP is the host part of the peer address. When the peer is a trusted
// proxy, the first X-Forwarded-For hop is used instead. Recorded for audit
// only.
func clientIP(r *http.Request, proxies *netx.Proxies) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !proxies.Trusts(host) {
		return host
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return host
}
