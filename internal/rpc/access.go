package rpc

import (
	"net"
	"net/http"
	"slices"
)

// accessPolicy decides which clients may reach the wallet API. The zero
// value admits every address and sends no CORS headers.
type accessPolicy struct {
	allowed []*net.IPNet // Empty = allow all.
	origins []string     // Empty = no CORS headers. "*" matches any origin.
}

func newAccessPolicy(allowedIPs, corsOrigins []string) accessPolicy {
	return accessPolicy{
		allowed: parseAllowedIPs(allowedIPs),
		origins: slices.Clone(corsOrigins),
	}
}

// parseAllowedIPs converts IP and CIDR entries into networks. A bare IP
// becomes a single-host network. Unparseable entries are skipped.
func parseAllowedIPs(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		if _, ipNet, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, ipNet)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			continue
		}
		bits := 8 * net.IPv6len
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 8*net.IPv4len
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

// permits reports whether the remote address of r is allowed.
func (p accessPolicy) permits(r *http.Request) bool {
	if len(p.allowed) == 0 {
		return true
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return slices.ContainsFunc(p.allowed, func(n *net.IPNet) bool { return n.Contains(ip) })
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin,
// or "" when the origin is not admitted.
func (p accessPolicy) allowOrigin(origin string) string {
	if origin == "" {
		return ""
	}
	for _, o := range p.origins {
		switch o {
		case "*":
			return "*"
		case origin:
			return origin
		}
	}
	return ""
}

// applyCORS sets the CORS response headers for an admitted origin.
func (p accessPolicy) applyCORS(w http.ResponseWriter, r *http.Request) {
	allow := p.allowOrigin(r.Header.Get("Origin"))
	if allow == "" {
		return
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", allow)
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}
