package security

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the client address used to key rate limits and
// audit events. Forwarding headers are honored only when trustProxy is
// set; otherwise a client could forge X-Forwarded-For to escape per-IP
// limiting. trustedProxyCount is the number of proxies under our
// control counted from the right of the X-Forwarded-For chain (zero
// means one).
func ClientIP(r *http.Request, trustProxy bool, trustedProxyCount int) string {
	if trustProxy {
		if ip := ipFromForwardedFor(r.Header.Get("X-Forwarded-For"), trustedProxyCount); ip != "" {
			return ip
		}
		if ip := r.Header.Get("X-Real-IP"); net.ParseIP(ip) != nil {
			return ip
		}
	}
	return ipFromRemoteAddr(r.RemoteAddr)
}

// ipFromForwardedFor picks the client entry out of an X-Forwarded-For
// chain of the form "client, proxy-n, ..., proxy-1". Entries appended
// by our own proxies sit rightmost; everything left of them is
// attacker-controlled, so the client is the entry immediately left of
// the trusted suffix.
func ipFromForwardedFor(xff string, trustedProxyCount int) string {
	if xff == "" {
		return ""
	}
	ips := strings.Split(xff, ",")

	proxyCount := trustedProxyCount
	if proxyCount == 0 {
		proxyCount = 1
	}
	clientIndex := len(ips) - proxyCount - 1
	if clientIndex < 0 {
		clientIndex = 0
	}

	ip := strings.TrimSpace(ips[clientIndex])
	if net.ParseIP(ip) != nil {
		return ip
	}
	return ""
}

func ipFromRemoteAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
