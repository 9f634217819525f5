package utils

import (
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"
)

// fallbackClientIP keys requests whose origin cannot be parsed, so the rate
// limiter still buckets them together.
const fallbackClientIP = "0.0.0.0"

// ExtractClientIP resolves the visitor's address for rate limiting and
// request logs. The first valid X-Forwarded-For hop wins, then X-Real-IP,
// then the socket peer. IPv4-mapped IPv6 addresses are unmapped so one
// visitor never lands in two limiter buckets.
func ExtractClientIP(c *gin.Context) string {
	for _, hop := range strings.Split(c.GetHeader("X-Forwarded-For"), ",") {
		if addr, ok := parseAddr(hop); ok {
			return addr
		}
	}
	if addr, ok := parseAddr(c.GetHeader("X-Real-IP")); ok {
		return addr
	}
	if ap, err := netip.ParseAddrPort(c.Request.RemoteAddr); err == nil {
		return ap.Addr().Unmap().String()
	}
	if addr, ok := parseAddr(c.Request.RemoteAddr); ok {
		return addr
	}
	return fallbackClientIP
}

func parseAddr(raw string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}
