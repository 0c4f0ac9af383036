package utils

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetRealIP extracts the client IP for audit records. X-Real-IP wins when it
// carries a public address, then the first public entry in X-Forwarded-For,
// then gin's ClientIP for direct connections.
func GetRealIP(c *gin.Context) string {
	if real := strings.TrimSpace(c.Request.Header.Get("X-Real-IP")); real != "" {
		if ip := net.ParseIP(real); ip != nil && !isPrivateIP(ip) {
			return real
		}
	}

	if forwarded := c.Request.Header.Get("X-Forwarded-For"); forwarded != "" {
		entries := strings.Split(forwarded, ",")
		for _, entry := range entries {
			candidate := strings.TrimSpace(entry)
			ip := net.ParseIP(candidate)
			if ip == nil {
				continue
			}
			if !isPrivateIP(ip) {
				return candidate
			}
		}
		// Every hop was private; the first entry is still the closest
		// thing to a client address we have.
		if first := strings.TrimSpace(entries[0]); net.ParseIP(first) != nil {
			return first
		}
	}

	return c.ClientIP()
}

// GetUserAgent extracts the User-Agent header from the request
func GetUserAgent(c *gin.Context) string {
	ua := c.Request.UserAgent()
	if ua == "" {
		return "Unknown"
	}
	return ua
}

func isPrivateIP(ip net.IP) bool {
	return ip != nil && (ip.IsPrivate() || ip.IsLoopback())
}
