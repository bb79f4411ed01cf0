// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file sets the browser-facing security headers for the marketplace API.
// The API serves JSON only, so no CSP is emitted; HSTS is opt-in because the
// deployment may terminate TLS at a proxy and speak plain HTTP internally.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions selects which optional headers SecurityHeaders emits.
//
// EnableHSTS must stay off unless traffic is HTTPS end to end, proxy hop
// included; the header is only written for requests that actually arrived
// over HTTPS. NoStore marks responses uncacheable, which matters for
// endpoints carrying addresses and booking terms. EnablePolicy adds the
// browser feature restrictions (harmless to non-browser clients).
type SecurityOptions struct {
	EnableHSTS   bool
	HSTSMaxAge   time.Duration // defaults to 180 days when <= 0
	NoStore      bool
	EnablePolicy bool
}

// SecurityHeaders returns a middleware that stamps every response with a
// conservative header set:
//
//	X-Content-Type-Options: nosniff
//	X-Frame-Options: DENY
//	Referrer-Policy: no-referrer
//
// plus, per SecurityOptions, Permissions-Policy restrictions, no-store cache
// directives, and Strict-Transport-Security. When the request carries an
// X-Request-ID it is added to Access-Control-Expose-Headers so browser
// clients can surface the correlation id in bug reports.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		// Never advertise HSTS on a plain-HTTP response.
		if opt.EnableHSTS && viaHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if rid := h.Get("X-Request-ID"); rid != "" {
			const hdr = "Access-Control-Expose-Headers"
			switch cur := h.Get(hdr); {
			case cur == "":
				h.Set(hdr, "X-Request-ID")
			case !strings.Contains(cur, "X-Request-ID"):
				h.Set(hdr, cur+", X-Request-ID")
			}
		}

		c.Next()
	}
}

// viaHTTPS reports whether the request used HTTPS, either terminated here
// (r.TLS set) or at a proxy that recorded X-Forwarded-Proto.
func viaHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
