package security

import (
	"net/http"
	"strconv"
	"strings"
)

// PricingVary lists the request headers that change a computed price.
var PricingVary = []string{"X-Currency", "X-Customer-Group", "X-Ship-Country", "X-Bill-Country", "Cookie"}

// Headers configures security and caching headers for pricing responses.
type Headers struct {
	Enable                bool
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
}

// Middleware attaches standard security headers to each response. Prices depend
// on the shopper's session so responses are private and vary on its headers.
func (h Headers) Middleware(next http.Handler) http.Handler {
	vary := strings.Join(PricingVary, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.Enable {
			next.ServeHTTP(w, r)
			return
		}
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "no-referrer")
		headers.Set("Cache-Control", "private, no-store")
		headers.Add("Vary", vary)
		if h.EnableHSTS && r.TLS != nil {
			maxAge := h.HSTSMaxAge
			if maxAge <= 0 {
				maxAge = 31536000
			}
			value := "max-age=" + strconv.Itoa(maxAge)
			if h.HSTSIncludeSubdomains {
				value += "; includeSubDomains"
			}
			headers.Set("Strict-Transport-Security", value)
		}
		next.ServeHTTP(w, r)
	})
}
