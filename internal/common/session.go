package common

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const sessionKey ctxKey = "storefront/session"

// Session holds the storefront selections that drive pricing: display currency,
// customer group and the known addresses' countries. Empty fields are unknown.
type Session struct {
	CurrencyCode    string
	CustomerGroup   string
	ShippingCountry string
	BillingCountry  string
}

// WithSession stores the session on the provided context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom extracts the session from the context if present.
func SessionFrom(ctx context.Context) (Session, bool) {
	v := ctx.Value(sessionKey)
	if v == nil {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}

// SessionMiddleware reads the pricing selections from headers, falling back to cookies.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := Session{
			CurrencyCode:    strings.ToUpper(pick(r, "X-Currency", "currency")),
			CustomerGroup:   pick(r, "X-Customer-Group", "customer_group"),
			ShippingCountry: strings.ToUpper(pick(r, "X-Ship-Country", "ship_country")),
			BillingCountry:  strings.ToUpper(pick(r, "X-Bill-Country", "bill_country")),
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

func pick(r *http.Request, header, cookie string) string {
	if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
		return v
	}
	if c, err := r.Cookie(cookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}
