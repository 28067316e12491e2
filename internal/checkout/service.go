package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/common"
)

// Finalizer prices a cart strictly for checkout.
type Finalizer interface {
	Finalize(ctx context.Context, cartID uuid.UUID, session common.Session) (cart.Summary, error)
}

// Input carries the addresses entered on the checkout form. They override the session's.
type Input struct {
	ShippingCountry string `json:"shipping_country" validate:"omitempty,len=2,alpha"`
	BillingCountry  string `json:"billing_country" validate:"omitempty,len=2,alpha"`
}

// Quote is a fully determined price for a cart, ready for order creation.
type Quote struct {
	ID         uuid.UUID    `json:"quote_id"`
	CartID     uuid.UUID    `json:"cart_id"`
	VatCountry string       `json:"vat_country"`
	VatSource  string       `json:"vat_source"`
	Summary    cart.Summary `json:"summary"`
	CreatedAt  time.Time    `json:"created_at"`
}

// Service produces checkout quotes.
type Service struct {
	Carts  Finalizer
	Logger zerolog.Logger
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Quote finalizes the cart. It fails closed: no VAT fallback, no currency
// degradation, and every stock or availability problem is returned.
func (s *Service) Quote(ctx context.Context, cartID uuid.UUID, session common.Session, in Input) (Quote, error) {
	if s == nil || s.Carts == nil {
		return Quote{}, errors.New("checkout service not configured")
	}
	if c := strings.ToUpper(strings.TrimSpace(in.ShippingCountry)); c != "" {
		session.ShippingCountry = c
	}
	if c := strings.ToUpper(strings.TrimSpace(in.BillingCountry)); c != "" {
		session.BillingCountry = c
	}
	summary, err := s.Carts.Finalize(ctx, cartID, session)
	if err != nil {
		s.Logger.Warn().Err(err).Str("cart_id", cartID.String()).Msg("checkout blocked")
		return Quote{}, err
	}
	q := Quote{
		ID:         uuid.New(),
		CartID:     cartID,
		VatCountry: summary.Regime.Country,
		VatSource:  string(summary.Regime.Source),
		Summary:    summary,
		CreatedAt:  s.now(),
	}
	s.Logger.Info().
		Str("cart_id", cartID.String()).
		Str("quote_id", q.ID.String()).
		Str("currency", summary.Currency.Code).
		Str("total_incl_vat", summary.Totals.SubtotalIncl.StringFixed(summary.Currency.DecimalPlaces)).
		Msg("checkout quote issued")
	return q, nil
}
