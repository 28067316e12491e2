package pricing

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/vat"
)

// TierPrice is one tier expressed in the display currency.
type TierPrice struct {
	Index     int
	Tier      Tier
	PriceExcl money.Money
	PriceIncl money.Money
	Current   bool
}

// Breakdown is the computed price of one line. It is produced fresh on every request.
type Breakdown struct {
	ProductID        uuid.UUID
	VariantID        *uuid.UUID
	PreviewVariantID *uuid.UUID
	Type             ProductType
	Quantity         int
	UnitExcl         money.Money
	UnitIncl         money.Money
	TotalExcl        money.Money
	TotalIncl        money.Money
	Regime           vat.Regime
	Currency         money.Currency
	ActiveTierIndex  int
	Tiers            []TierPrice
	ItemsToNextTier  *int
	Stock            int
	OutOfStock       bool
	Purchasable      bool
}

// UnitHeadline is the unit price in the group's display mode.
func (b Breakdown) UnitHeadline() money.Money {
	if b.Regime.Inclusive {
		return b.UnitIncl
	}
	return b.UnitExcl
}

// TotalHeadline is the line total in the group's display mode.
func (b Breakdown) TotalHeadline() money.Money {
	if b.Regime.Inclusive {
		return b.TotalIncl
	}
	return b.TotalExcl
}

// TierRef describes the active tier.
type TierRef struct {
	TierIndex   int    `json:"tier_index"`
	MinQuantity int    `json:"min_quantity"`
	MaxQuantity *int   `json:"max_quantity"`
	Label       string `json:"label"`
}

// TierView is one entry of price_tiers.
type TierView struct {
	TierIndex     int    `json:"tier_index"`
	MinQuantity   int    `json:"min_quantity"`
	MaxQuantity   *int   `json:"max_quantity"`
	QuantityRange string `json:"quantity_range"`
	PriceExclVat  string `json:"price_excl_vat"`
	PriceInclVat  string `json:"price_incl_vat"`
	IsCurrent     bool   `json:"is_current"`
}

// View is the JSON shape consumed by the presentation and checkout layers.
type View struct {
	ProductID        string     `json:"product_id"`
	VariantID        *string    `json:"variant_id"`
	PreviewVariantID *string    `json:"preview_variant_id,omitempty"`
	Quantity         int        `json:"quantity"`
	UnitPriceRaw     string     `json:"unit_price_raw"`
	UnitPriceExclVat string     `json:"unit_price_excl_vat"`
	UnitPriceInclVat string     `json:"unit_price_incl_vat"`
	UnitPriceDisplay string     `json:"unit_price_display"`
	TotalPriceRaw    string     `json:"total_price_raw"`
	TotalPriceExcl   string     `json:"total_price_excl_vat"`
	TotalPriceIncl   string     `json:"total_price_incl_vat"`
	TotalDisplay     string     `json:"total_price_display"`
	VatRate          string     `json:"vat_rate"`
	VatIncluded      bool       `json:"vat_included"`
	CurrencyCode     string     `json:"currency_code"`
	PriceTier        *TierRef   `json:"price_tier"`
	PriceTiers       []TierView `json:"price_tiers"`
	ItemsToNextTier  *int       `json:"items_to_next_tier"`
	Stock            int        `json:"stock"`
	Purchasable      bool       `json:"purchasable"`
	OutOfStock       bool       `json:"out_of_stock"`
}

// View renders the breakdown with every amount formatted to the currency's places.
func (b Breakdown) View() View {
	places := b.Currency.DecimalPlaces
	v := View{
		ProductID:        b.ProductID.String(),
		VariantID:        uuidPtrString(b.VariantID),
		PreviewVariantID: uuidPtrString(b.PreviewVariantID),
		Quantity:         b.Quantity,
		UnitPriceRaw:     b.UnitHeadline().StringFixed(places),
		UnitPriceExclVat: b.UnitExcl.StringFixed(places),
		UnitPriceInclVat: b.UnitIncl.StringFixed(places),
		UnitPriceDisplay: b.Currency.Format(b.UnitHeadline()),
		TotalPriceRaw:    b.TotalHeadline().StringFixed(places),
		TotalPriceExcl:   b.TotalExcl.StringFixed(places),
		TotalPriceIncl:   b.TotalIncl.StringFixed(places),
		TotalDisplay:     b.Currency.Format(b.TotalHeadline()),
		VatRate:          b.Regime.Rate.StringFixed(2),
		VatIncluded:      b.Regime.Inclusive,
		CurrencyCode:     b.Currency.Code,
		PriceTiers:       make([]TierView, 0, len(b.Tiers)),
		ItemsToNextTier:  b.ItemsToNextTier,
		Stock:            b.Stock,
		Purchasable:      b.Purchasable,
		OutOfStock:       b.OutOfStock,
	}
	for _, tp := range b.Tiers {
		v.PriceTiers = append(v.PriceTiers, TierView{
			TierIndex:     tp.Index,
			MinQuantity:   tp.Tier.MinQuantity,
			MaxQuantity:   tp.Tier.MaxQuantity,
			QuantityRange: tp.Tier.QuantityRange(),
			PriceExclVat:  tp.PriceExcl.StringFixed(places),
			PriceInclVat:  tp.PriceIncl.StringFixed(places),
			IsCurrent:     tp.Current,
		})
		if tp.Current {
			v.PriceTier = &TierRef{
				TierIndex:   tp.Index,
				MinQuantity: tp.Tier.MinQuantity,
				MaxQuantity: tp.Tier.MaxQuantity,
				Label:       tp.Tier.QuantityRange() + " pcs",
			}
		}
	}
	return v
}

// MarshalJSON renders the View shape.
func (b Breakdown) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.View())
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
