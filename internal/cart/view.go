package cart

import (
	"encoding/json"

	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// LineView is the JSON form of a priced line.
type LineView struct {
	Key          string        `json:"key"`
	ProductID    string        `json:"product_id"`
	VariantID    *string       `json:"variant_id"`
	Quantity     int           `json:"quantity"`
	Price        *pricing.View `json:"price"`
	StockWarning *StockWarning `json:"stock_warning"`
	Unavailable  string        `json:"unavailable,omitempty"`
	Blocking     bool          `json:"blocking"`
}

// SummaryView is the JSON form of a cart summary.
type SummaryView struct {
	CartID          string     `json:"cart_id"`
	Lines           []LineView `json:"lines"`
	SubtotalExclVat string     `json:"subtotal_excl_vat"`
	SubtotalInclVat string     `json:"subtotal_incl_vat"`
	VatAmount       string     `json:"vat_amount"`
	SubtotalDisplay string     `json:"subtotal_display"`
	ItemCount       int        `json:"item_count"`
	LineCount       int        `json:"line_count"`
	CurrencyCode    string     `json:"currency_code"`
	VatRate         string     `json:"vat_rate"`
	VatIncluded     bool       `json:"vat_included"`
	Blocking        bool       `json:"blocking"`
}

// View renders the summary with amounts formatted to the currency's places.
func (s Summary) View() SummaryView {
	places := s.Currency.DecimalPlaces
	headline := s.Totals.SubtotalExcl
	if s.Regime.Inclusive {
		headline = s.Totals.SubtotalIncl
	}
	v := SummaryView{
		CartID:          s.CartID.String(),
		Lines:           make([]LineView, 0, len(s.Lines)),
		SubtotalExclVat: s.Totals.SubtotalExcl.StringFixed(places),
		SubtotalInclVat: s.Totals.SubtotalIncl.StringFixed(places),
		VatAmount:       s.Totals.VatAmount.StringFixed(places),
		SubtotalDisplay: s.Currency.Format(headline),
		ItemCount:       s.Totals.ItemCount,
		LineCount:       s.Totals.LineCount,
		CurrencyCode:    s.Currency.Code,
		VatRate:         s.Regime.Rate.StringFixed(2),
		VatIncluded:     s.Regime.Inclusive,
		Blocking:        s.Blocking(),
	}
	for _, l := range s.Lines {
		lv := LineView{
			Key:          string(l.Line.Key),
			ProductID:    l.Line.ProductID.String(),
			Quantity:     l.Line.Quantity,
			StockWarning: l.StockWarning,
			Unavailable:  l.Unavailable,
			Blocking:     l.Blocking(),
		}
		if l.Line.VariantID != nil {
			id := l.Line.VariantID.String()
			lv.VariantID = &id
		}
		if l.Breakdown != nil {
			pv := l.Breakdown.View()
			lv.Price = &pv
		}
		v.Lines = append(v.Lines, lv)
	}
	return v
}

// MarshalJSON renders the SummaryView shape.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.View())
}
