package vat

import "github.com/shopspring/decimal"

// Rate is one stored VAT row. A nil group applies to every group in the country.
type Rate struct {
	CountryID       string          `json:"country_id"`
	CustomerGroupID *int64          `json:"customer_group_id,omitempty"`
	Rate            decimal.Decimal `json:"rate"`
}

type rateKey struct {
	country string
	group   int64
}

// Table is an in-memory RateLookup built from prefetched rows.
type Table struct {
	byGroup   map[rateKey]decimal.Decimal
	byCountry map[string]decimal.Decimal
}

// NewTable indexes rate rows.
func NewTable(rows []Rate) *Table {
	t := &Table{byGroup: map[rateKey]decimal.Decimal{}, byCountry: map[string]decimal.Decimal{}}
	for _, row := range rows {
		country := normalizeCountry(row.CountryID)
		if row.CustomerGroupID != nil {
			t.byGroup[rateKey{country: country, group: *row.CustomerGroupID}] = row.Rate
			continue
		}
		t.byCountry[country] = row.Rate
	}
	return t
}

// Rate prefers a group-specific row over the country-wide one.
func (t *Table) Rate(country string, groupID int64) (decimal.Decimal, bool) {
	if t == nil {
		return decimal.Zero, false
	}
	country = normalizeCountry(country)
	if rate, ok := t.byGroup[rateKey{country: country, group: groupID}]; ok {
		return rate, true
	}
	rate, ok := t.byCountry[country]
	return rate, ok
}
