// Package catalogtest provides an in-memory catalog for tests.
package catalogtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/vat"
)

// Customer group ids used by Reference.
const (
	GroupB2C    int64 = 1
	GroupB2B    int64 = 2
	GroupExport int64 = 3
)

// Reference returns RON/EUR/USD currencies (GBP inactive), B2C/B2B/EXPORT groups
// and RO/HU/BG VAT rates, with a reduced 9% BG rate for B2B.
func Reference() catalog.ReferenceData {
	b2b := GroupB2B
	return catalog.ReferenceData{
		Currencies: []money.Currency{
			{Code: "RON", IsBase: true, ExchangeRateToBase: decimal.NewFromInt(1), SymbolRight: " lei", DecimalPlaces: 2, Active: true},
			{Code: "EUR", ExchangeRateToBase: decimal.RequireFromString("0.2"), SymbolLeft: "€", DecimalPlaces: 2, Active: true},
			{Code: "USD", ExchangeRateToBase: decimal.RequireFromString("0.2178"), SymbolLeft: "$", DecimalPlaces: 2, Active: true},
			{Code: "GBP", ExchangeRateToBase: decimal.RequireFromString("0.17"), SymbolLeft: "£", DecimalPlaces: 2, Active: false},
		},
		Groups: []vat.CustomerGroup{
			{ID: GroupB2C, Code: "B2C", Default: true, Treatment: vat.Inclusive},
			{ID: GroupB2B, Code: "B2B", Treatment: vat.Exclusive},
			{ID: GroupExport, Code: "EXPORT", Treatment: vat.Exempt},
		},
		Rates: []vat.Rate{
			{CountryID: "RO", Rate: decimal.NewFromInt(19)},
			{CountryID: "HU", Rate: decimal.NewFromInt(27)},
			{CountryID: "BG", Rate: decimal.NewFromInt(20)},
			{CountryID: "BG", CustomerGroupID: &b2b, Rate: decimal.NewFromInt(9)},
		},
	}
}

// Static serves a fixed Reference.
type Static struct {
	Ref *catalog.Reference
}

// Load implements catalog.ReferenceProvider.
func (s Static) Load(context.Context) (*catalog.Reference, error) {
	return s.Ref, nil
}

// NewStatic validates data with RON as base, displaying RON by default and
// falling back to Romanian VAT when no address is known.
func NewStatic(data catalog.ReferenceData) (Static, error) {
	ref, err := catalog.NewReference(data, "RON", "RON", "RO")
	if err != nil {
		return Static{}, err
	}
	return Static{Ref: ref}, nil
}

// Memory is a concurrency-safe in-memory catalog implementing catalog.ProductReader.
type Memory struct {
	mu       sync.RWMutex
	products map[uuid.UUID]pricing.Product
	order    []uuid.UUID
	tiers    map[int64]map[uuid.UUID][]pricing.Tier
	data     catalog.ReferenceData

	// TierQueries counts LoadTiersFor calls.
	TierQueries int
}

// NewMemory creates an empty catalog serving data as reference data.
func NewMemory(data catalog.ReferenceData) *Memory {
	return &Memory{
		products: map[uuid.UUID]pricing.Product{},
		tiers:    map[int64]map[uuid.UUID][]pricing.Tier{},
		data:     data,
	}
}

// Put inserts or replaces a product.
func (m *Memory) Put(p pricing.Product) pricing.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.products[p.ID] = p
	return p
}

// Delete removes a product.
func (m *Memory) Delete(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
}

// PutTiers stores tiers for a product and group (pricing.GroupAny for group-less rows).
func (m *Memory) PutTiers(productID uuid.UUID, groupID int64, tiers ...pricing.Tier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tiers[groupID] == nil {
		m.tiers[groupID] = map[uuid.UUID][]pricing.Tier{}
	}
	m.tiers[groupID][productID] = tiers
}

// Product implements catalog.ProductReader.
func (m *Memory) Product(_ context.Context, id uuid.UUID) (pricing.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return pricing.Product{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
	}
	return p, nil
}

// Products implements catalog.ProductReader.
func (m *Memory) Products(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]pricing.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[uuid.UUID]pricing.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// Variants implements catalog.ProductReader in insertion order.
func (m *Memory) Variants(_ context.Context, parentID uuid.UUID) ([]pricing.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []pricing.Product
	for _, id := range m.order {
		p, ok := m.products[id]
		if ok && p.ParentID != nil && *p.ParentID == parentID {
			out = append(out, p)
		}
	}
	return out, nil
}

// LoadTiersFor implements catalog.TierLoader.
func (m *Memory) LoadTiersFor(_ context.Context, productIDs []uuid.UUID, groupID int64) (map[uuid.UUID][]pricing.Tier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TierQueries++
	out := map[uuid.UUID][]pricing.Tier{}
	for _, id := range productIDs {
		if tiers, ok := m.tiers[groupID][id]; ok {
			out[id] = append([]pricing.Tier(nil), tiers...)
		}
	}
	return out, nil
}

// Currencies serves reference currencies.
func (m *Memory) Currencies(context.Context) ([]money.Currency, error) {
	return m.data.Currencies, nil
}

// CustomerGroups serves reference customer groups.
func (m *Memory) CustomerGroups(context.Context) ([]vat.CustomerGroup, error) {
	return m.data.Groups, nil
}

// VatRates serves reference VAT rates.
func (m *Memory) VatRates(context.Context) ([]vat.Rate, error) {
	return m.data.Rates, nil
}

// Simple builds an active simple product.
func Simple(name, priceRON string, stock int) pricing.Product {
	return pricing.Product{
		ID:            uuid.New(),
		Name:          name,
		Type:          pricing.Simple,
		PriceRON:      decimal.RequireFromString(priceRON),
		StockQuantity: stock,
		Active:        true,
	}
}

// Configurable builds an active configurable parent and its active variants.
func Configurable(name string, prices []string, stocks []int) (pricing.Product, []pricing.Product) {
	parent := pricing.Product{ID: uuid.New(), Name: name, Type: pricing.Configurable, PriceRON: decimal.Zero, Active: true}
	variants := make([]pricing.Product, 0, len(prices))
	for i, price := range prices {
		parentID := parent.ID
		variants = append(variants, pricing.Product{
			ID:            uuid.New(),
			Name:          fmt.Sprintf("%s #%d", name, i+1),
			Type:          pricing.Variant,
			PriceRON:      decimal.RequireFromString(price),
			StockQuantity: stocks[i],
			ParentID:      &parentID,
			Active:        true,
		})
	}
	return parent, variants
}
