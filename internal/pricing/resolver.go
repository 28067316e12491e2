package pricing

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/vat"
)

// Context is the explicit per-request pricing snapshot. Nothing inside the core reads session state.
type Context struct {
	Currency       money.Currency
	Group          vat.CustomerGroup
	DefaultGroupID int64
	Destination    vat.Destination
}

// Options tweak resolution for callers other than the storefront.
type Options struct {
	// Admin skips the inactive product check.
	Admin bool
	// VariantID selects a variant of a configurable product.
	VariantID *uuid.UUID
}

// Resolver composes VAT resolution, tier selection and currency conversion.
type Resolver struct {
	Converter money.Converter
	VAT       vat.Resolver
}

// Resolve dispatches on the product type.
func (r Resolver) Resolve(p Product, variants []Product, quantity int, pc Context, book TierBook, opts Options) (Breakdown, error) {
	switch p.Type {
	case Simple, Variant:
		return r.ResolveSimple(p, quantity, pc, book, opts)
	case Configurable:
		return r.ResolveConfigurable(p, variants, quantity, pc, book, opts)
	default:
		return Breakdown{}, fmt.Errorf("%w: %d", ErrUnknownProductType, p.Type)
	}
}

// ResolveSimple prices a leaf product (simple or variant).
func (r Resolver) ResolveSimple(p Product, quantity int, pc Context, book TierBook, opts Options) (Breakdown, error) {
	if quantity < 1 {
		return Breakdown{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if !p.IsLeaf() {
		return Breakdown{}, fmt.Errorf("%w: %s is not a leaf product", ErrUnknownProductType, p.Type)
	}
	if !p.Active && !opts.Admin {
		return Breakdown{}, fmt.Errorf("%w: %s", ErrProductInactive, p.ID)
	}

	tiers := book.For(p.ID, pc.Group.ID, pc.DefaultGroupID)
	if len(tiers) == 0 && p.Type == Variant && p.ParentID != nil {
		tiers = book.For(*p.ParentID, pc.Group.ID, pc.DefaultGroupID)
	}
	sel := SelectTier(tiers, quantity, money.RON(p.PriceRON))

	regime, err := r.VAT.Resolve(pc.Destination, pc.Group)
	if err != nil {
		return Breakdown{}, err
	}

	unitExcl, unitIncl, err := r.unitPrices(sel.UnitPrice, regime, pc.Currency)
	if err != nil {
		return Breakdown{}, err
	}
	totalExcl := unitExcl.Times(quantity)
	totalIncl := r.withVat(totalExcl, regime, pc.Currency)

	tierPrices := make([]TierPrice, 0, len(sel.Tiers))
	for i, t := range sel.Tiers {
		excl, incl, err := r.unitPrices(money.RON(t.PriceRON), regime, pc.Currency)
		if err != nil {
			return Breakdown{}, err
		}
		tierPrices = append(tierPrices, TierPrice{
			Index:     i,
			Tier:      t,
			PriceExcl: excl,
			PriceIncl: incl,
			Current:   i == sel.ActiveIndex,
		})
	}

	b := Breakdown{
		ProductID:       p.ID,
		Type:            p.Type,
		Quantity:        quantity,
		UnitExcl:        unitExcl,
		UnitIncl:        unitIncl,
		TotalExcl:       totalExcl,
		TotalIncl:       totalIncl,
		Regime:          regime,
		Currency:        pc.Currency,
		ActiveTierIndex: sel.ActiveIndex,
		Tiers:           tierPrices,
		ItemsToNextTier: sel.ItemsToNextTier,
		Stock:           p.StockQuantity,
		OutOfStock:      p.StockQuantity <= 0,
		Purchasable:     p.StockQuantity > 0,
	}
	if p.Type == Variant && p.ParentID != nil {
		b.ProductID = *p.ParentID
		id := p.ID
		b.VariantID = &id
	}
	return b, nil
}

// ResolveConfigurable prices the selected variant or, when none is selected yet,
// a non-purchasable preview using the cheapest active variant.
func (r Resolver) ResolveConfigurable(p Product, variants []Product, quantity int, pc Context, book TierBook, opts Options) (Breakdown, error) {
	if quantity < 1 {
		return Breakdown{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if p.Type != Configurable {
		return Breakdown{}, fmt.Errorf("%w: %s is not configurable", ErrUnknownProductType, p.Type)
	}
	if !p.Active && !opts.Admin {
		return Breakdown{}, fmt.Errorf("%w: %s", ErrProductInactive, p.ID)
	}

	if opts.VariantID != nil {
		for _, v := range variants {
			if v.ID != *opts.VariantID {
				continue
			}
			if v.ParentID == nil || *v.ParentID != p.ID {
				break
			}
			return r.ResolveSimple(v, quantity, pc, book, opts)
		}
		return Breakdown{}, fmt.Errorf("%w: %s", ErrVariantMismatch, *opts.VariantID)
	}

	rollup, err := RollUp(p.ID, variants)
	if err != nil {
		return Breakdown{}, err
	}
	b, err := r.ResolveSimple(rollup.Cheapest, quantity, pc, book, Options{Admin: opts.Admin})
	if err != nil {
		return Breakdown{}, err
	}
	b.ProductID = p.ID
	b.Type = Configurable
	b.VariantID = nil
	previewID := rollup.Cheapest.ID
	b.PreviewVariantID = &previewID
	b.Stock = rollup.Stock
	b.OutOfStock = rollup.OutOfStock
	b.Purchasable = false
	return b, nil
}

// Rollup summarises the active variants of a configurable product.
type Rollup struct {
	Cheapest   Product
	Stock      int
	OutOfStock bool
}

// RollUp computes the minimum-price variant and aggregate stock of active variants.
// Ties on price keep the variant listed first.
func RollUp(parentID uuid.UUID, variants []Product) (Rollup, error) {
	var (
		out   Rollup
		found bool
	)
	out.OutOfStock = true
	for _, v := range variants {
		if !v.Active || v.ParentID == nil || *v.ParentID != parentID {
			continue
		}
		if !found || v.PriceRON.LessThan(out.Cheapest.PriceRON) {
			out.Cheapest = v
			found = true
		}
		if v.StockQuantity > 0 {
			out.Stock += v.StockQuantity
			out.OutOfStock = false
		}
	}
	if !found {
		return Rollup{}, fmt.Errorf("%w: %s", ErrNoActiveVariants, parentID)
	}
	return out, nil
}

// unitPrices converts a base excl. price and derives the incl. price in the display currency.
func (r Resolver) unitPrices(baseExcl money.Money, regime vat.Regime, c money.Currency) (money.Money, money.Money, error) {
	excl, err := r.Converter.ToDisplay(baseExcl, c)
	if err != nil {
		return money.Money{}, money.Money{}, err
	}
	return excl, r.withVat(excl, regime, c), nil
}

func (r Resolver) withVat(excl money.Money, regime vat.Regime, c money.Currency) money.Money {
	if regime.Exempt || regime.Rate.IsZero() {
		return excl
	}
	return excl.Scale(regime.Factor()).Round(c.DecimalPlaces)
}
