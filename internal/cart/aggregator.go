package cart

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/vat"
)

// Reasons a line cannot be priced.
const (
	UnavailableNotFound = "not_found"
	UnavailableInactive = "inactive"
)

// Snapshot is the catalog data needed to price one cart, fetched up front.
// Products holds every leaf product and, for variants, their parents.
type Snapshot struct {
	Products map[uuid.UUID]pricing.Product
	Tiers    pricing.TierBook
}

// StockWarning flags a line whose quantity exceeds the stock available now.
type StockWarning struct {
	Requested int `json:"requested"`
	Available int `json:"available"`
}

// LineSummary is a priced cart line. Unavailable lines keep their place with no breakdown.
type LineSummary struct {
	Line         Line
	Breakdown    *pricing.Breakdown
	StockWarning *StockWarning
	Unavailable  string
}

// Blocking reports whether the line prevents checkout.
func (l LineSummary) Blocking() bool {
	return l.StockWarning != nil || l.Unavailable != ""
}

// Summary is a cart priced under one currency, customer group and destination.
type Summary struct {
	CartID   uuid.UUID
	Lines    []LineSummary
	Totals   pricing.Totals
	Currency money.Currency
	Regime   vat.Regime
}

// Blocking reports whether any line prevents checkout.
func (s Summary) Blocking() bool {
	for _, l := range s.Lines {
		if l.Blocking() {
			return true
		}
	}
	return false
}

// StockWarnings counts lines flagged for stock.
func (s Summary) StockWarnings() int {
	n := 0
	for _, l := range s.Lines {
		if l.StockWarning != nil {
			n++
		}
	}
	return n
}

// Aggregator prices carts. It performs no I/O.
type Aggregator struct {
	Resolver pricing.Resolver
}

// Summarize prices every line in insertion order. Stock shortfalls and
// unavailable products are reported per line instead of failing the cart;
// unavailable lines are left out of the totals.
func (a Aggregator) Summarize(c Cart, pc pricing.Context, snap Snapshot) (Summary, error) {
	regime, err := a.Resolver.VAT.Resolve(pc.Destination, pc.Group)
	if err != nil {
		return Summary{}, err
	}
	out := Summary{
		CartID:   c.ID,
		Lines:    make([]LineSummary, 0, len(c.Lines)),
		Currency: pc.Currency,
		Regime:   regime,
	}
	priced := make([]pricing.Breakdown, 0, len(c.Lines))
	for _, line := range c.Lines {
		ls := LineSummary{Line: line}
		leaf, ok := snap.Products[line.LeafID()]
		if !ok {
			ls.Unavailable = UnavailableNotFound
			out.Lines = append(out.Lines, ls)
			continue
		}
		if line.VariantID != nil {
			parent, ok := snap.Products[line.ProductID]
			if !ok {
				ls.Unavailable = UnavailableNotFound
				out.Lines = append(out.Lines, ls)
				continue
			}
			if !parent.Active {
				ls.Unavailable = UnavailableInactive
				out.Lines = append(out.Lines, ls)
				continue
			}
		}
		b, err := a.Resolver.ResolveSimple(leaf, line.Quantity, pc, snap.Tiers, pricing.Options{})
		if err != nil {
			if errors.Is(err, pricing.ErrProductInactive) {
				ls.Unavailable = UnavailableInactive
				out.Lines = append(out.Lines, ls)
				continue
			}
			return Summary{}, fmt.Errorf("price line %s: %w", line.Key, err)
		}
		if line.Quantity > leaf.StockQuantity {
			available := leaf.StockQuantity
			if available < 0 {
				available = 0
			}
			ls.StockWarning = &StockWarning{Requested: line.Quantity, Available: available}
		}
		ls.Breakdown = &b
		priced = append(priced, b)
		out.Lines = append(out.Lines, ls)
	}
	totals, err := pricing.Compute(pc.Currency.Code, priced)
	if err != nil {
		return Summary{}, err
	}
	out.Totals = totals
	return out, nil
}

// Finalize prices the cart for checkout. VAT must come from a real address and
// every blocking line is an error; all of them are reported together.
func (a Aggregator) Finalize(c Cart, pc pricing.Context, snap Snapshot) (Summary, error) {
	if len(c.Lines) == 0 {
		return Summary{}, ErrEmptyCart
	}
	pc.Destination = pc.Destination.Strict()
	s, err := a.Summarize(c, pc, snap)
	if err != nil {
		return Summary{}, err
	}
	var result *multierror.Error
	for _, l := range s.Lines {
		switch {
		case l.Unavailable != "":
			result = multierror.Append(result, fmt.Errorf("line %s: %w", l.Line.Key, pricing.ErrProductInactive))
		case l.StockWarning != nil:
			result = multierror.Append(result, fmt.Errorf("line %s: %w", l.Line.Key,
				stockError(l.StockWarning.Requested, l.StockWarning.Available)))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return s, err
	}
	return s, nil
}
