package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// Store persists carts.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (Cart, error)
	Save(ctx context.Context, c Cart) error
}

// Service loads carts and catalog snapshots and hands them to the Aggregator.
type Service struct {
	Store     Store
	Catalog   catalog.ProductReader
	Reference catalog.ReferenceProvider
	Logger    zerolog.Logger
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil || s.Catalog == nil || s.Reference == nil {
		return errors.New("cart service not configured")
	}
	return nil
}

// Create starts an empty cart.
func (s *Service) Create(ctx context.Context) (Cart, error) {
	if err := s.ready(); err != nil {
		return Cart{}, err
	}
	c := New(s.now())
	if err := s.Store.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// SetItem sets the absolute quantity of productID, which may be a simple product or a variant.
func (s *Service) SetItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (Cart, Line, error) {
	if err := s.ready(); err != nil {
		return Cart{}, Line{}, err
	}
	c, err := s.Store.Get(ctx, cartID)
	if err != nil {
		return Cart{}, Line{}, err
	}
	product, err := s.Catalog.Product(ctx, productID)
	if err != nil {
		return Cart{}, Line{}, err
	}
	if product.Type == pricing.Variant && product.ParentID != nil {
		parent, err := s.Catalog.Product(ctx, *product.ParentID)
		if err != nil {
			return Cart{}, Line{}, err
		}
		if !parent.Active {
			return Cart{}, Line{}, fmt.Errorf("%w: %s", pricing.ErrProductInactive, parent.ID)
		}
	}
	line, err := c.AddLine(product, quantity)
	if err != nil {
		return Cart{}, Line{}, err
	}
	if err := s.save(ctx, &c); err != nil {
		return Cart{}, Line{}, err
	}
	s.Logger.Debug().Str("cart_id", c.ID.String()).Str("key", string(line.Key)).Int("quantity", quantity).Msg("cart line set")
	return c, line, nil
}

// UpdateItem sets the quantity of an existing line. Zero removes it.
func (s *Service) UpdateItem(ctx context.Context, cartID uuid.UUID, key Key, quantity int) (Cart, error) {
	if err := s.ready(); err != nil {
		return Cart{}, err
	}
	c, err := s.Store.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	line, ok := c.Line(key)
	if !ok {
		return Cart{}, fmt.Errorf("%w: %s", ErrLineNotFound, key)
	}
	available := 0
	if quantity > 0 {
		leaf, err := s.Catalog.Product(ctx, line.LeafID())
		if err != nil {
			return Cart{}, err
		}
		if !leaf.Active {
			return Cart{}, fmt.Errorf("%w: %s", pricing.ErrProductInactive, leaf.ID)
		}
		available = leaf.StockQuantity
	}
	if err := c.UpdateQuantity(key, quantity, available); err != nil {
		return Cart{}, err
	}
	if err := s.save(ctx, &c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// RemoveItem drops a line. Missing lines are ignored.
func (s *Service) RemoveItem(ctx context.Context, cartID uuid.UUID, key Key) (Cart, error) {
	if err := s.ready(); err != nil {
		return Cart{}, err
	}
	c, err := s.Store.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	c.RemoveLine(key)
	if err := s.save(ctx, &c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Clear removes every line.
func (s *Service) Clear(ctx context.Context, cartID uuid.UUID) (Cart, error) {
	if err := s.ready(); err != nil {
		return Cart{}, err
	}
	c, err := s.Store.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	c.Clear()
	if err := s.save(ctx, &c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Summary prices the cart for display. Currency and group problems degrade and
// VAT uses the fallback country when shipping cannot decide it.
func (s *Service) Summary(ctx context.Context, cartID uuid.UUID, session common.Session) (_ Summary, err error) {
	if err := s.ready(); err != nil {
		return Summary{}, err
	}
	ctx, span := obs.StartSpan(ctx, "cart.summary", attribute.String("cart.id", cartID.String()))
	defer func() { obs.EndSpan(span, err) }()
	ref, err := s.Reference.Load(ctx)
	if err != nil {
		return Summary{}, err
	}
	c, err := s.Store.Get(ctx, cartID)
	if err != nil {
		return Summary{}, err
	}
	pc := ref.DisplayContext(session)
	snap, err := s.Snapshot(ctx, c, pc)
	if err != nil {
		return Summary{}, err
	}
	summary, err := Aggregator{Resolver: ref.Resolver()}.Summarize(c, pc, snap)
	obs.ObserveCartSummarize("display", ResultLabel(err), summary.StockWarnings())
	if err == nil {
		catalog.ObserveVatFallback(pc, summary.Regime)
	}
	return summary, err
}

// Finalize prices the cart for checkout without any degradation.
func (s *Service) Finalize(ctx context.Context, cartID uuid.UUID, session common.Session) (_ Summary, err error) {
	if err := s.ready(); err != nil {
		return Summary{}, err
	}
	ctx, span := obs.StartSpan(ctx, "cart.finalize", attribute.String("cart.id", cartID.String()))
	defer func() { obs.EndSpan(span, err) }()
	ref, err := s.Reference.Load(ctx)
	if err != nil {
		return Summary{}, err
	}
	c, err := s.Store.Get(ctx, cartID)
	if err != nil {
		return Summary{}, err
	}
	pc, err := ref.CheckoutContext(session)
	if err != nil {
		obs.ObserveCartSummarize("checkout", ResultLabel(err), 0)
		return Summary{}, err
	}
	snap, err := s.Snapshot(ctx, c, pc)
	if err != nil {
		return Summary{}, err
	}
	summary, err := Aggregator{Resolver: ref.Resolver()}.Finalize(c, pc, snap)
	obs.ObserveCartSummarize("checkout", ResultLabel(err), summary.StockWarnings())
	return summary, err
}

// Snapshot fetches every product, parent and tier the cart needs in batched queries.
func (s *Service) Snapshot(ctx context.Context, c Cart, pc pricing.Context) (Snapshot, error) {
	seen := map[uuid.UUID]bool{}
	ids := make([]uuid.UUID, 0, len(c.Lines)*2)
	for _, line := range c.Lines {
		for _, id := range []uuid.UUID{line.ProductID, line.LeafID()} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	products, err := s.Catalog.Products(ctx, ids)
	if err != nil {
		return Snapshot{}, err
	}
	book, err := catalog.LoadTierBook(ctx, s.Catalog, ids, pc)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Products: products, Tiers: book}, nil
}

func (s *Service) save(ctx context.Context, c *Cart) error {
	c.UpdatedAt = s.now()
	return s.Store.Save(ctx, *c)
}
