package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// TierLoader fetches tiers for many products and one customer group.
type TierLoader interface {
	LoadTiersFor(ctx context.Context, productIDs []uuid.UUID, groupID int64) (map[uuid.UUID][]pricing.Tier, error)
}

// ProductReader is the read side of the catalog used by pricing callers.
type ProductReader interface {
	TierLoader
	Product(ctx context.Context, id uuid.UUID) (pricing.Product, error)
	Products(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]pricing.Product, error)
	Variants(ctx context.Context, parentID uuid.UUID) ([]pricing.Product, error)
}

// ReferenceProvider yields current reference data.
type ReferenceProvider interface {
	Load(ctx context.Context) (*Reference, error)
}

// LoadTierBook prefetches the tiers needed to price ids for pc: the requested
// group, the default group and group-less rows, one query each.
func LoadTierBook(ctx context.Context, loader TierLoader, ids []uuid.UUID, pc pricing.Context) (pricing.TierBook, error) {
	book := pricing.TierBook{}
	if len(ids) == 0 {
		return book, nil
	}
	seen := map[int64]bool{}
	for _, groupID := range []int64{pc.Group.ID, pc.DefaultGroupID, pricing.GroupAny} {
		if seen[groupID] {
			continue
		}
		seen[groupID] = true
		batch, err := loader.LoadTiersFor(ctx, ids, groupID)
		if err != nil {
			return nil, err
		}
		book.Merge(groupID, batch)
	}
	return book, nil
}

// Service prices single products for the storefront.
type Service struct {
	Products  ProductReader
	Reference ReferenceProvider
	Logger    zerolog.Logger
}

// PriceRequest describes one price preview.
type PriceRequest struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
	Session   common.Session
	Admin     bool
}

// Price resolves the breakdown shown on product pages and listings.
func (s *Service) Price(ctx context.Context, req PriceRequest) (b pricing.Breakdown, err error) {
	if s == nil || s.Products == nil || s.Reference == nil {
		return pricing.Breakdown{}, errors.New("catalog service not configured")
	}
	ctx, span := obs.StartSpan(ctx, "catalog.price",
		attribute.String("product.id", req.ProductID.String()),
		attribute.Int("quantity", req.Quantity),
	)
	defer func() { obs.EndSpan(span, err) }()
	ref, err := s.Reference.Load(ctx)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	product, err := s.Products.Product(ctx, req.ProductID)
	if err != nil {
		return pricing.Breakdown{}, err
	}

	ids := []uuid.UUID{product.ID}
	var variants []pricing.Product
	switch product.Type {
	case pricing.Configurable:
		if variants, err = s.Products.Variants(ctx, product.ID); err != nil {
			return pricing.Breakdown{}, err
		}
		for _, v := range variants {
			ids = append(ids, v.ID)
		}
	case pricing.Variant:
		if product.ParentID != nil {
			parent, err := s.Products.Product(ctx, *product.ParentID)
			if err != nil {
				return pricing.Breakdown{}, err
			}
			if !parent.Active && !req.Admin {
				obs.ObservePricingResolve(product.Type.String(), "PRODUCT_INACTIVE")
				return pricing.Breakdown{}, fmt.Errorf("%w: parent %s of variant %s", pricing.ErrProductInactive, parent.ID, product.ID)
			}
			ids = append(ids, parent.ID)
		}
	}

	pc := ref.DisplayContext(req.Session)
	book, err := LoadTierBook(ctx, s.Products, ids, pc)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	b, err = ref.Resolver().Resolve(product, variants, req.Quantity, pc, book, pricing.Options{
		Admin:     req.Admin,
		VariantID: req.VariantID,
	})
	obs.ObservePricingResolve(product.Type.String(), ResultLabel(err))
	if err != nil {
		s.Logger.Debug().Err(err).Str("product_id", product.ID.String()).Msg("price resolution failed")
		return pricing.Breakdown{}, err
	}
	ObserveVatFallback(pc, b.Regime)
	return b, nil
}

// ResultLabel turns an error into a low-cardinality metric label.
func ResultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var appErr *common.AppError
	if errors.As(TranslateError(err), &appErr) {
		return appErr.Code
	}
	return "error"
}
