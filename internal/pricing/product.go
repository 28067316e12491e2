package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidQuantity rejects quantities below one.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrProductInactive is returned when a disabled product is priced for the storefront.
	ErrProductInactive = errors.New("product inactive")
	// ErrNoActiveVariants is returned for configurable products without any sellable variant.
	ErrNoActiveVariants = errors.New("configurable product has no active variants")
	// ErrVariantMismatch indicates the selected variant does not belong to the product.
	ErrVariantMismatch = errors.New("variant does not belong to product")
	// ErrUnknownProductType is returned for product types outside the closed set.
	ErrUnknownProductType = errors.New("unknown product type")
)

// ProductType is the closed set of catalog product kinds.
type ProductType int

const (
	Simple ProductType = iota + 1
	Configurable
	Variant
)

// String returns the stored representation.
func (t ProductType) String() string {
	switch t {
	case Simple:
		return "simple"
	case Configurable:
		return "configurable"
	case Variant:
		return "variant"
	default:
		return "unknown"
	}
}

// ParseProductType reads the stored representation.
func ParseProductType(value string) (ProductType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "simple":
		return Simple, nil
	case "configurable":
		return Configurable, nil
	case "variant":
		return Variant, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownProductType, value)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t ProductType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ProductType) UnmarshalText(b []byte) error {
	parsed, err := ParseProductType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Product is the catalog record the pricing core reads. PriceRON is VAT-exclusive.
type Product struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	Type              ProductType     `json:"type"`
	PriceRON          decimal.Decimal `json:"price_ron"`
	StockQuantity     int             `json:"stock_quantity"`
	ParentID          *uuid.UUID      `json:"parent_id,omitempty"`
	Active            bool            `json:"status"`
	AttributeValueIDs []int64         `json:"attribute_value_ids,omitempty"`
}

// IsLeaf reports whether the product can be put in a cart directly.
func (p Product) IsLeaf() bool {
	return p.Type == Simple || p.Type == Variant
}
