package cart

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/pricing"
)

var (
	// ErrNotFound indicates the requested cart could not be located or expired.
	ErrNotFound = errors.New("cart not found")
	// ErrLineNotFound indicates the cart has no line with the given key.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrInsufficientStock is returned when a quantity exceeds available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrVariantRequired rejects a configurable product added without a chosen variant.
	ErrVariantRequired = errors.New("variant selection required")
	// ErrEmptyCart is returned when finalizing a cart without lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidKey rejects malformed line keys.
	ErrInvalidKey = errors.New("invalid line key")
)

// Key identifies a cart line: the product id, plus the variant id for variants.
type Key string

// NewKey builds the key of a line.
func NewKey(productID uuid.UUID, variantID *uuid.UUID) Key {
	if variantID == nil {
		return Key(productID.String())
	}
	return Key(productID.String() + ":" + variantID.String())
}

// ParseKey validates a key received from a client.
func ParseKey(raw string) (Key, error) {
	product, variant, hasVariant := strings.Cut(strings.TrimSpace(raw), ":")
	productID, err := uuid.Parse(product)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, raw)
	}
	if !hasVariant {
		return NewKey(productID, nil), nil
	}
	variantID, err := uuid.Parse(variant)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, raw)
	}
	return NewKey(productID, &variantID), nil
}

// Line is one cart entry. Lines are always leaf level: a simple product or a chosen variant.
type Line struct {
	Key       Key        `json:"key"`
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
}

// LeafID is the id of the priced product: the variant when one is chosen.
func (l Line) LeafID() uuid.UUID {
	if l.VariantID != nil {
		return *l.VariantID
	}
	return l.ProductID
}

// Cart is the line collection of one session, kept in insertion order.
type Cart struct {
	ID        uuid.UUID `json:"id"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates an empty cart.
func New(now time.Time) Cart {
	return Cart{ID: uuid.New(), Lines: []Line{}, UpdatedAt: now}
}

// AddLine sets the quantity of the line for product, creating it when missing.
// Quantities are absolute so replaying the same request gives the same cart.
func (c *Cart) AddLine(product pricing.Product, quantity int) (Line, error) {
	if quantity < 1 {
		return Line{}, fmt.Errorf("%w: %d", pricing.ErrInvalidQuantity, quantity)
	}
	var line Line
	switch product.Type {
	case pricing.Simple:
		line = Line{ProductID: product.ID}
	case pricing.Variant:
		if product.ParentID == nil {
			return Line{}, fmt.Errorf("%w: variant %s has no parent", pricing.ErrUnknownProductType, product.ID)
		}
		variantID := product.ID
		line = Line{ProductID: *product.ParentID, VariantID: &variantID}
	case pricing.Configurable:
		return Line{}, fmt.Errorf("%w: %s", ErrVariantRequired, product.ID)
	default:
		return Line{}, fmt.Errorf("%w: %d", pricing.ErrUnknownProductType, product.Type)
	}
	if !product.Active {
		return Line{}, fmt.Errorf("%w: %s", pricing.ErrProductInactive, product.ID)
	}
	if quantity > product.StockQuantity {
		return Line{}, stockError(quantity, product.StockQuantity)
	}
	line.Key = NewKey(line.ProductID, line.VariantID)
	line.Quantity = quantity
	if i := c.index(line.Key); i >= 0 {
		c.Lines[i].Quantity = quantity
		return c.Lines[i], nil
	}
	c.Lines = append(c.Lines, line)
	return line, nil
}

// UpdateQuantity sets an existing line to quantity. Zero removes the line.
func (c *Cart) UpdateQuantity(key Key, quantity, available int) error {
	if quantity < 0 {
		return fmt.Errorf("%w: %d", pricing.ErrInvalidQuantity, quantity)
	}
	i := c.index(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, key)
	}
	if quantity == 0 {
		c.RemoveLine(key)
		return nil
	}
	if quantity > available {
		return stockError(quantity, available)
	}
	c.Lines[i].Quantity = quantity
	return nil
}

// RemoveLine drops the line. Removing a missing line is a no-op.
func (c *Cart) RemoveLine(key Key) {
	if i := c.index(key); i >= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Lines = []Line{}
}

// Line returns the line for key.
func (c *Cart) Line(key Key) (Line, bool) {
	if i := c.index(key); i >= 0 {
		return c.Lines[i], true
	}
	return Line{}, false
}

func (c *Cart) index(key Key) int {
	for i, l := range c.Lines {
		if l.Key == key {
			return i
		}
	}
	return -1
}

// StockError carries the requested and available quantities.
type StockError struct {
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d", e.Requested, e.Available)
}

// Unwrap lets errors.Is match ErrInsufficientStock.
func (e *StockError) Unwrap() error { return ErrInsufficientStock }

func stockError(requested, available int) error {
	if available < 0 {
		available = 0
	}
	return &StockError{Requested: requested, Available: available}
}
