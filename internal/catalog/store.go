package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/money"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/vat"
)

// ErrNotFound indicates the requested product does not exist.
var ErrNotFound = errors.New("product not found")

// DB is the subset of pgxpool.Pool used by Store.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads catalog and pricing reference data from Postgres. It never writes.
type Store struct {
	DB DB
}

const productColumns = `id, name, type, price_ron, stock_quantity, parent_id, status, attribute_value_ids`

// Product loads a single product or variant.
func (s Store) Product(ctx context.Context, id uuid.UUID) (pricing.Product, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id.String())
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return pricing.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// Products loads many products in one query. Missing ids are absent from the map.
func (s Store) Products(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]pricing.Product, error) {
	out := make(map[uuid.UUID]pricing.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.DB.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1::uuid[])`, uuidStrings(ids))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// Variants lists the variants of a configurable product in catalog order.
func (s Store) Variants(ctx context.Context, parentID uuid.UUID) ([]pricing.Product, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+productColumns+` FROM products WHERE parent_id = $1 ORDER BY created_at, id`, parentID.String())
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()
	var out []pricing.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LoadTiersFor fetches the tiers of many products for one customer group.
// pricing.GroupAny selects rows stored without a group.
func (s Store) LoadTiersFor(ctx context.Context, productIDs []uuid.UUID, groupID int64) (map[uuid.UUID][]pricing.Tier, error) {
	out := make(map[uuid.UUID][]pricing.Tier)
	if len(productIDs) == 0 {
		return out, nil
	}
	query := `SELECT product_id, min_quantity, max_quantity, price_ron FROM price_tiers
		WHERE product_id = ANY($1::uuid[]) AND customer_group_id = $2
		ORDER BY product_id, min_quantity`
	args := []any{uuidStrings(productIDs), groupID}
	if groupID == pricing.GroupAny {
		query = `SELECT product_id, min_quantity, max_quantity, price_ron FROM price_tiers
		WHERE product_id = ANY($1::uuid[]) AND customer_group_id IS NULL
		ORDER BY product_id, min_quantity`
		args = args[:1]
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list price tiers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			productID uuid.UUID
			minQty    int32
			maxQty    pgtype.Int4
			price     decimal.Decimal
		)
		if err := rows.Scan(&productID, &minQty, &maxQty, &price); err != nil {
			return nil, fmt.Errorf("scan price tier: %w", err)
		}
		tier := pricing.Tier{MinQuantity: int(minQty), PriceRON: price}
		if maxQty.Valid {
			v := int(maxQty.Int32)
			tier.MaxQuantity = &v
		}
		out[productID] = append(out[productID], tier)
	}
	return out, rows.Err()
}

// Currencies lists every configured currency.
func (s Store) Currencies(ctx context.Context) ([]money.Currency, error) {
	rows, err := s.DB.Query(ctx, `SELECT code, is_base, exchange_rate_to_base, symbol_left, symbol_right, decimal_places, active
		FROM currencies ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	defer rows.Close()
	var out []money.Currency
	for rows.Next() {
		var (
			c      money.Currency
			places int16
		)
		if err := rows.Scan(&c.Code, &c.IsBase, &c.ExchangeRateToBase, &c.SymbolLeft, &c.SymbolRight, &places, &c.Active); err != nil {
			return nil, fmt.Errorf("scan currency: %w", err)
		}
		c.DecimalPlaces = int32(places)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CustomerGroups lists customer groups.
func (s Store) CustomerGroups(ctx context.Context) ([]vat.CustomerGroup, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, code, is_default, vat_treatment FROM customer_groups ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list customer groups: %w", err)
	}
	defer rows.Close()
	var out []vat.CustomerGroup
	for rows.Next() {
		var (
			g         vat.CustomerGroup
			treatment string
		)
		if err := rows.Scan(&g.ID, &g.Code, &g.Default, &treatment); err != nil {
			return nil, fmt.Errorf("scan customer group: %w", err)
		}
		if g.Treatment, err = vat.ParseTreatment(treatment); err != nil {
			return nil, fmt.Errorf("customer group %s: %w", g.Code, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// VatRates lists the VAT table.
func (s Store) VatRates(ctx context.Context) ([]vat.Rate, error) {
	rows, err := s.DB.Query(ctx, `SELECT country_id, customer_group_id, rate FROM vat_rates ORDER BY country_id, customer_group_id NULLS FIRST`)
	if err != nil {
		return nil, fmt.Errorf("list vat rates: %w", err)
	}
	defer rows.Close()
	var out []vat.Rate
	for rows.Next() {
		var (
			r     vat.Rate
			group pgtype.Int8
		)
		if err := rows.Scan(&r.CountryID, &group, &r.Rate); err != nil {
			return nil, fmt.Errorf("scan vat rate: %w", err)
		}
		if group.Valid {
			id := group.Int64
			r.CustomerGroupID = &id
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (pricing.Product, error) {
	var (
		p        pricing.Product
		kind     string
		parentID uuid.NullUUID
		stock    int32
	)
	if err := row.Scan(&p.ID, &p.Name, &kind, &p.PriceRON, &stock, &parentID, &p.Active, &p.AttributeValueIDs); err != nil {
		return pricing.Product{}, err
	}
	t, err := pricing.ParseProductType(kind)
	if err != nil {
		return pricing.Product{}, err
	}
	p.Type = t
	p.StockQuantity = int(stock)
	if parentID.Valid {
		id := parentID.UUID
		p.ParentID = &id
	}
	return p, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
