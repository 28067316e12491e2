package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/db"
	"github.com/noah-isme/toko-pricing/internal/obs"
)

// seedNamespace derives stable product ids so the seeder can be re-run.
var seedNamespace = uuid.MustParse("5f0c2d52-6f0e-4a53-8f5e-8a0e5d8f3c11")

type currency struct {
	Code        string
	Base        bool
	Rate        string
	SymbolLeft  string
	SymbolRight string
	Places      int16
	Active      bool
}

type group struct {
	Code      string
	Default   bool
	Treatment string
}

type rate struct {
	Country string
	Group   string
	Rate    string
}

type tier struct {
	Group string
	Min   int
	Max   int
	Price string
}

type product struct {
	Slug     string
	Name     string
	Price    string
	Stock    int
	Tiers    []tier
	Variants []product
}

var (
	currencies = []currency{
		{"RON", true, "1", "", " lei", 2, true},
		{"EUR", false, "0.2", "€", "", 2, true},
		{"USD", false, "0.2178", "$", "", 2, true},
		{"HUF", false, "78.5", "", " Ft", 0, true},
		{"GBP", false, "0.1712", "£", "", 2, false},
	}
	groups = []group{
		{"B2C", true, "inclusive"},
		{"B2B", false, "exclusive"},
		{"EXPORT", false, "exempt"},
	}
	rates = []rate{
		{"RO", "", "19"},
		{"HU", "", "27"},
		{"BG", "", "20"},
		{"BG", "B2B", "9"},
		{"DE", "", "19"},
		{"FR", "", "20"},
	}
	catalog = []product{
		{
			Slug: "ceramic-mug", Name: "Ceramic Mug", Price: "45.00", Stock: 240,
			Tiers: []tier{
				{"", 10, 49, "40.00"},
				{"", 50, 0, "36.00"},
				{"B2B", 50, 0, "32.50"},
			},
		},
		{Slug: "desk-lamp", Name: "Desk Lamp", Price: "189.90", Stock: 18},
		{Slug: "gift-card", Name: "Gift Card", Price: "100.00", Stock: 1000},
		{
			Slug: "linen-shirt", Name: "Linen Shirt", Price: "0", Stock: 0,
			Variants: []product{
				{Slug: "linen-shirt-s", Name: "Linen Shirt S", Price: "120.00", Stock: 0},
				{Slug: "linen-shirt-m", Name: "Linen Shirt M", Price: "95.00", Stock: 5},
				{Slug: "linen-shirt-l", Name: "Linen Shirt L", Price: "140.00", Stock: 2},
			},
		},
	}
)

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger("console", "info")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}
	if err := db.Migrate(dbURL, logger); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer conn.Close(context.Background())

	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		if err := seedCurrencies(ctx, tx); err != nil {
			return err
		}
		groupIDs, err := seedGroups(ctx, tx)
		if err != nil {
			return err
		}
		if err := seedRates(ctx, tx, groupIDs); err != nil {
			return err
		}
		return seedCatalog(ctx, tx, groupIDs)
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("seed")
	}
	logger.Info().
		Int("currencies", len(currencies)).
		Int("customer_groups", len(groups)).
		Int("vat_rates", len(rates)).
		Int("products", len(catalog)).
		Msg("seeding completed")
}

func seedCurrencies(ctx context.Context, tx pgx.Tx) error {
	for _, c := range currencies {
		_, err := tx.Exec(ctx, `
			INSERT INTO currencies (code, is_base, exchange_rate_to_base, symbol_left, symbol_right, decimal_places, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (code) DO UPDATE SET
				exchange_rate_to_base = EXCLUDED.exchange_rate_to_base,
				symbol_left = EXCLUDED.symbol_left,
				symbol_right = EXCLUDED.symbol_right,
				decimal_places = EXCLUDED.decimal_places,
				active = EXCLUDED.active`,
			c.Code, c.Base, decimal.RequireFromString(c.Rate), c.SymbolLeft, c.SymbolRight, c.Places, c.Active)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedGroups(ctx context.Context, tx pgx.Tx) (map[string]int64, error) {
	ids := make(map[string]int64, len(groups))
	for _, g := range groups {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO customer_groups (code, is_default, vat_treatment)
			VALUES ($1, $2, $3)
			ON CONFLICT (code) DO UPDATE SET vat_treatment = EXCLUDED.vat_treatment
			RETURNING id`,
			g.Code, g.Default, g.Treatment).Scan(&id)
		if err != nil {
			return nil, err
		}
		ids[g.Code] = id
	}
	return ids, nil
}

func seedRates(ctx context.Context, tx pgx.Tx, groupIDs map[string]int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM vat_rates`); err != nil {
		return err
	}
	for _, r := range rates {
		if _, err := tx.Exec(ctx, `INSERT INTO vat_rates (country_id, customer_group_id, rate) VALUES ($1, $2, $3)`,
			r.Country, groupRef(groupIDs, r.Group), decimal.RequireFromString(r.Rate)); err != nil {
			return err
		}
	}
	return nil
}

func seedCatalog(ctx context.Context, tx pgx.Tx, groupIDs map[string]int64) error {
	for _, p := range catalog {
		kind := "simple"
		if len(p.Variants) > 0 {
			kind = "configurable"
		}
		parentID, err := upsertProduct(ctx, tx, p, kind, nil, groupIDs)
		if err != nil {
			return err
		}
		for i, v := range p.Variants {
			v.Slug = p.Slug + "/" + v.Slug
			if _, err := upsertProduct(ctx, tx, v, "variant", &parentID, groupIDs, int64(i+1)); err != nil {
				return err
			}
		}
	}
	return nil
}

func upsertProduct(ctx context.Context, tx pgx.Tx, p product, kind string, parentID *uuid.UUID, groupIDs map[string]int64, attributes ...int64) (uuid.UUID, error) {
	id := uuid.NewSHA1(seedNamespace, []byte(p.Slug))
	var parent any
	if parentID != nil {
		parent = parentID.String()
	}
	if attributes == nil {
		attributes = []int64{}
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO products (id, name, type, price_ron, stock_quantity, parent_id, status, attribute_value_ids)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price_ron = EXCLUDED.price_ron,
			stock_quantity = EXCLUDED.stock_quantity`,
		id.String(), p.Name, kind, decimal.RequireFromString(p.Price), p.Stock, parent, attributes)
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM price_tiers WHERE product_id = $1`, id.String()); err != nil {
		return uuid.Nil, err
	}
	for _, t := range p.Tiers {
		var upper any
		if t.Max > 0 {
			upper = t.Max
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO price_tiers (product_id, customer_group_id, min_quantity, max_quantity, price_ron)
			VALUES ($1, $2, $3, $4, $5)`,
			id.String(), groupRef(groupIDs, t.Group), t.Min, upper, decimal.RequireFromString(t.Price)); err != nil {
			return uuid.Nil, err
		}
	}
	return id, nil
}

func groupRef(ids map[string]int64, code string) any {
	if code == "" {
		return nil
	}
	return ids[code]
}
