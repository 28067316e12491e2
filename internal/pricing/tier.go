package pricing

import (
	"slices"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/money"
)

// GroupAny keys tiers stored without a customer group.
const GroupAny int64 = 0

// Tier is a quantity breakpoint with its own unit price. A nil MaxQuantity is unbounded.
type Tier struct {
	MinQuantity int             `json:"min_quantity"`
	MaxQuantity *int            `json:"max_quantity"`
	PriceRON    decimal.Decimal `json:"price_ron"`
}

// QuantityRange renders "10-49" or "50+".
func (t Tier) QuantityRange() string {
	if t.MaxQuantity == nil {
		return strconv.Itoa(t.MinQuantity) + "+"
	}
	if *t.MaxQuantity == t.MinQuantity {
		return strconv.Itoa(t.MinQuantity)
	}
	return strconv.Itoa(t.MinQuantity) + "-" + strconv.Itoa(*t.MaxQuantity)
}

// Selection is the outcome of tier selection for a quantity.
type Selection struct {
	UnitPrice       money.Money
	Active          *Tier
	ActiveIndex     int
	ItemsToNextTier *int
	Tiers           []Tier
}

// SelectTier picks the tier with the greatest MinQuantity not above quantity.
// Without a match the base price applies and ActiveIndex is -1.
func SelectTier(tiers []Tier, quantity int, basePrice money.Money) Selection {
	ordered := slices.Clone(tiers)
	slices.SortStableFunc(ordered, func(a, b Tier) int { return a.MinQuantity - b.MinQuantity })

	sel := Selection{UnitPrice: basePrice, ActiveIndex: -1, Tiers: ordered}
	for i := len(ordered) - 1; i >= 0; i-- {
		if quantity >= ordered[i].MinQuantity {
			tier := ordered[i]
			sel.Active = &tier
			sel.ActiveIndex = i
			sel.UnitPrice = money.RON(tier.PriceRON)
			break
		}
	}
	for i := sel.ActiveIndex + 1; i < len(ordered); i++ {
		if sel.Active != nil && ordered[i].MinQuantity <= sel.Active.MinQuantity {
			continue
		}
		n := ordered[i].MinQuantity - quantity
		sel.ItemsToNextTier = &n
		break
	}
	return sel
}

// TierBook holds prefetched tiers by product and customer group.
type TierBook map[uuid.UUID]map[int64][]Tier

// Add stores tiers for a product and group. GroupAny stands for group-less rows.
func (b TierBook) Add(productID uuid.UUID, groupID int64, tiers []Tier) {
	if len(tiers) == 0 {
		return
	}
	byGroup, ok := b[productID]
	if !ok {
		byGroup = map[int64][]Tier{}
		b[productID] = byGroup
	}
	byGroup[groupID] = append(byGroup[groupID], tiers...)
}

// Merge copies a batch loaded for one group into the book.
func (b TierBook) Merge(groupID int64, batch map[uuid.UUID][]Tier) {
	for productID, tiers := range batch {
		b.Add(productID, groupID, tiers)
	}
}

// For returns the group's tiers, falling back to the default group and then to group-less tiers.
func (b TierBook) For(productID uuid.UUID, groupID, defaultGroupID int64) []Tier {
	byGroup := b[productID]
	if len(byGroup) == 0 {
		return nil
	}
	if tiers := byGroup[groupID]; len(tiers) > 0 {
		return tiers
	}
	if tiers := byGroup[defaultGroupID]; len(tiers) > 0 {
		return tiers
	}
	return byGroup[GroupAny]
}
