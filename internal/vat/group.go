package vat

import (
	"fmt"
	"strings"
)

// Treatment describes how a customer group's prices carry VAT.
type Treatment int

const (
	// Inclusive groups see prices with VAT included (B2C).
	Inclusive Treatment = iota + 1
	// Exclusive groups see net prices and pay VAT on the invoice.
	Exclusive
	// Exempt groups are not charged VAT (reverse charge, export).
	Exempt
)

// String returns the stored representation.
func (t Treatment) String() string {
	switch t {
	case Inclusive:
		return "inclusive"
	case Exclusive:
		return "exclusive"
	case Exempt:
		return "exempt"
	default:
		return "unknown"
	}
}

// ParseTreatment reads the stored representation of a treatment.
func ParseTreatment(value string) (Treatment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "inclusive", "incl":
		return Inclusive, nil
	case "exclusive", "excl":
		return Exclusive, nil
	case "exempt":
		return Exempt, nil
	default:
		return 0, fmt.Errorf("unknown vat treatment %q", value)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Treatment) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Treatment) UnmarshalText(b []byte) error {
	parsed, err := ParseTreatment(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// CustomerGroup drives VAT display and tier selection.
type CustomerGroup struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Default   bool      `json:"default"`
	Treatment Treatment `json:"vat_treatment"`
}

// Groups indexes customer groups and remembers the default (B2C) one.
type Groups struct {
	byID   map[int64]CustomerGroup
	byCode map[string]CustomerGroup
	def    CustomerGroup
	hasDef bool
}

// NewGroups indexes groups; exactly one must be flagged default.
func NewGroups(list []CustomerGroup) (*Groups, error) {
	g := &Groups{byID: make(map[int64]CustomerGroup, len(list)), byCode: make(map[string]CustomerGroup, len(list))}
	for _, grp := range list {
		g.byID[grp.ID] = grp
		g.byCode[strings.ToLower(grp.Code)] = grp
		if grp.Default {
			if g.hasDef {
				return nil, fmt.Errorf("customer groups: more than one default group")
			}
			g.def = grp
			g.hasDef = true
		}
	}
	if !g.hasDef {
		return nil, fmt.Errorf("customer groups: no default group")
	}
	return g, nil
}

// Default returns the B2C group.
func (g *Groups) Default() CustomerGroup { return g.def }

// ByID resolves a group by identifier.
func (g *Groups) ByID(id int64) (CustomerGroup, bool) {
	grp, ok := g.byID[id]
	return grp, ok
}

// ByCode resolves a group by its code, case-insensitively.
func (g *Groups) ByCode(code string) (CustomerGroup, bool) {
	grp, ok := g.byCode[strings.ToLower(strings.TrimSpace(code))]
	return grp, ok
}
