package pricing

import "github.com/noah-isme/toko-pricing/internal/money"

// Totals aggregates priced lines in the display currency.
type Totals struct {
	SubtotalExcl money.Money
	SubtotalIncl money.Money
	VatAmount    money.Money
	ItemCount    int
	LineCount    int
}

// Compute folds line breakdowns into cart totals. All lines must share the currency.
func Compute(currency string, lines []Breakdown) (Totals, error) {
	t := Totals{
		SubtotalExcl: money.Zero(currency),
		SubtotalIncl: money.Zero(currency),
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		var err error
		if t.SubtotalExcl, err = t.SubtotalExcl.Add(line.TotalExcl); err != nil {
			return Totals{}, err
		}
		if t.SubtotalIncl, err = t.SubtotalIncl.Add(line.TotalIncl); err != nil {
			return Totals{}, err
		}
		t.ItemCount += line.Quantity
		t.LineCount++
	}
	vatAmount, err := t.SubtotalIncl.Sub(t.SubtotalExcl)
	if err != nil {
		return Totals{}, err
	}
	t.VatAmount = vatAmount
	return t, nil
}
