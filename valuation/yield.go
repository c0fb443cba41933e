package valuation

import "github.com/shopspring/decimal"

// StoredValuePerCt re-bases a total value onto the rough weight. This is what
// gets persisted as predict_val_per_ct_lkr.
func StoredValuePerCt(totalValueLkr, weightCt decimal.Decimal) decimal.Decimal {
	if !weightCt.IsPositive() {
		return decimal.Zero
	}
	return totalValueLkr.Div(weightCt)
}

// DisplayValuePerCt inverts StoredValuePerCt for editing: with both weights
// known it returns the cut-carat value the user originally entered.
func DisplayValuePerCt(stored, weightCt, weightPostCut decimal.Decimal) decimal.Decimal {
	if weightCt.IsZero() || weightPostCut.IsZero() {
		return stored
	}
	return stored.Mul(weightCt).Div(weightPostCut)
}

// Encode runs the calculator and returns the per-rough-carat LKR value to store.
func Encode(in Input) (Result, decimal.Decimal) {
	res := Calculate(in)
	return res, StoredValuePerCt(res.TotalValueLkr, in.WeightCt)
}
