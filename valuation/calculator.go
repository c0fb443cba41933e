// Package valuation holds the gem valuation arithmetic: the live calculator
// used by the add/edit forms and the rough-weight storage encoding of the
// per-carat value. Everything here is pure and works on shopspring decimals.
package valuation

import (
	"strings"

	"github.com/mmdatafocus/gem_ledger/utils"
	"github.com/shopspring/decimal"
)

type Currency string

const (
	LKR Currency = "LKR"
	USD Currency = "USD"
)

// DefaultUSDRate is LKR per 1 USD when no live or stored rate is available.
var DefaultUSDRate = decimal.NewFromInt(293)

// WeightScale matches the decimal(12,4) weight columns. Weights are rounded
// to it before any value is derived from them.
const WeightScale int32 = 4

// ParseWeight reads a carat weight at the scale it is stored with.
func ParseWeight(s string) decimal.Decimal {
	return utils.DecimalOrZero(s).Round(WeightScale)
}

// ParseCurrency maps anything that is not USD to the reporting currency.
func ParseCurrency(s string) Currency {
	if strings.EqualFold(strings.TrimSpace(s), string(USD)) {
		return USD
	}
	return LKR
}

type ExtraCost struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
	Type   string          `json:"type"`
}

type Input struct {
	WeightCt        decimal.Decimal
	WeightPostCut   decimal.Decimal
	PredictValPerCt decimal.Decimal
	ValueCurrency   Currency
	BuyingPrice     decimal.Decimal
	CostCut         decimal.Decimal
	CostPolish      decimal.Decimal
	CostBurn        decimal.Decimal
	ExtraCosts      []ExtraCost
	CostCurrency    Currency
	UsdRate         decimal.Decimal
}

type Result struct {
	EffectiveWeight decimal.Decimal `json:"effective_weight"`
	ValPerCtLkr     decimal.Decimal `json:"val_per_ct_lkr"`
	ExpensesLkr     decimal.Decimal `json:"expenses_lkr"`
	TotalValueLkr   decimal.Decimal `json:"total_value_lkr"`
	TotalCostLkr    decimal.Decimal `json:"total_cost_lkr"`
	ProfitLkr       decimal.Decimal `json:"profit_lkr"`
	ExpensesUsd     decimal.Decimal `json:"expenses_usd"`
	TotalValueUsd   decimal.Decimal `json:"total_value_usd"`
	TotalCostUsd    decimal.Decimal `json:"total_cost_usd"`
	ProfitUsd       decimal.Decimal `json:"profit_usd"`
	UsdRate         decimal.Decimal `json:"usd_rate"`
}

// EffectiveRate returns the rate, or DefaultUSDRate when it is not positive.
func EffectiveRate(rate decimal.Decimal) decimal.Decimal {
	if rate.IsPositive() {
		return rate
	}
	return DefaultUSDRate
}

// EffectiveWeight is the cut weight once known, the rough weight otherwise.
func EffectiveWeight(weightCt, weightPostCut decimal.Decimal) decimal.Decimal {
	if weightPostCut.IsPositive() {
		return weightPostCut
	}
	return weightCt
}

// ToLKR converts an amount in cur to the reporting currency.
func ToLKR(amount decimal.Decimal, cur Currency, rate decimal.Decimal) decimal.Decimal {
	if cur == USD {
		return amount.Mul(EffectiveRate(rate))
	}
	return amount
}

// RawExpenses sums cut, polish, burn and extras in their input currency.
func (in Input) RawExpenses() decimal.Decimal {
	total := in.CostCut.Add(in.CostPolish).Add(in.CostBurn)
	for _, ec := range in.ExtraCosts {
		total = total.Add(ec.Amount)
	}
	return total
}

func Calculate(in Input) Result {
	rate := EffectiveRate(in.UsdRate)

	effective := EffectiveWeight(in.WeightCt, in.WeightPostCut)
	valPerCtLkr := ToLKR(in.PredictValPerCt, in.ValueCurrency, rate)
	// converted as a whole, not per item
	expensesLkr := ToLKR(in.RawExpenses(), in.CostCurrency, rate)

	totalValue := effective.Mul(valPerCtLkr)
	totalCost := in.BuyingPrice.Add(expensesLkr)
	profit := totalValue.Sub(totalCost)

	return Result{
		EffectiveWeight: effective,
		ValPerCtLkr:     valPerCtLkr,
		ExpensesLkr:     expensesLkr,
		TotalValueLkr:   totalValue,
		TotalCostLkr:    totalCost,
		ProfitLkr:       profit,
		ExpensesUsd:     expensesLkr.Div(rate),
		TotalValueUsd:   totalValue.Div(rate),
		TotalCostUsd:    totalCost.Div(rate),
		ProfitUsd:       profit.Div(rate),
		UsdRate:         rate,
	}
}

// InLKR returns a copy of in whose value and every cost item are expressed in
// LKR. Totals are unchanged; this is the form that gets persisted.
func (in Input) InLKR() Input {
	rate := EffectiveRate(in.UsdRate)
	out := in
	out.UsdRate = rate
	out.PredictValPerCt = ToLKR(in.PredictValPerCt, in.ValueCurrency, rate)
	out.ValueCurrency = LKR
	out.CostCut = ToLKR(in.CostCut, in.CostCurrency, rate)
	out.CostPolish = ToLKR(in.CostPolish, in.CostCurrency, rate)
	out.CostBurn = ToLKR(in.CostBurn, in.CostCurrency, rate)
	out.ExtraCosts = make([]ExtraCost, len(in.ExtraCosts))
	for i, ec := range in.ExtraCosts {
		out.ExtraCosts[i] = ExtraCost{
			Label:  ec.Label,
			Amount: ToLKR(ec.Amount, in.CostCurrency, rate),
			Type:   ec.Type,
		}
	}
	out.CostCurrency = LKR
	return out
}

// ExtraCostForm is one extra cost line as typed by the user.
type ExtraCostForm struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
	Type   string `json:"type"`
}

// Form is the raw calculator form; numbers arrive as text.
type Form struct {
	WeightCt        string          `json:"weight_ct"`
	WeightPostCut   string          `json:"weight_post_cut"`
	PredictValPerCt string          `json:"predict_val_per_ct"`
	ValueCurrency   string          `json:"val_currency"`
	BuyingPrice     string          `json:"buying_price"`
	CostCut         string          `json:"cost_cut"`
	CostPolish      string          `json:"cost_polish"`
	CostBurn        string          `json:"cost_burn"`
	ExtraCosts      []ExtraCostForm `json:"extra_costs"`
	CostCurrency    string          `json:"cost_currency"`
	UsdRate         string          `json:"usd_rate"`
}

// ParseForm never fails: unparseable or empty numbers count as 0 and a
// missing rate falls back to DefaultUSDRate.
func ParseForm(f Form) Input {
	in := Input{
		WeightCt:        ParseWeight(f.WeightCt),
		WeightPostCut:   ParseWeight(f.WeightPostCut),
		PredictValPerCt: utils.DecimalOrZero(f.PredictValPerCt),
		ValueCurrency:   ParseCurrency(f.ValueCurrency),
		BuyingPrice:     utils.DecimalOrZero(f.BuyingPrice),
		CostCut:         utils.DecimalOrZero(f.CostCut),
		CostPolish:      utils.DecimalOrZero(f.CostPolish),
		CostBurn:        utils.DecimalOrZero(f.CostBurn),
		CostCurrency:    ParseCurrency(f.CostCurrency),
		UsdRate:         EffectiveRate(utils.DecimalOrZero(f.UsdRate)),
	}
	for _, ec := range f.ExtraCosts {
		typ := strings.TrimSpace(ec.Type)
		if typ == "" {
			typ = "Other"
		}
		in.ExtraCosts = append(in.ExtraCosts, ExtraCost{
			Label:  strings.TrimSpace(ec.Label),
			Amount: utils.DecimalOrZero(ec.Amount),
			Type:   typ,
		})
	}
	return in
}
