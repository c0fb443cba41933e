package models

import (
	"context"
	"sort"

	"github.com/mmdatafocus/gem_ledger/utils"
	"github.com/shopspring/decimal"
)

// MoneyFigure is an LKR amount plus its display string.
type MoneyFigure struct {
	Amount  decimal.Decimal `json:"amount"`
	Display string          `json:"display"`
}

func lkrFigure(d decimal.Decimal) MoneyFigure {
	return MoneyFigure{Amount: d, Display: utils.FormatLKR(d)}
}

type StockMetrics struct {
	Count  int         `json:"count"`
	Value  MoneyFigure `json:"value"`
	Cost   MoneyFigure `json:"cost"`
	Profit MoneyFigure `json:"profit"`
}

type DashboardMetrics struct {
	TotalCapital MoneyFigure  `json:"total_capital"`
	Active       StockMetrics `json:"active"`
	Sold         StockMetrics `json:"sold"`
}

type GemTypeStats struct {
	GemType       string          `json:"gem_type"`
	Count         int             `json:"count"`
	AvgBuying     decimal.Decimal `json:"avg_buying"`
	AvgProcessing decimal.Decimal `json:"avg_processing"`
	AvgValPerCt   decimal.Decimal `json:"avg_val_per_ct"`
	AvgProfit     decimal.Decimal `json:"avg_profit"`
	RoiPercent    decimal.Decimal `json:"roi_percent"`
}

func stockMetrics(items []*InventoryItem) StockMetrics {
	value, cost := decimal.Zero, decimal.Zero
	for _, item := range items {
		value = value.Add(item.TotalValue())
		cost = cost.Add(item.TotalCost())
	}
	return StockMetrics{
		Count:  len(items),
		Value:  lkrFigure(value),
		Cost:   lkrFigure(cost),
		Profit: lkrFigure(value.Sub(cost)),
	}
}

// ComputeDashboard splits items into active (anything not Sold) and sold.
func ComputeDashboard(items []*InventoryItem, totalCapital decimal.Decimal) DashboardMetrics {
	var active, sold []*InventoryItem
	for _, item := range items {
		if item.IsSold() {
			sold = append(sold, item)
		} else {
			active = append(active, item)
		}
	}
	return DashboardMetrics{
		TotalCapital: lkrFigure(totalCapital),
		Active:       stockMetrics(active),
		Sold:         stockMetrics(sold),
	}
}

// ComputeGemTypeStats groups sold items by gem type, most sold first.
func ComputeGemTypeStats(items []*InventoryItem) []GemTypeStats {
	type acc struct {
		count                            int
		buying, processing, valPerCt, pl decimal.Decimal
	}
	groups := map[string]*acc{}
	for _, item := range items {
		if !item.IsSold() {
			continue
		}
		a, ok := groups[item.GemType]
		if !ok {
			a = &acc{}
			groups[item.GemType] = a
		}
		a.count++
		a.buying = a.buying.Add(item.BuyingPrice)
		a.processing = a.processing.Add(item.PredictTotalCostLkr)
		a.valPerCt = a.valPerCt.Add(item.PredictValPerCtLkr)
		a.pl = a.pl.Add(item.TotalValue().Sub(item.TotalCost()))
	}

	stats := make([]GemTypeStats, 0, len(groups))
	hundred := decimal.NewFromInt(100)
	for gemType, a := range groups {
		n := decimal.NewFromInt(int64(a.count))
		s := GemTypeStats{
			GemType:       gemType,
			Count:         a.count,
			AvgBuying:     a.buying.Div(n),
			AvgProcessing: a.processing.Div(n),
			AvgValPerCt:   a.valPerCt.Div(n),
			AvgProfit:     a.pl.Div(n),
			RoiPercent:    decimal.Zero,
		}
		if basis := s.AvgBuying.Add(s.AvgProcessing); !basis.IsZero() {
			s.RoiPercent = s.AvgProfit.Div(basis).Mul(hundred)
		}
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].GemType < stats[j].GemType
	})
	return stats
}

// GetDashboard applies the inventory search before computing metrics; total
// capital is never filtered.
func GetDashboard(ctx context.Context, q string) (*DashboardMetrics, error) {
	ctx, span := startSpan(ctx, "models.GetDashboard")
	var err error
	defer func() { endSpan(span, err) }()

	var items []*InventoryItem
	if items, err = ListInventoryItems(ctx, InventoryFilter{Query: q}); err != nil {
		return nil, err
	}
	var total decimal.Decimal
	if total, err = TotalCapital(ctx); err != nil {
		return nil, err
	}
	metrics := ComputeDashboard(items, total)
	return &metrics, nil
}

func GetGemTypeStats(ctx context.Context) ([]GemTypeStats, error) {
	items, err := ListInventoryItems(ctx, InventoryFilter{Status: GemStatusSold})
	if err != nil {
		return nil, err
	}
	return ComputeGemTypeStats(items), nil
}
