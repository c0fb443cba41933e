package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/gem_ledger/config"
	"github.com/mmdatafocus/gem_ledger/utils"
	"github.com/mmdatafocus/gem_ledger/valuation"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RateSourceLive    = "live"
	RateSourceManual  = "manual"
	RateSourceDefault = "default"

	// cached under CurrencyRate:latest
	latestRateId = "latest"
)

// CurrencyRate is every successful live fetch and every manual entry.
type CurrencyRate struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	Base      string          `gorm:"size:3;not null;default:USD" json:"base"`
	Quote     string          `gorm:"size:3;not null;default:LKR" json:"quote"`
	Rate      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"rate"`
	Source    string          `gorm:"size:10;not null" json:"source"`
	FetchedAt time.Time       `gorm:"index;not null" json:"fetched_at"`
}

type NewCurrencyRate struct {
	Rate decimal.Decimal `json:"rate"`
}

// RateQuote is what the rate endpoint answers.
type RateQuote struct {
	Rate      decimal.Decimal `json:"rate"`
	Source    string          `json:"source"`
	Stale     bool            `json:"stale"`
	FetchedAt *time.Time      `json:"fetched_at"`
}

// RateFetcher is satisfied by rates.Fetcher.
type RateFetcher interface {
	FetchUSDToLKR(ctx context.Context) (decimal.Decimal, bool)
}

func (r *CurrencyRate) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Base == "" {
		r.Base = string(valuation.USD)
	}
	if r.Quote == "" {
		r.Quote = string(valuation.LKR)
	}
	if r.FetchedAt.IsZero() {
		r.FetchedAt = time.Now()
	}
	return nil
}

func recordRate(ctx context.Context, rate decimal.Decimal, source string) (*CurrencyRate, error) {
	row := CurrencyRate{Rate: rate, Source: source}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	if err := utils.StoreRedis(&row, latestRateId); err != nil {
		config.LogError(config.GetLogger(), "models", "recordRate", "cache latest rate", row.ID, err)
	}
	return &row, nil
}

// RecordManualRate stores an admin-entered rate.
func RecordManualRate(ctx context.Context, input *NewCurrencyRate) (*CurrencyRate, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if !input.Rate.IsPositive() {
		return nil, utils.NewValidationError("rate", "gt=0")
	}
	return recordRate(ctx, input.Rate, RateSourceManual)
}

// LatestRate returns ErrorRecordNotFound when no rate was ever stored.
func LatestRate(ctx context.Context) (*CurrencyRate, error) {
	if cached, err := utils.RetrieveRedis[CurrencyRate](latestRateId); err == nil && cached != nil {
		return cached, nil
	}
	db := config.GetDB()
	var row CurrencyRate
	err := db.WithContext(ctx).Order("fetched_at DESC").Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	_ = utils.StoreRedis(&row, latestRateId)
	return &row, nil
}

// DefaultRate reads DEFAULT_USD_RATE, falling back to 293.
func DefaultRate() decimal.Decimal {
	if v := config.StringFromEnv("DEFAULT_USD_RATE", ""); v != "" {
		if d, err := utils.ParseDecimal(v); err == nil && d.IsPositive() {
			return d
		}
	}
	return valuation.DefaultUSDRate
}

// CurrentRate never calls out: latest stored rate, else the default.
func CurrentRate(ctx context.Context) RateQuote {
	row, err := LatestRate(ctx)
	if err != nil {
		if !errors.Is(err, utils.ErrorRecordNotFound) {
			config.LogError(config.GetLogger(), "models", "CurrentRate", "latest rate", nil, err)
		}
		return RateQuote{Rate: DefaultRate(), Source: RateSourceDefault}
	}
	return RateQuote{Rate: row.Rate, Source: row.Source, FetchedAt: &row.FetchedAt}
}

// ResolveRate tries one live fetch, then the latest stored rate (stale), then
// the default.
func ResolveRate(ctx context.Context, fetcher RateFetcher) RateQuote {
	ctx, span := startSpan(ctx, "models.ResolveRate")
	defer span.End()

	if rate, ok := fetcher.FetchUSDToLKR(ctx); ok {
		quote := RateQuote{Rate: rate, Source: RateSourceLive}
		row, err := recordRate(ctx, rate, RateSourceLive)
		if err != nil {
			config.LogError(config.GetLogger(), "models", "ResolveRate", "record live rate", rate.String(), err)
			now := time.Now()
			quote.FetchedAt = &now
			return quote
		}
		quote.FetchedAt = &row.FetchedAt
		return quote
	}

	quote := CurrentRate(ctx)
	quote.Stale = quote.Source != RateSourceDefault
	return quote
}
