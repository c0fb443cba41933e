// Package rates fetches the live USD to LKR exchange rate.
package rates

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/go-resty/resty/v2"
	"github.com/mmdatafocus/gem_ledger/config"
	"github.com/shopspring/decimal"
)

const (
	DefaultURL      = "https://open.er-api.com/v6/latest/USD"
	DefaultJSONPath = "$.rates.LKR"
)

type Fetcher struct {
	url    string
	path   string
	client *resty.Client
}

// NewFetcher reads RATE_API_URL and RATE_JSON_PATH.
func NewFetcher() *Fetcher {
	return NewFetcherFor(
		config.StringFromEnv("RATE_API_URL", DefaultURL),
		config.StringFromEnv("RATE_JSON_PATH", DefaultJSONPath),
	)
}

func NewFetcherFor(url, path string) *Fetcher {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	return &Fetcher{url: url, path: path, client: client}
}

// FetchUSDToLKR issues exactly one request. Any failure is logged and
// reported as ok=false so the caller keeps its current rate.
func (f *Fetcher) FetchUSDToLKR(ctx context.Context) (rate decimal.Decimal, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			config.LogError(config.GetLogger(), "rates", "FetchUSDToLKR", "panic", f.url, fmt.Errorf("%v", r))
			rate, ok = decimal.Zero, false
		}
	}()

	rate, err := f.fetch(ctx)
	if err != nil {
		config.LogError(config.GetLogger(), "rates", "FetchUSDToLKR", "fetch rate", f.url, err)
		return decimal.Zero, false
	}
	return rate, true
}

func (f *Fetcher) fetch(ctx context.Context) (decimal.Decimal, error) {
	resp, err := f.client.R().SetContext(ctx).Get(f.url)
	if err != nil {
		return decimal.Zero, err
	}
	if !resp.IsSuccess() {
		return decimal.Zero, fmt.Errorf("rate api status %d", resp.StatusCode())
	}
	return extractRate(resp.Body(), f.path)
}

func extractRate(body []byte, path string) (decimal.Decimal, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var jobj any
	if err := dec.Decode(&jobj); err != nil {
		return decimal.Zero, fmt.Errorf("decode rate payload: %w", err)
	}
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rate path %q: %w", path, err)
	}
	// jsonpath may wrap a single answer in a list
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return decimal.Zero, fmt.Errorf("rate path %q: no match", path)
		}
		jval = jlist[0]
	}

	var rate decimal.Decimal
	switch v := jval.(type) {
	case json.Number:
		rate, err = decimal.NewFromString(v.String())
	case float64:
		rate = decimal.NewFromFloat(v)
	case string:
		rate, err = decimal.NewFromString(v)
	default:
		err = fmt.Errorf("rate path %q: unexpected value %v", path, jval)
	}
	if err != nil {
		return decimal.Zero, err
	}
	if !rate.IsPositive() {
		return decimal.Zero, errors.New("rate must be positive")
	}
	return rate, nil
}
