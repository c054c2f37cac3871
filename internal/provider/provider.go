package provider

import (
	"context"
	"errors"
	"time"

	"stockticker/internal/symbol"
)

// Source identifies the upstream that produced a Quote.
type Source string

const (
	SourceTencent Source = "tencent"
	SourceSina    Source = "sina"
)

// Quote is the normalized shape returned by all providers.
// Optional metrics are nil when the upstream payload cannot support them.
type Quote struct {
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	Price           float64         `json:"price"`
	Change          float64         `json:"change"`
	ChangePercent   float64         `json:"change_percent"`
	BidAskImbalance *float64        `json:"bid_ask_imbalance"`
	VolumeRatio     *float64        `json:"volume_ratio"`
	Currency        symbol.Currency `json:"currency"`
	UpdatedAt       *string         `json:"updated_at"`
	Source          Source          `json:"source"`
	ReceivedAt      time.Time       `json:"received_at"`
}

// Provider looks up a single raw symbol. Implementations return an error
// wrapping one of the sentinels below whenever no usable quote was produced.
//
//go:generate mockgen -package=mocks -destination=../mocks/mock_provider.go -source=provider.go Provider
type Provider interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (*Quote, error)
}

var (
	// ErrUnsupported means the provider has no wire code for the symbol.
	ErrUnsupported = errors.New("symbol not supported by provider")
	// ErrTransport covers connection failures and non-success statuses.
	ErrTransport = errors.New("transport failure")
	// ErrDecode covers charset failures and a missing payload wrapper.
	ErrDecode = errors.New("decode failure")
	// ErrParse covers short payloads and unparsable required fields.
	ErrParse = errors.New("parse failure")
	// ErrNoQuote means the upstream answered but had no valid price.
	ErrNoQuote = errors.New("no quote")
)
