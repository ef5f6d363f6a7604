package venue

import (
	"context"
	"errors"

	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/model"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/pkg/apperrors"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/valuation"
	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
)

// BinanceAdapter wraps the go-binance client. The SDK handles the
// HMAC-signed query string and millisecond timestamp; this adapter owns
// error classification and snapshot shaping.
type BinanceAdapter struct {
	baseURL string
}

func NewBinanceAdapter(baseURL string) *BinanceAdapter {
	return &BinanceAdapter{baseURL: baseURL}
}

func (a *BinanceAdapter) Name() string { return Binance }

func (a *BinanceAdapter) FetchBalances(ctx context.Context, creds model.Credentials) (*Snapshot, error) {
	client := binance.NewClient(creds.APIKey, creds.APISecret)
	if a.baseURL != "" {
		client.BaseURL = a.baseURL
	}

	account, err := client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, classifyBinanceError(err)
	}

	listing, err := client.NewListPricesService().Do(ctx)
	if err != nil {
		return nil, classifyBinanceError(err)
	}

	raw := make([]RawBalance, 0, len(account.Balances))
	for _, b := range account.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			return nil, apperrors.New(apperrors.ErrSchema, "binance: unparseable free balance for "+b.Asset, err)
		}
		locked, err := decimal.NewFromString(b.Locked)
		if err != nil {
			return nil, apperrors.New(apperrors.ErrSchema, "binance: unparseable locked balance for "+b.Asset, err)
		}
		if free.IsZero() && locked.IsZero() {
			continue
		}
		raw = append(raw, RawBalance{Asset: b.Asset, Free: free, Locked: locked})
	}

	prices := make(valuation.Snapshot, len(listing))
	for _, p := range listing {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			continue
		}
		// Binance symbols are already canonical concatenations.
		prices[p.Symbol] = price
	}

	return &Snapshot{Balances: raw, Prices: prices}, nil
}

// classifyBinanceError maps the SDK's APIError codes onto the taxonomy.
// -1021 (timestamp outside recvWindow) is the venue's flavor of a replay
// conflict: self-resolving, so it takes the short backoff.
func classifyBinanceError(err error) *apperrors.AppError {
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		return apperrors.New(apperrors.ErrUpstream, "binance: request failed", err)
	}

	switch apiErr.Code {
	case -1003: // TOO_MANY_REQUESTS
		return apperrors.New(apperrors.ErrRateLimited, "binance: "+apiErr.Message, err)
	case -1021: // INVALID_TIMESTAMP
		return apperrors.New(apperrors.ErrNonce, "binance: "+apiErr.Message, err)
	case -1022, -2014, -2015: // bad signature / bad key / permissions
		return apperrors.New(apperrors.ErrAuthReject, "binance: "+apiErr.Message, err)
	default:
		return apperrors.New(apperrors.ErrUpstream, "binance: "+apiErr.Message, err)
	}
}
