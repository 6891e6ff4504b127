package entity

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NetworkBalance is the balance of one asset on one network.
type NetworkBalance struct {
	Balance  decimal.Decimal `json:"balance"`
	USDValue decimal.Decimal `json:"usdValue"`
}

// Asset is an immutable snapshot of a tradable asset built from one balance payload.
// It has no identity beyond Symbol.
type Asset struct {
	Key               string                    `json:"key"` // backend currency key, e.g. "usdt"
	Symbol            string                    `json:"symbol"`
	DisplayName       string                    `json:"displayName"`
	USDPrice          decimal.Decimal           `json:"usdPrice"`
	Pct24hChange      decimal.Decimal           `json:"pct24hChange"`
	NetworkOrder      []string                  `json:"networkOrder"`
	PerNetwork        map[string]NetworkBalance `json:"perNetworkBalance"`
	AggregateBalance  decimal.Decimal           `json:"aggregateBalance"`
	AggregateUSDValue decimal.Decimal           `json:"aggregateUsdValue"`
	FormattedBalance  string                    `json:"formattedBalance"`  // 6 fixed decimals
	FormattedUSDValue string                    `json:"formattedUsdValue"` // shortest exact decimal
}

// NetworkBalance returns the balance held on networkID, zero when absent.
func (a Asset) NetworkBalance(networkID string) decimal.Decimal {
	if nb, ok := a.PerNetwork[networkID]; ok {
		return nb.Balance
	}
	return decimal.Zero
}

// WalletAddresses maps currency key -> network id -> deposit address.
type WalletAddresses map[string]map[string]string

// Lookup returns the wallet's own address for (currencyKey, networkID).
func (w WalletAddresses) Lookup(currencyKey, networkID string) (string, bool) {
	byNetwork, ok := w[currencyKey]
	if !ok {
		return "", false
	}
	addr, ok := byNetwork[networkID]
	return addr, ok && addr != ""
}

// CatalogSnapshot is what readers of the asset catalog see at one point in time.
type CatalogSnapshot struct {
	LastUpdated uint64          `json:"lastUpdated"`
	Assets      []Asset         `json:"assets"`
	Addresses   WalletAddresses `json:"addresses"`
	Placeholder bool            `json:"placeholder"`
}

// AssetBySymbol finds an asset in the snapshot.
func (s CatalogSnapshot) AssetBySymbol(symbol string) (Asset, bool) {
	for _, a := range s.Assets {
		if strings.EqualFold(a.Symbol, symbol) {
			return a, true
		}
	}
	return Asset{}, false
}
