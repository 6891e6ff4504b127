package port

import (
	"wallet_client/internal/domain/entity"
)

// NetworkProvider exposes the static fee and deposit-limit tables.
type NetworkProvider interface {
	// NetworksForAsset returns the asset's networks in table order; the first is the primary one.
	NetworksForAsset(symbol string) []entity.Network

	// Network returns one (asset, network) definition.
	Network(symbol, networkID string) (entity.Network, bool)

	// DepositLimit returns min/max deposit for (asset, network).
	DepositLimit(symbol, networkID string) (entity.DepositLimit, bool)

	// CurrencyByKey resolves a backend currency key ("usdt") to a known currency.
	CurrencyByKey(key string) (entity.Currency, bool)
}

// AddressValidator checks a recipient address against a network's format.
type AddressValidator interface {
	Validate(network entity.Network, address string) error
}
