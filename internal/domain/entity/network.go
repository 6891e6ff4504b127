package entity

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AddressFamily groups networks that share a recipient address format.
type AddressFamily string

const (
	AddressFamilyEVM     AddressFamily = "evm"
	AddressFamilyBitcoin AddressFamily = "bitcoin"
	AddressFamilySolana  AddressFamily = "solana"
	AddressFamilyTron    AddressFamily = "tron"
)

// Network is a static (asset, network) definition: how an asset moves on one chain,
// what the platform charges for it and what the deposit limits are.
// Definitions are keyed by (AssetSymbol, ID) and never mutated at runtime.
type Network struct {
	ID                 string          `json:"id" yaml:"id"`
	AssetSymbol        string          `json:"assetSymbol" yaml:"assetSymbol"`
	DisplayName        string          `json:"displayName" yaml:"displayName"`
	Family             AddressFamily   `json:"family" yaml:"family"`
	ConfirmationsLabel string          `json:"confirmationsLabel" yaml:"confirmationsLabel"`
	MinDepositLabel    string          `json:"minDepositLabel" yaml:"minDepositLabel"`
	EstArrivalLabel    string          `json:"estArrivalLabel" yaml:"estArrivalLabel"`
	FeeAmount          decimal.Decimal `json:"feeAmount" yaml:"feeAmount"`
	MinDeposit         decimal.Decimal `json:"minDeposit" yaml:"minDeposit"`
	MaxDeposit         decimal.Decimal `json:"maxDeposit" yaml:"maxDeposit"`
	ExplorerTxURL      string          `json:"explorerTxUrl,omitempty" yaml:"explorerTxUrl,omitempty"` // contains "{tx}"
}

// DepositLimit is the min/max deposit pair for an (asset, network).
type DepositLimit struct {
	AssetSymbol string          `json:"assetSymbol"`
	NetworkID   string          `json:"networkId"`
	Min         decimal.Decimal `json:"min"`
	Max         decimal.Decimal `json:"max"`
}

// ExplorerURL renders the explorer link for a transaction hash, or "" when the network has none.
func (n Network) ExplorerURL(txHash string) string {
	if n.ExplorerTxURL == "" || txHash == "" {
		return ""
	}
	return strings.ReplaceAll(n.ExplorerTxURL, "{tx}", txHash)
}

// Currency is a backend currency key the client knows how to display.
type Currency struct {
	Key         string `json:"key"`
	Symbol      string `json:"symbol"`
	DisplayName string `json:"displayName"`
}

// NetworkOverride replaces fee/limit values of a known (asset, network) at startup.
// Nil fields keep the built-in value.
type NetworkOverride struct {
	AssetSymbol string           `json:"-"`
	NetworkID   string           `json:"networkId"`
	FeeAmount   *decimal.Decimal `json:"feeAmount,omitempty"`
	MinDeposit  *decimal.Decimal `json:"minDeposit,omitempty"`
	MaxDeposit  *decimal.Decimal `json:"maxDeposit,omitempty"`
}
